// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package insightsim

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eminwux/insightctl/internal/devicesim"
	"github.com/eminwux/insightctl/internal/env"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	jobsKey          = "insightsim.jobs"
	cellsKey         = "insightsim.cells"
	responseDelayKey = "insightsim.responseDelay"
)

func NewInsightsimRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "insightsim",
		Short: "In-Sight native mode simulator",
		Long: `insightsim emulates the native mode telnet service of a Cognex In-Sight
controller: greeting, login and the job, online, cell and trigger commands.
It is meant for development and tests without a camera.

Examples:
  insightsim --listen 127.0.0.1:2323 --password secret
  insightsim --job inspect.job --job calib.job --cell A1=42
`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			for _, v := range []env.Var{env.SIM_LISTEN, env.SIM_USER, env.SIM_PASSWORD, env.SIM_LOG_LEVEL} {
				if err := v.BindEnv(); err != nil {
					return fmt.Errorf("%w: bind %s: %w", errdefs.ErrConfig, v.EnvKey(), err)
				}
			}
			logging.SetLevel(cmd.Context(), env.SIM_LOG_LEVEL.ValueOrDefault())
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, ok := logging.FromContext(cmd.Context())
			if !ok {
				return errdefs.ErrLoggerNotFound
			}

			cfg := devicesim.Config{
				User:          env.SIM_USER.ValueOrDefault(),
				Password:      env.SIM_PASSWORD.ValueOrDefault(),
				Jobs:          viper.GetStringSlice(jobsKey),
				Cells:         viper.GetStringMapString(cellsKey),
				ResponseDelay: viper.GetDuration(responseDelayKey),
			}
			if len(cfg.Jobs) > 0 {
				cfg.CurrentJob = cfg.Jobs[0]
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sim := devicesim.NewServer(logger, cfg)
			if err := sim.Listen(ctx, env.SIM_LISTEN.ValueOrDefault()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", sim.Addr())

			<-ctx.Done()
			logger.InfoContext(cmd.Context(), "simulator stopping")
			return sim.Close()
		},
	}

	setupRootCmd(rootCmd)
	return rootCmd
}

func setupRootCmd(rootCmd *cobra.Command) {
	f := rootCmd.Flags()

	f.String("listen", "", "Address to listen on (default 127.0.0.1:2323)")
	_ = viper.BindPFlag(env.SIM_LISTEN.ViperKey, f.Lookup("listen"))

	f.String("user", "", "Accepted login user (default admin)")
	_ = viper.BindPFlag(env.SIM_USER.ViperKey, f.Lookup("user"))

	f.String("password", "", "Accepted login password (default empty)")
	_ = viper.BindPFlag(env.SIM_PASSWORD.ViperKey, f.Lookup("password"))

	f.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(env.SIM_LOG_LEVEL.ViperKey, f.Lookup("log-level"))

	f.StringSlice("job", nil, "Job file stored on the device; repeatable, the first one is loaded")
	_ = viper.BindPFlag(jobsKey, f.Lookup("job"))

	f.StringToString("cell", nil, "Initial cell value, e.g. --cell A1=42; repeatable")
	_ = viper.BindPFlag(cellsKey, f.Lookup("cell"))

	f.Duration("response-delay", 0, "Delay applied before every command reply")
	_ = viper.BindPFlag(responseDelayKey, f.Lookup("response-delay"))
}
