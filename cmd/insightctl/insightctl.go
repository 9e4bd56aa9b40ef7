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

package insightctl

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/eminwux/insightctl/cmd/config"
	"github.com/eminwux/insightctl/internal/env"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const askPasswordKey = "insightctl.device.askPassword"

func NewInsightctlRootCmd() *cobra.Command {
	// rootCmd represents the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:   "insightctl",
		Short: "insightctl command line tool",
		Long: `insightctl talks to Cognex In-Sight vision controllers over the native
mode telnet port.

You can see available options and commands with:
  insightctl help

Examples:
  insightctl banner --host 192.168.0.10
  insightctl login --host 192.168.0.10 --user admin --ask-password
  insightctl send GF "Get FileList" -p line1
  insightctl job load -p line1 inspect.job
  insightctl param get-all -p line1 --watch 2s
  insightctl probe
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(); err != nil {
				return err
			}

			level := viper.GetString(env.LOG_LEVEL.ViperKey)
			if logFile := env.LOG_FILE.ValueOrDefault(); logFile != "" {
				if err := logging.SetupFileLogger(cmd, logFile, level); err != nil {
					return err
				}
			} else {
				logging.SetLevel(cmd.Context(), level)
			}

			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}

			if logger, ok := logging.FromContext(cmd.Context()); ok {
				logFlags(cmd, logger)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c, _ := cmd.Context().Value(logging.CtxCloser).(io.Closer); c != nil {
				_ = c.Close()
			}
			return nil
		},
	}

	setupRootCmd(rootCmd)
	return rootCmd
}

func setupRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		newBannerCmd(),
		newLoginCmd(),
		newSendCmd(),
		newShellCmd(),
		newJobCmd(),
		newParamCmd(),
		newOnlineCmd(),
		newTriggerCmd(),
		newProfilesCmd(),
		newProbeCmd(),
	)

	pf := rootCmd.PersistentFlags()

	pf.String("config", "", "config file (default is $HOME/.insightctl/config.yaml)")
	_ = viper.BindPFlag(env.CONFIG_FILE.ViperKey, pf.Lookup("config"))

	pf.String("profiles", "", "profiles manifests file (default is $HOME/.insightctl/profiles.yaml)")
	_ = viper.BindPFlag(env.PROFILES_FILE.ViperKey, pf.Lookup("profiles"))

	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(env.LOG_LEVEL.ViperKey, pf.Lookup("log-level"))

	pf.String("log-file", "", "Write logs to this file instead of stderr")
	_ = viper.BindPFlag(env.LOG_FILE.ViperKey, pf.Lookup("log-file"))

	pf.Bool("no-color", false, "Disable coloured output (also honours NO_COLOR)")

	pf.StringP("profile", "p", "", "Device profile to use")
	_ = viper.BindPFlag(env.PROFILE.ViperKey, pf.Lookup("profile"))
	_ = rootCmd.RegisterFlagCompletionFunc("profile", config.CompleteProfileFlag)

	pf.String("host", "", "Device host name or address")
	_ = viper.BindPFlag(env.HOST.ViperKey, pf.Lookup("host"))

	pf.Int("port", 0, "Device telnet port (default 23)")
	_ = viper.BindPFlag(env.PORT.ViperKey, pf.Lookup("port"))

	pf.String("protocol", "", "Transport protocol: raw|telnet (default raw)")
	_ = viper.BindPFlag(env.PROTOCOL.ViperKey, pf.Lookup("protocol"))
	_ = rootCmd.RegisterFlagCompletionFunc(
		"protocol",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return []string{"raw", "telnet"}, cobra.ShellCompDirectiveNoFileComp
		},
	)

	pf.StringP("user", "u", "", "Login user (default admin)")
	_ = viper.BindPFlag(env.USER.ViperKey, pf.Lookup("user"))

	pf.String("password", "", "Login password")
	_ = viper.BindPFlag(env.PASSWORD.ViperKey, pf.Lookup("password"))

	pf.Bool("ask-password", false, "Prompt for the login password on the terminal")
	_ = viper.BindPFlag(askPasswordKey, pf.Lookup("ask-password"))

	pf.Duration("settle", 0, "Wait after each command before reading the reply (default 500ms)")
	_ = viper.BindPFlag(env.SETTLE.ViperKey, pf.Lookup("settle"))

	pf.Bool("trace", false, "Log a hex dump of every byte exchanged with the device")
	_ = viper.BindPFlag(env.TRACE.ViperKey, pf.Lookup("trace"))
}

// logFlags dumps the flags set on the command line at debug level.
func logFlags(cmd *cobra.Command, logger *slog.Logger) {
	visit := func(kind string) func(*pflag.Flag) {
		return func(f *pflag.Flag) {
			value := f.Value.String()
			if f.Name == "password" {
				value = "***"
			}
			logger.DebugContext(cmd.Context(), kind, "name", f.Name, "value", value)
		}
	}
	cmd.Flags().Visit(visit("flag value"))
	cmd.InheritedFlags().Visit(visit("inherited flag value"))
}

func loggerFrom(cmd *cobra.Command) (*slog.Logger, error) {
	logger, ok := logging.FromContext(cmd.Context())
	if !ok {
		return nil, errdefs.ErrLoggerNotFound
	}
	return logger, nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %s takes no arguments", errdefs.ErrTooManyArguments, cmd.Name())
	}
	return nil
}
