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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eminwux/insightctl/cmd/config"
	"github.com/eminwux/insightctl/cmd/parser"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/probe"
	"github.com/eminwux/insightctl/internal/profile"
	"github.com/eminwux/insightctl/internal/shared"
	"github.com/eminwux/insightctl/pkg/api"
	"github.com/spf13/cobra"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile", "prof"},
		Short:   "Manage device profiles",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProfiles(cmd, args)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the profiles in the profiles file",
		Args:    noArgs,
		RunE:    listProfiles,
	})
	return cmd
}

func listProfiles(cmd *cobra.Command, _ []string) error {
	logger, err := loggerFrom(cmd)
	if err != nil {
		return err
	}
	logger.DebugContext(cmd.Context(), "profiles list command invoked", "profiles_file", config.ProfilesFile())

	if err = profile.ScanAndPrintProfiles(cmd.Context(), logger, config.ProfilesFile(), cmd.OutOrStdout()); err != nil {
		logger.DebugContext(cmd.Context(), "error scanning and printing profiles", "error", err)
		return err
	}
	return nil
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [host[:port]]...",
		Short: "Check many devices concurrently",
		Long: `Connect to every device at once, capture its greeting and report whether it
answered like an In-Sight controller. Without arguments every profile in the
profiles file is probed. No login is attempted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFrom(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			save, _ := cmd.Flags().GetString("save")

			targets, protocols, err := probeTargets(cmd.Context(), logger, args)
			if err != nil {
				return err
			}

			newSession := func(t probe.Target) api.SessionController {
				proto := protocols[t.Name]
				if proto == "" {
					proto = api.ProtocolRaw
				}
				return newSessionController(cmd.Context(), logger, &config.Device{
					Host:     t.Host,
					Port:     t.Port,
					Protocol: proto,
				})
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			reports := probe.Run(ctx, logger, targets, newSession, limit)
			if save != "" {
				if err = shared.WriteReport(cmd.Context(), reports, save); err != nil {
					return err
				}
			}

			if format != formatHuman {
				return writeStructured(cmd.OutOrStdout(), format, reports)
			}
			return probe.PrintReports(cmd.OutOrStdout(), reports)
		},
	}
	addOutputFlag(cmd, formatJSON, formatYAML)
	cmd.Flags().Int("limit", probe.DefaultLimit, "Maximum number of devices probed at the same time")
	cmd.Flags().Duration("timeout", 30*time.Second, "Give up on devices not probed by then; 0 waits forever")
	cmd.Flags().String("save", "", "Also write the reports to this .json or .yaml file")
	return cmd
}

func probeTargets(
	ctx context.Context,
	logger *slog.Logger,
	args []string,
) ([]probe.Target, map[string]api.Protocol, error) {
	protocols := map[string]api.Protocol{}
	if len(args) > 0 {
		targets := make([]probe.Target, 0, len(args))
		for _, a := range args {
			host, port, err := parser.ParseTarget(a)
			if err != nil {
				return nil, nil, err
			}
			targets = append(targets, probe.Target{Name: a, Host: host, Port: port})
		}
		return targets, protocols, nil
	}

	profiles, err := profile.LoadProfilesFromPath(ctx, logger, config.ProfilesFile())
	if err != nil {
		return nil, nil, err
	}
	targets := make([]probe.Target, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if errV := profile.Validate(p); errV != nil {
			logger.WarnContext(ctx, "skipping invalid profile", "profile", p.Metadata.Name, "error", errV)
			continue
		}
		targets = append(targets, probe.Target{Name: p.Metadata.Name, Host: p.Spec.Host, Port: p.Spec.Port})
		protocols[p.Metadata.Name] = p.Spec.Protocol
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("%w: no valid profiles in %s", errdefs.ErrProfileNotFound, config.ProfilesFile())
	}
	return targets, protocols, nil
}
