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
	"log/slog"
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/insight"
	"github.com/spf13/cobra"
)

func onlineState(on bool) string {
	if on {
		return "online"
	}
	return "offline"
}

func newOnlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "online [on|off]",
		Short:     "Show or change the online state",
		ValidArgs: []string{"on", "off"},
		Args:      cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var want *bool
			if len(args) == 1 {
				var on bool
				switch strings.ToLower(args[0]) {
				case "on", "1", "true":
					on = true
				case "off", "0", "false":
				default:
					return fmt.Errorf("%w: %q (use on|off)", errdefs.ErrInvalidArgument, args[0])
				}
				want = &on
			}

			return withClient(cmd, func(logger *slog.Logger, c *insight.Client) error {
				if want != nil {
					if err := c.SetOnline(*want); err != nil {
						return err
					}
					logger.InfoContext(cmd.Context(), "online state changed", "online", *want)
				}
				on, err := c.Online()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), onlineState(on))
				return nil
			})
		},
	}
}

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Fire a software trigger (acquire one image)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(logger *slog.Logger, c *insight.Client) error {
				if err := c.Trigger(); err != nil {
					return err
				}
				logger.InfoContext(cmd.Context(), "trigger sent")
				fmt.Fprintln(cmd.OutOrStdout(), "triggered")
				return nil
			})
		},
	}
}
