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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/shell"
	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive native mode console",
		Long: `Log in and read commands from stdin, one per line. Every command and reply
is printed with a timestamp. Type :help for the local directives.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := loggerFrom(cmd)
			if err != nil {
				return err
			}

			ds, err := openSession(cmd, logger, true)
			if err != nil {
				return err
			}
			defer ds.Disconnect()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s:%d (login %s); :help for directives\n",
				ds.device.Host, ds.device.Port, ds.login)

			sh := &shell.Shell{
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				Session: ds,
				Settle:  ds.device.Settle,
				Logger:  logger,
			}
			err = sh.Run(ctx)
			if errors.Is(err, errdefs.ErrContextDone) {
				return nil
			}
			return err
		},
	}
}
