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
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/insight"
	"github.com/eminwux/insightctl/internal/shell"
	"github.com/spf13/cobra"
)

type sendEntry struct {
	Command string          `json:"command"          yaml:"command"`
	Reply   string          `json:"reply"            yaml:"reply"`
	Result  *insight.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error   string          `json:"error,omitempty"  yaml:"error,omitempty"`
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <command>...",
		Short: "Send native mode commands and print the replies",
		Long: `Log in and send every argument as one native mode command, in order.

With -o raw (the default) replies are printed as received. With -o json or
-o yaml each reply is also split into result code and payload.`,
		Example: `  insightctl send GF
  insightctl send "Get FileList" GO -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFrom(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, formatRaw, formatJSON, formatYAML)
			if err != nil {
				return err
			}

			ds, err := openSession(cmd, logger, true)
			if err != nil {
				return err
			}
			defer ds.Disconnect()

			w := cmd.OutOrStdout()
			entries := make([]sendEntry, 0, len(args))
			for _, command := range args {
				reply := ds.SendCommand(command, ds.device.Settle)
				logger.DebugContext(cmd.Context(), "command sent", "command", command, "reply", reply)

				if format == formatHuman || format == formatRaw {
					text := strings.TrimRight(reply, "\r\n")
					if text == "" {
						text = shell.NoResponse
					}
					fmt.Fprintln(w, text)
					continue
				}

				e := sendEntry{Command: command, Reply: reply}
				if res, errParse := insight.ParseResponse(reply); errParse != nil {
					e.Error = errParse.Error()
				} else {
					e.Result = res
				}
				entries = append(entries, e)
			}

			if format == formatJSON || format == formatYAML {
				if err = writeStructured(w, format, entries); err != nil {
					return err
				}
			}
			if !ds.IsConnected() {
				return fmt.Errorf("%w: session lost while sending", errdefs.ErrConnectionLost)
			}
			return nil
		},
	}
	addOutputFlag(cmd, formatRaw, formatJSON, formatYAML)
	return cmd
}
