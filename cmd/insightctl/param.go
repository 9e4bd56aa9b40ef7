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
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/eminwux/insightctl/cmd/parser"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/insight"
	"github.com/eminwux/insightctl/internal/shared"
	"github.com/eminwux/insightctl/internal/shell"
	"github.com/eminwux/insightctl/pkg/api"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type paramRow struct {
	Cell   string `json:"cell"   yaml:"cell"`
	Item   string `json:"item"   yaml:"item"`
	Result string `json:"result" yaml:"result"`
	Judge  string `json:"judge"  yaml:"judge"`
}

func newParamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "param",
		Aliases: []string{"cell"},
		Short:   "Read and write spreadsheet cells",
	}
	cmd.AddCommand(newParamGetCmd(), newParamSetCmd(), newParamGetAllCmd())
	return cmd
}

func newParamGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <cell>",
		Short: "Print the value of one cell (e.g. A12)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(_ *slog.Logger, c *insight.Client) error {
				v, err := c.GetValue(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func newParamSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <cell> <value>",
		Short: "Write a value into a cell",
		Long: `Write a value into a cell with SI, SF or SS. The command is chosen from
--type; with the default "auto" integers use SI, other numbers SF and
everything else SS.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			v, err := parser.ParseCellValue(args[1], parser.ValueType(typ))
			if err != nil {
				return err
			}
			cell := args[0]

			return withClient(cmd, func(logger *slog.Logger, c *insight.Client) error {
				var errSet error
				switch v.Type {
				case parser.TypeInt:
					errSet = c.SetInteger(cell, v.Int)
				case parser.TypeFloat:
					errSet = c.SetFloat(cell, v.Float)
				default:
					errSet = c.SetString(cell, v.String)
				}
				if errSet != nil {
					return errSet
				}
				logger.InfoContext(cmd.Context(), "cell written", "cell", cell, "type", v.Type, "value", args[1])
				fmt.Fprintf(cmd.OutOrStdout(), "%s set\n", cell)
				return nil
			})
		},
	}
	cmd.Flags().String("type", string(parser.TypeAuto), "Value type: auto|int|float|string")
	_ = cmd.RegisterFlagCompletionFunc(
		"type",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return []string{"auto", "int", "float", "string"}, cobra.ShellCompDirectiveNoFileComp
		},
	)
	return cmd
}

func newParamGetAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-all",
		Short: "Run every parameter command of the profile and judge the replies",
		Long: `Send the command of every parameter listed in the selected profile and print
one row per parameter with the reply and an OK/NG judgement. A reply is NG
when it is empty, reports a failing result code or the session failed.

With --watch the table is refreshed at the given interval until interrupted.
With --save the latest rows are also stored in a JSON or YAML file, chosen by
the file extension.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := loggerFrom(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			watch, _ := cmd.Flags().GetDuration("watch")
			save, _ := cmd.Flags().GetString("save")
			if watch < 0 {
				return fmt.Errorf("%w: --watch must not be negative", errdefs.ErrInvalidFlag)
			}

			ds, err := openSession(cmd, logger, true)
			if err != nil {
				return err
			}
			defer ds.Disconnect()

			if len(ds.device.Parameters) == 0 {
				return fmt.Errorf("%w: %q", errdefs.ErrNoParameters, ds.device.Profile)
			}

			round := func() error {
				rows := readParams(ds, ds.device.Parameters, ds.device.Settle)
				if save != "" {
					if errSave := shared.WriteReport(cmd.Context(), rows, save); errSave != nil {
						return errSave
					}
					logger.DebugContext(cmd.Context(), "parameter report saved", "path", save, "rows", len(rows))
				}
				if format != formatHuman {
					return writeStructured(cmd.OutOrStdout(), format, rows)
				}
				return printParamTable(cmd.OutOrStdout(), rows)
			}

			if watch == 0 {
				return round()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n", time.Now().Format("15:04:05"))
				if err = round(); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	addOutputFlag(cmd, formatJSON, formatYAML)
	cmd.Flags().Duration("watch", 0, "Refresh interval (e.g. 2s); 0 runs once")
	cmd.Flags().String("save", "", "Also write the rows to this .json or .yaml file")
	return cmd
}

func readParams(s api.SessionController, params []api.ParameterSpec, settle time.Duration) []paramRow {
	rows := make([]paramRow, 0, len(params))
	for _, p := range params {
		reply := s.SendCommand(p.Command, settle)
		result := insight.CompactText(reply)
		if result == "" {
			result = shell.NoResponse
		}
		rows = append(rows, paramRow{
			Cell:   p.Cell,
			Item:   p.Item,
			Result: result,
			Judge:  insight.Judge(reply),
		})
	}
	return rows
}

//nolint:gochecknoglobals // fixed palette
var (
	judgeOK = color.New(color.FgGreen, color.Bold)
	judgeNG = color.New(color.FgRed, color.Bold)
)

// printParamTable renders rows as a table. JUDGE is the last column so its
// colour codes do not disturb the tabwriter alignment.
func printParamTable(w io.Writer, rows []paramRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CELL\tITEM\tRESULT\tJUDGE")
	for _, r := range rows {
		judge := judgeNG.Sprint(r.Judge)
		if r.Judge == insight.JudgeOK {
			judge = judgeOK.Sprint(r.Judge)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Cell, r.Item, r.Result, judge)
	}
	return tw.Flush()
}
