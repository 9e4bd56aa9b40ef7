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

	"github.com/eminwux/insightctl/internal/insight"
	"github.com/spf13/cobra"
)

type jobListOutput struct {
	Current string   `json:"current" yaml:"current"`
	Jobs    []string `json:"jobs"    yaml:"jobs"`
}

// withClient logs in, hands a command client to fn and disconnects.
func withClient(cmd *cobra.Command, fn func(logger *slog.Logger, c *insight.Client) error) error {
	logger, err := loggerFrom(cmd)
	if err != nil {
		return err
	}
	ds, err := openSession(cmd, logger, true)
	if err != nil {
		return err
	}
	defer ds.Disconnect()
	return fn(logger, insight.NewClient(ds, ds.device.Settle))
}

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "List, inspect and load job files",
	}
	cmd.AddCommand(newJobListCmd(), newJobCurrentCmd(), newJobLoadCmd())
	return cmd
}

func newJobListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the job files stored on the device",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			return withClient(cmd, func(_ *slog.Logger, c *insight.Client) error {
				files, errList := c.FileList()
				if errList != nil {
					return errList
				}
				current, errCur := c.CurrentJob()
				if errCur != nil {
					return errCur
				}

				if format != formatHuman {
					return writeStructured(cmd.OutOrStdout(), format, jobListOutput{Current: current, Jobs: files})
				}
				for _, f := range files {
					mark := "  "
					if f == current {
						mark = "* "
					}
					fmt.Fprintln(cmd.OutOrStdout(), mark+f)
				}
				return nil
			})
		},
	}
	addOutputFlag(cmd, formatJSON, formatYAML)
	return cmd
}

func newJobCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the active job file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(_ *slog.Logger, c *insight.Client) error {
				name, err := c.CurrentJob()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}
}

func newJobLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <job>",
		Short: "Load a job file and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(logger *slog.Logger, c *insight.Client) error {
				if err := c.LoadJob(args[0]); err != nil {
					return err
				}
				logger.InfoContext(cmd.Context(), "job loaded", "job", args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "job %s loaded\n", args[0])
				return nil
			})
		},
	}
}
