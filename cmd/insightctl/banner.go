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
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/probe"
	"github.com/spf13/cobra"
)

type bannerOutput struct {
	Host     string `json:"host"     yaml:"host"`
	Port     int    `json:"port"     yaml:"port"`
	Greeting string `json:"greeting" yaml:"greeting"`
	Prompted bool   `json:"prompted" yaml:"prompted"`
	Welcome  bool   `json:"welcome"  yaml:"welcome"`
}

type loginOutput struct {
	Host   string `json:"host"   yaml:"host"`
	Port   int    `json:"port"   yaml:"port"`
	User   string `json:"user"   yaml:"user"`
	Result string `json:"result" yaml:"result"`
}

func newBannerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banner",
		Short: "Connect and print the device greeting",
		Long: `Connect to the device, wait for the "User:" prompt and print everything
received until then. No login is attempted.`,
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

			ds, err := openSession(cmd, logger, false)
			if err != nil {
				return err
			}
			defer ds.Disconnect()

			out := bannerOutput{
				Host:     ds.device.Host,
				Port:     ds.device.Port,
				Greeting: ds.greeting.Text,
				Prompted: ds.greeting.Prompted,
				Welcome:  strings.Contains(ds.greeting.Text, probe.WelcomeText),
			}
			if format != formatHuman {
				return writeStructured(cmd.OutOrStdout(), format, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, strings.TrimRight(out.Greeting, " \r\n"))
			fmt.Fprintf(w, "---\nwelcome: %s  user prompt: %s\n", yesNo(out.Welcome), yesNo(out.Prompted))
			return nil
		},
	}
	addOutputFlag(cmd, formatJSON, formatYAML)
	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Connect, log in and report the outcome",
		Long: `Run the full login handshake and report whether the device confirmed it.
An unconfirmed login means the device accepted the password without printing
an acknowledgement; the session is usable.`,
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

			ds, err := openSession(cmd, logger, true)
			if err != nil {
				if errors.Is(err, errdefs.ErrLogin) || errors.Is(err, errdefs.ErrPasswordPrompt) {
					fmt.Fprintln(cmd.OutOrStdout(), "login failed")
				}
				return err
			}
			defer ds.Disconnect()

			if format != formatHuman {
				return writeStructured(cmd.OutOrStdout(), format, loginOutput{
					Host:   ds.device.Host,
					Port:   ds.device.Port,
					User:   ds.device.User,
					Result: ds.login.String(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "login %s (%s@%s:%d)\n",
				ds.login, ds.device.User, ds.device.Host, ds.device.Port)
			return nil
		},
	}
	addOutputFlag(cmd, formatJSON, formatYAML)
	return cmd
}
