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
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/eminwux/insightctl/internal/env"
	"github.com/eminwux/insightctl/internal/logging"
	"github.com/eminwux/insightctl/internal/session"
	"github.com/eminwux/insightctl/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Test_setupRootCmd_HappyPath(t *testing.T) {
	t.Cleanup(viper.Reset)

	rootCmd := &cobra.Command{Use: "insightsim"}
	setupRootCmd(rootCmd)

	flagCases := []struct {
		flagName string
		value    string
		viperKey string
	}{
		{"listen", "0.0.0.0:23", env.SIM_LISTEN.ViperKey},
		{"user", "operator", env.SIM_USER.ViperKey},
		{"password", "secret", env.SIM_PASSWORD.ViperKey},
		{"log-level", "debug", env.SIM_LOG_LEVEL.ViperKey},
		{"response-delay", "100ms", responseDelayKey},
	}
	for _, tc := range flagCases {
		t.Run(tc.flagName, func(t *testing.T) {
			if err := rootCmd.Flags().Set(tc.flagName, tc.value); err != nil {
				t.Fatalf("failed to set flag %s: %v", tc.flagName, err)
			}
			if got := viper.GetString(tc.viperKey); got != tc.value {
				t.Fatalf("viper key %s expected %s, got %s", tc.viperKey, tc.value, got)
			}
		})
	}
}

func Test_RunServesUntilCancelled(t *testing.T) {
	t.Cleanup(viper.Reset)
	for _, v := range []env.Var{env.SIM_LISTEN, env.SIM_USER, env.SIM_PASSWORD, env.SIM_LOG_LEVEL} {
		t.Setenv(v.EnvKey(), "")
	}

	pr, pw := io.Pipe()
	root := NewInsightsimRootCmd()
	root.SetOut(pw)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"--listen", "127.0.0.1:0",
		"--password", "secret",
		"--job", "inspect.job", "--job", "calib.job",
		"--cell", "A1=42",
	})

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), os.Stdout, "debug"))
	defer cancel()
	root.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- root.Execute()
		_ = pw.Close()
	}()

	line, err := bufio.NewReader(pr).ReadString('\n')
	if err != nil {
		t.Fatalf("no listen line: %v", err)
	}
	addr := strings.TrimSpace(strings.TrimPrefix(line, "listening on "))
	host, portText, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("bad listen address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("bad port %q: %v", portText, err)
	}
	go func() { _, _ = io.Copy(io.Discard, pr) }()

	s := session.NewController(context.Background(), slog.New(slog.DiscardHandler), api.SessionConfig{
		Timings: api.Timings{
			Chunk:          50 * time.Millisecond,
			UserSettle:     10 * time.Millisecond,
			PasswordSettle: 50 * time.Millisecond,
			CommandSettle:  20 * time.Millisecond,
		},
	})
	defer s.Disconnect()

	if _, err = s.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if res, errLogin := s.Login("admin", "secret"); errLogin != nil || res != api.LoginConfirmed {
		t.Fatalf("login: %v %v", res, errLogin)
	}
	if got := s.SendCommand("GF", 0); !strings.Contains(got, "inspect.job") {
		t.Fatalf("unexpected GF reply %q", got)
	}
	if got := s.SendCommand("GVA1", 0); !strings.Contains(got, "42") {
		t.Fatalf("unexpected GV reply %q", got)
	}

	cancel()
	select {
	case err = <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("simulator did not stop")
	}
}
