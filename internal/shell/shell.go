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

// Package shell is an interactive native mode console: every input line is
// sent to the device and the reply is echoed with timestamps.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/insight"
	"github.com/eminwux/insightctl/pkg/api"
)

const (
	DefaultPrompt = "insight> "
	NoResponse    = "[no response]"
	stampLayout   = "15:04:05.000"
)

const helpText = `Lines are sent to the device as native mode commands.
Directives:
  :status           show the session state
  :settle <dur>     set the wait before reading a reply (e.g. 750ms)
  :help             show this help
  :quit             leave the shell
`

type Shell struct {
	In      io.Reader
	Out     io.Writer
	Session api.SessionController
	Settle  time.Duration
	Prompt  string
	Logger  *slog.Logger

	// Now stamps TX/RX lines; replaced in tests.
	Now func() time.Time
}

type lineOrErr struct {
	line string
	err  error
}

// Run reads lines until input ends, :quit, or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan lineOrErr)
	go func() {
		sc := bufio.NewScanner(s.In)
		for sc.Scan() {
			select {
			case lines <- lineOrErr{line: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case lines <- lineOrErr{err: err}:
		case <-ctx.Done():
		}
	}()

	for {
		fmt.Fprint(s.Out, s.Prompt)

		var in lineOrErr
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errdefs.ErrContextDone, ctx.Err())
		case in = <-lines:
		}
		if in.err != nil {
			fmt.Fprintln(s.Out)
			if in.err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: %w", errdefs.ErrShellInputFinished, in.err)
		}

		line := strings.TrimSpace(in.line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := s.directive(line); quit {
				return nil
			}
			continue
		}
		s.exchange(line)
	}
}

func (s *Shell) stamp() string {
	return "[" + s.Now().Format(stampLayout) + "]"
}

func (s *Shell) exchange(cmd string) {
	ts := s.stamp()
	fmt.Fprintf(s.Out, "%s TX: %s\n", ts, cmd)
	s.Logger.Info("shell tx", "cmd", cmd)

	reply := insight.CompactText(s.Session.SendCommand(cmd, s.Settle))
	if reply == "" {
		reply = NoResponse
	}
	fmt.Fprintf(s.Out, "%s RX: %s\n", ts, reply)
	s.Logger.Info("shell rx", "cmd", cmd, "reply", reply)
}

func (s *Shell) directive(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true

	case ":status":
		st := s.Session.Status()
		if st.State == api.StateDisconnected {
			fmt.Fprintf(s.Out, "state: %s\n", st.StateName)
			return false
		}
		fmt.Fprintf(s.Out, "state: %s  device: %s:%d  since: %s\n",
			st.StateName, st.Host, st.Port, st.ConnectedAt.Format(time.RFC3339))
		if st.Login != "" {
			fmt.Fprintf(s.Out, "login: %s\n", st.Login)
		}

	case ":settle":
		if len(fields) != 2 {
			fmt.Fprintf(s.Out, "settle: %s\n", s.Settle)
			return false
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil || d < 0 {
			fmt.Fprintf(s.Out, "invalid duration %q\n", fields[1])
			return false
		}
		s.Settle = d
		fmt.Fprintf(s.Out, "settle: %s\n", s.Settle)

	case ":help", ":h":
		fmt.Fprint(s.Out, helpText)

	default:
		fmt.Fprintf(s.Out, "unknown directive %s (try :help)\n", fields[0])
	}
	return false
}
