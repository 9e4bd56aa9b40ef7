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

package devicesim

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewServer(logger, cfg)
	if err := s.Listen(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}

func Test_DeviceCommands(t *testing.T) {
	d := newDevice(Config{Jobs: []string{"myjob.job", "other.job"}, Cells: map[string]string{"c12": "42"}})

	steps := []struct {
		cmd  string
		want string
	}{
		{"GF", "1\r\nmyjob.job\r\n"},
		{"Get FileList", "1\r\n2\r\nmyjob.job\r\nother.job\r\n"},
		{"LFother.job", "1\r\n"},
		{"gf", "1\r\nother.job\r\n"},
		{"LFmissing.job", "-2\r\n"},
		{"LF", "-1\r\n"},
		{"GVC12", "1\r\n42\r\n"},
		{"GVA1", "1\r\n0\r\n"},
		{"GV??", "-1\r\n"},
		{"SIA1 7", "1\r\n"},
		{"GVA1", "1\r\n7\r\n"},
		{"SIA1 seven", "-1\r\n"},
		{"SFB2 1.5", "1\r\n"},
		{"GVB2", "1\r\n1.500\r\n"},
		{`SSD4 "hello"`, "1\r\n"},
		{"GVD4", "1\r\nhello\r\n"},
		{"GO", "1\r\n1\r\n"},
		{"SW8", "1\r\n"},
		{"SO0", "1\r\n"},
		{"GO", "1\r\n0\r\n"},
		{"SW8", "-2\r\n"},
		{"SO9", "-1\r\n"},
		{"HELLO", "0\r\n"},
	}
	for _, st := range steps {
		if got := d.exec(st.cmd); got != st.want {
			t.Fatalf("exec(%q)=%q want %q", st.cmd, got, st.want)
		}
	}

	snap := d.snapshot()
	if snap.CurrentJob != "other.job" || snap.Online || snap.Triggers != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func dialAndLogin(t *testing.T, s *Server, user, password string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	expectText(t, r, PromptUser)
	_, _ = io.WriteString(conn, user+"\r\n")
	expectText(t, r, PromptPassword)
	_, _ = io.WriteString(conn, password+"\r\n")
	return conn, r
}

// expectText reads until want has been seen.
func expectText(t *testing.T, r *bufio.Reader, want string) string {
	t.Helper()
	var sb strings.Builder
	for !strings.Contains(sb.String(), want) {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("waiting for %q, got %q: %v", want, sb.String(), err)
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func Test_ServerLoginAndCommand(t *testing.T) {
	s := newTestServer(t, Config{Password: "secret"})
	conn, r := dialAndLogin(t, s, "admin", "secret")

	expectText(t, r, LoggedIn)
	_, _ = io.WriteString(conn, "GF\r\n")
	if got := expectText(t, r, "myjob.job\r\n"); got != "1\r\nmyjob.job\r\n" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func Test_ServerRejectsBadPassword(t *testing.T) {
	s := newTestServer(t, Config{Password: "secret"})
	_, r := dialAndLogin(t, s, "admin", "wrong")

	got := expectText(t, r, PromptUser)
	if !strings.Contains(got, "Invalid Password") {
		t.Fatalf("expected rejection, got %q", got)
	}
}

func Test_ServerDropOn(t *testing.T) {
	s := newTestServer(t, Config{DropOn: "GF"})
	conn, r := dialAndLogin(t, s, "admin", "")
	expectText(t, r, LoggedIn)

	_, _ = io.WriteString(conn, "GF\r\n")
	if _, err := r.ReadByte(); err != io.EOF {
		t.Fatalf("expected EOF after drop, got %v", err)
	}
}

func Test_ServerCloseUnblocksClients(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewServer(logger, Config{})
	if err := s.Listen(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Close did not return with a client attached")
	}
}
