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

package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eminwux/insightctl/internal/devicesim"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/framing"
	"github.com/eminwux/insightctl/pkg/api"
)

func testTimings() api.Timings {
	return api.Timings{
		Connect:        time.Second,
		Write:          time.Second,
		Banner:         time.Second,
		PasswordPrompt: 400 * time.Millisecond,
		Chunk:          50 * time.Millisecond,
		UserSettle:     10 * time.Millisecond,
		PasswordSettle: 50 * time.Millisecond,
		LoginConfirm:   300 * time.Millisecond,
		CommandSettle:  50 * time.Millisecond,
		CommandGrace:   500 * time.Millisecond,
	}
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewController(context.Background(), logger, api.SessionConfig{Timings: testTimings()})
	t.Cleanup(c.Disconnect)
	return c
}

func newSim(t *testing.T, cfg devicesim.Config) (string, int) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := devicesim.NewServer(logger, cfg)
	if err := s.Listen(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s.HostPort()
}

func connectAndLogin(t *testing.T, c *Controller, host string, port int, password string) {
	t.Helper()
	if _, err := c.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if res, err := c.Login("admin", password); err != nil || !res.Success() {
		t.Fatalf("login: result=%v err=%v", res, err)
	}
}

// fakeLink is a Link over a scripted source that records what is sent.
type fakeLink struct {
	mu       sync.Mutex
	src      *framing.FakeSource
	sent     []string
	sendErr  error
	closed   bool
	timeouts []time.Duration
}

func newFakeLink(chunks ...framing.Chunk) *fakeLink {
	return &fakeLink{src: framing.NewFakeSource(chunks...)}
}

func (f *fakeLink) Recv(buf []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, timeout)
	f.mu.Unlock()
	return f.src.Recv(buf, timeout)
}

func (f *fakeLink) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, string(p))
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLink) snapshot() ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...), f.closed
}

func withLinks(c *Controller, links ...*fakeLink) *[]int {
	var ports []int
	c.Dial = func(_ string, port int) (Link, error) {
		ports = append(ports, port)
		l := links[0]
		links = links[1:]
		return l, nil
	}
	return &ports
}

/* ---------- Scenarios against the simulator ---------- */

func Test_ConnectAndReceiveInitialReturnsBanner(t *testing.T) {
	host, port := newSim(t, devicesim.Config{})
	c := newTestController(t)

	g, err := c.ConnectAndReceiveInitial(host, port)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(g.Text, "Welcome to In-Sight") || !strings.Contains(g.Text, "User:") {
		t.Fatalf("unexpected banner %q", g.Text)
	}
	if !g.Prompted {
		t.Fatalf("expected Prompted=true")
	}
	if st := c.Status(); st.State != api.StateConnected || st.Port != port {
		t.Fatalf("unexpected status %+v", st)
	}
}

func Test_ConnectAndReceiveInitialConnectionFailed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	c := newTestController(t)
	g, err := c.ConnectAndReceiveInitial("127.0.0.1", port)
	if !errors.Is(err, errdefs.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if g.Text != api.TextConnectionFailed {
		t.Fatalf("expected connection failed sentinel, got %q", g.Text)
	}
	if c.IsConnected() {
		t.Fatalf("failed connect must leave the session disconnected")
	}
}

func Test_LoginConfirmed(t *testing.T) {
	host, port := newSim(t, devicesim.Config{Password: "secret"})
	c := newTestController(t)

	if _, err := c.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := c.Login("admin", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != api.LoginConfirmed {
		t.Fatalf("expected confirmed login, got %v", res)
	}
	if st := c.Status(); st.State != api.StateAuthenticated || st.Login != "confirmed" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func Test_LoginWithoutPasswordPromptFails(t *testing.T) {
	host, port := newSim(t, devicesim.Config{SkipPasswordPrompt: true})
	c := newTestController(t)

	if _, err := c.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	start := time.Now()
	res, err := c.Login("admin", "wrong")
	if !errors.Is(err, errdefs.ErrPasswordPrompt) {
		t.Fatalf("expected ErrPasswordPrompt, got %v", err)
	}
	if res.Success() {
		t.Fatalf("expected failure, got %v", res)
	}
	if time.Since(start) < testTimings().PasswordPrompt {
		t.Fatalf("gave up before the password window closed")
	}
	if st := c.Status(); st.State != api.StateConnected {
		t.Fatalf("a missed prompt must not drop the connection, got %+v", st)
	}
}

func Test_LoginWrongPasswordIsUnconfirmed(t *testing.T) {
	host, port := newSim(t, devicesim.Config{Password: "secret"})
	c := newTestController(t)

	if _, err := c.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := c.Login("admin", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != api.LoginUnconfirmed || !res.Success() {
		t.Fatalf("expected unconfirmed success, got %v", res)
	}
	if st := c.Status(); st.Login != api.LoginUnconfirmed.String() || st.State != api.StateAuthenticated {
		t.Fatalf("unexpected status %+v", st)
	}
}

func Test_LoginReplyWithoutHintIsUnconfirmed(t *testing.T) {
	for _, reply := range []string{
		"Invalid Password\r\nUser: ",
		"Access denied\r\n",
		"Login failed\r\n",
	} {
		t.Run(reply, func(t *testing.T) {
			c := newTestController(t)
			c.Sleep = func(time.Duration) {}
			withLinks(c, newFakeLink(
				framing.Chunk{Data: []byte("Password: ")},
				framing.Chunk{Delay: 10 * time.Millisecond, Data: []byte(reply)},
			))

			if err := c.Connect("device", 23); err != nil {
				t.Fatalf("connect: %v", err)
			}
			res, err := c.Login("admin", "x")
			if err != nil || res != api.LoginUnconfirmed {
				t.Fatalf("expected unconfirmed, got %v %v", res, err)
			}
			if !c.IsConnected() {
				t.Fatalf("session dropped after login reply")
			}
		})
	}
}

func Test_LoginSilentDeviceIsUnconfirmed(t *testing.T) {
	host, port := newSim(t, devicesim.Config{SilentLogin: true})
	c := newTestController(t)

	if _, err := c.ConnectAndReceiveInitial(host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := c.Login("admin", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != api.LoginUnconfirmed || !res.Success() {
		t.Fatalf("expected unconfirmed success, got %v", res)
	}
}

func Test_SendCommandReturnsRawReply(t *testing.T) {
	host, port := newSim(t, devicesim.Config{Jobs: []string{"myjob.job"}})
	c := newTestController(t)
	connectAndLogin(t, c, host, port, "")

	if got := c.SendCommand("GF", 0); got != "1\r\nmyjob.job\r\n" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func Test_SendCommandOnDroppedConnection(t *testing.T) {
	host, port := newSim(t, devicesim.Config{DropOn: "GF"})
	c := newTestController(t)
	connectAndLogin(t, c, host, port, "")

	got := c.SendCommand("GF", 0)
	if !strings.HasPrefix(got, api.TextErrorPrefix) {
		t.Fatalf("expected error sentinel, got %q", got)
	}
	if c.IsConnected() {
		t.Fatalf("a dropped connection must leave the session disconnected")
	}
	if got := c.SendCommand("GF", 0); got != api.TextNotConnected {
		t.Fatalf("expected not connected sentinel afterwards, got %q", got)
	}
}

func Test_SendCommandSerialisesCallers(t *testing.T) {
	host, port := newSim(t, devicesim.Config{ResponseDelay: 20 * time.Millisecond})
	c := newTestController(t)
	connectAndLogin(t, c, host, port, "")

	cmds := map[string]string{
		"GF": "1\r\nmyjob.job\r\n",
		"GO": "1\r\n1\r\n",
	}
	var wg sync.WaitGroup
	errs := make(chan string, 2*len(cmds))
	for range 2 {
		for cmd, want := range cmds {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if got := c.SendCommand(cmd, 0); got != want {
					errs <- cmd + ": " + got
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("interleaved reply %q", e)
	}
}

/* ---------- State machine against a scripted link ---------- */

func Test_SendCommandNotConnectedSendsNothing(t *testing.T) {
	c := newTestController(t)
	link := newFakeLink()
	withLinks(c, link)

	if got := c.SendCommand("GF", 0); got != api.TextNotConnected {
		t.Fatalf("expected not connected sentinel, got %q", got)
	}

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c.Disconnect()
	if got := c.SendCommand("GF", 0); got != api.TextNotConnected {
		t.Fatalf("expected not connected sentinel, got %q", got)
	}
	if sent, _ := link.snapshot(); len(sent) != 0 {
		t.Fatalf("no bytes may be sent while disconnected, sent %q", sent)
	}
}

func Test_ConnectThenDisconnectReleasesLink(t *testing.T) {
	c := newTestController(t)
	link := newFakeLink()
	withLinks(c, link)

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}
	c.Disconnect()
	if c.IsConnected() {
		t.Fatalf("expected disconnected")
	}
	if _, closed := link.snapshot(); !closed {
		t.Fatalf("link was not closed")
	}

	c.Disconnect()
	if c.IsConnected() || c.Status().State != api.StateDisconnected {
		t.Fatalf("second disconnect changed state")
	}
}

func Test_ConnectValidation(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		wantErr  error
		wantPort int
	}{
		{"empty host", "  ", 23, errdefs.ErrInvalidHost, 0},
		{"negative port", "device", -1, errdefs.ErrInvalidPort, 0},
		{"port too large", "device", 70000, errdefs.ErrInvalidPort, 0},
		{"zero port defaults", "device", 0, nil, 23},
		{"explicit port", "device", 2323, nil, 2323},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			ports := withLinks(c, newFakeLink())

			err := c.Connect(tt.host, tt.port)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(*ports) != 0 || c.IsConnected() {
					t.Fatalf("invalid input must not dial")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (*ports)[0] != tt.wantPort || c.Status().Port != tt.wantPort {
				t.Fatalf("dialed port %d, status port %d, want %d", (*ports)[0], c.Status().Port, tt.wantPort)
			}
		})
	}
}

func Test_ReconnectClosesPreviousLink(t *testing.T) {
	c := newTestController(t)
	first, second := newFakeLink(), newFakeLink()
	withLinks(c, first, second)

	if err := c.Connect("a", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Connect("b", 23); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if _, closed := first.snapshot(); !closed {
		t.Fatalf("previous link leaked")
	}
	if st := c.Status(); st.Host != "b" {
		t.Fatalf("expected host b, got %+v", st)
	}
}

func Test_RejectedReconnectDropsPreviousLink(t *testing.T) {
	cases := []struct {
		name string
		host string
		port int
		want error
	}{
		{"empty host", "", 23, errdefs.ErrInvalidHost},
		{"negative port", "device", -1, errdefs.ErrInvalidPort},
		{"port too high", "device", 70000, errdefs.ErrInvalidPort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(t)
			first := newFakeLink()
			withLinks(c, first)

			if err := c.Connect("device", 23); err != nil {
				t.Fatalf("connect: %v", err)
			}
			if err := c.Connect(tc.host, tc.port); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if c.IsConnected() {
				t.Fatalf("expected disconnected after rejected connect")
			}
			if _, closed := first.snapshot(); !closed {
				t.Fatalf("previous link leaked")
			}
		})
	}
}

func Test_ConnectDialError(t *testing.T) {
	c := newTestController(t)
	c.Dial = func(string, int) (Link, error) { return nil, errors.New("no route to host") }

	err := c.Connect("device", 23)
	if !errors.Is(err, errdefs.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("expected disconnected")
	}
}

func Test_LoginNotConnected(t *testing.T) {
	c := newTestController(t)
	res, err := c.Login("admin", "")
	if !errors.Is(err, errdefs.ErrNotConnected) || res != api.LoginFailed {
		t.Fatalf("expected ErrNotConnected, got %v %v", res, err)
	}
}

func Test_LoginSequence(t *testing.T) {
	c := newTestController(t)
	var slept []time.Duration
	c.Sleep = func(d time.Duration) { slept = append(slept, d) }
	link := newFakeLink(
		framing.Chunk{Data: []byte("Pass")},
		framing.Chunk{Delay: 10 * time.Millisecond, Data: []byte("word: ")},
		framing.Chunk{Data: []byte("READY\r\n")},
	)
	withLinks(c, link)

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := c.Login("admin", "secret")
	if err != nil || res != api.LoginConfirmed {
		t.Fatalf("expected confirmed, got %v %v", res, err)
	}

	sent, _ := link.snapshot()
	if len(sent) != 2 || sent[0] != "admin\r\n" || sent[1] != "secret\r\n" {
		t.Fatalf("unexpected wire sequence %q", sent)
	}
	tm := testTimings()
	if len(slept) != 2 || slept[0] != tm.UserSettle || slept[1] != tm.PasswordSettle {
		t.Fatalf("unexpected settle waits %v", slept)
	}
}

func Test_LoginNoReplyIsUnconfirmed(t *testing.T) {
	c := newTestController(t)
	c.Sleep = func(time.Duration) {}
	withLinks(c, newFakeLink(framing.Chunk{Data: []byte("Password:")}))

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := c.Login("admin", "secret")
	if err != nil || res != api.LoginUnconfirmed {
		t.Fatalf("expected unconfirmed, got %v %v", res, err)
	}
	if st := c.Status(); st.State != api.StateAuthenticated || st.Login != "unconfirmed" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func Test_ExchangeTimingsAndTimeout(t *testing.T) {
	c := newTestController(t)
	var slept []time.Duration
	c.Sleep = func(d time.Duration) { slept = append(slept, d) }
	link := newFakeLink()
	withLinks(c, link)

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}

	text, err := c.Exchange("GF", 0)
	if err != nil || text != "" {
		t.Fatalf("silent device must give empty text and no error, got %q %v", text, err)
	}

	tm := testTimings()
	if len(slept) != 1 || slept[0] != tm.CommandSettle {
		t.Fatalf("default settle not applied: %v", slept)
	}
	link.mu.Lock()
	timeouts := append([]time.Duration(nil), link.timeouts...)
	link.mu.Unlock()
	if len(timeouts) != 1 || timeouts[0] != tm.CommandSettle+tm.CommandGrace {
		t.Fatalf("expected one read bounded by settle+grace, got %v", timeouts)
	}
	if sent, _ := link.snapshot(); len(sent) != 1 || sent[0] != "GF\r\n" {
		t.Fatalf("unexpected wire data %q", sent)
	}
	if !c.IsConnected() {
		t.Fatalf("a timeout must not drop the connection")
	}
}

func Test_SendFailureTearsDown(t *testing.T) {
	c := newTestController(t)
	link := newFakeLink()
	link.sendErr = errors.New("broken pipe")
	withLinks(c, link)

	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	got := c.SendCommand("GF", 0)
	if !strings.HasPrefix(got, api.TextErrorPrefix) || !strings.Contains(got, "broken pipe") {
		t.Fatalf("unexpected text %q", got)
	}
	if c.IsConnected() {
		t.Fatalf("expected disconnected after send failure")
	}
}

func Test_Receive(t *testing.T) {
	c := newTestController(t)
	if _, ok := c.Receive(64, 10*time.Millisecond); ok {
		t.Fatalf("receive without a connection must report nothing")
	}

	withLinks(c, newFakeLink(framing.Chunk{Data: []byte{'o', 'k', 0xfe}}))
	if err := c.Connect("device", 23); err != nil {
		t.Fatalf("connect: %v", err)
	}
	text, ok := c.Receive(64, 100*time.Millisecond)
	if !ok || !strings.HasPrefix(text, "ok") || !strings.ContainsRune(text, '�') {
		t.Fatalf("unexpected receive %q %v", text, ok)
	}
	if _, ok = c.Receive(64, 20*time.Millisecond); ok {
		t.Fatalf("expected timeout to report nothing")
	}
}
