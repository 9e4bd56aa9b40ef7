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
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/framing"
	"github.com/eminwux/insightctl/internal/naming"
	"github.com/eminwux/insightctl/internal/transport"
	"github.com/eminwux/insightctl/pkg/api"
)

const (
	MarkerUser     = "User:"
	MarkerPassword = "Password:"

	lineEnd = "\r\n"

	// replySize bounds the single read that follows a command.
	replySize = 4096
	maxPort   = 65535
)

//nolint:gochecknoglobals // fixed protocol heuristics
var loginAccepted = framing.FoldAny(">", "ready", "logged")

// Link is an open device connection.
type Link interface {
	framing.Receiver
	Send(p []byte) error
	Close() error
}

// connected is the only non-idle state. A nil *connected means Disconnected.
type connected struct {
	host     string
	port     int
	link     Link
	since    time.Time
	login    api.LoginResult
	loggedIn bool
}

type Controller struct {
	ctx    context.Context
	logger *slog.Logger
	id     api.ID
	cfg    api.SessionConfig

	// Dial opens the link; replaced in tests.
	Dial func(host string, port int) (Link, error)
	// Sleep implements the settle waits; replaced in tests.
	Sleep func(time.Duration)

	// opMu admits one device operation at a time.
	opMu sync.Mutex

	stateMu sync.RWMutex
	conn    *connected
}

func NewController(ctx context.Context, logger *slog.Logger, cfg api.SessionConfig) *Controller {
	if cfg.Protocol == "" {
		cfg.Protocol = api.ProtocolRaw
	}
	cfg.Timings = cfg.Timings.WithDefaults()

	id := api.ID(naming.RandomID())
	c := &Controller{
		ctx:    ctx,
		logger: logger.With("session", id),
		id:     id,
		cfg:    cfg,
		Sleep:  time.Sleep,
	}
	c.Dial = c.dialTransport
	c.logger.DebugContext(ctx, "session controller created", "protocol", cfg.Protocol)
	return c
}

func (c *Controller) dialTransport(host string, port int) (Link, error) {
	d := &transport.Dialer{
		Timeout:      c.cfg.Timings.Connect,
		WriteTimeout: c.cfg.Timings.Write,
		Protocol:     c.cfg.Protocol,
		UserTimeout:  c.cfg.UserTimeout,
		Trace:        c.cfg.Trace,
		Logger:       c.logger,
	}
	conn, err := d.Dial(host, port)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Controller) Timings() api.Timings { return c.cfg.Timings }

/* ---------- State ---------- */

func (c *Controller) current() *connected {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.conn
}

func (c *Controller) IsConnected() bool {
	return c.current() != nil
}

func (c *Controller) Status() api.SessionStatus {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	st := api.SessionStatus{ID: c.id, State: api.StateDisconnected, Protocol: c.cfg.Protocol}
	if cur := c.conn; cur != nil {
		st.State = api.StateConnected
		st.Host = cur.host
		st.Port = cur.port
		st.ConnectedAt = cur.since
		if cur.loggedIn {
			st.Login = cur.login.String()
			if cur.login.Success() {
				st.State = api.StateAuthenticated
			}
		}
	}
	st.StateName = st.State.String()
	return st
}

// teardown drops the current connection, if any. Close errors are logged.
func (c *Controller) teardown(reason string) {
	c.stateMu.Lock()
	cur := c.conn
	c.conn = nil
	c.stateMu.Unlock()

	if cur == nil {
		return
	}
	if err := cur.link.Close(); err != nil {
		c.logger.WarnContext(c.ctx, "error closing device link", "reason", reason, "err", err)
	}
	c.logger.InfoContext(c.ctx, "disconnected", "host", cur.host, "port", cur.port, "reason", reason)
}

// fail tears cur down after a fatal transport error. A connection that has
// already been replaced is left alone.
func (c *Controller) fail(cur *connected, err error) {
	c.stateMu.RLock()
	same := c.conn == cur
	c.stateMu.RUnlock()
	if !same {
		return
	}
	c.logger.WarnContext(c.ctx, "device link failed", "host", cur.host, "err", err)
	c.teardown(err.Error())
}

func classify(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errdefs.ErrConnectionLost, err)
	}
	return fmt.Errorf("%w: %w", errdefs.ErrReceive, err)
}

func (c *Controller) send(cur *connected, text string) error {
	if err := cur.link.Send([]byte(text)); err != nil {
		c.fail(cur, err)
		return fmt.Errorf("%w: %w", errdefs.ErrSend, err)
	}
	return nil
}

/* ---------- Connection lifecycle ---------- */

// Connect opens a connection to host:port. Port 0 means the default telnet
// port. Any existing connection is closed first, even when host or port is
// rejected, and on failure the session is left Disconnected.
func (c *Controller) Connect(host string, port int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.connect(host, port)
}

func (c *Controller) connect(host string, port int) error {
	c.teardown("reconnect")

	host = strings.TrimSpace(host)
	if host == "" {
		return errdefs.ErrInvalidHost
	}
	if port < 0 || port > maxPort {
		return fmt.Errorf("%w: %d", errdefs.ErrInvalidPort, port)
	}
	if port == 0 {
		port = api.DefaultPort
	}

	c.logger.InfoContext(c.ctx, "connecting", "host", host, "port", port)
	link, err := c.Dial(host, port)
	if err != nil {
		c.logger.WarnContext(c.ctx, "connect failed", "host", host, "port", port, "err", err)
		if errors.Is(err, errdefs.ErrConnect) {
			return err
		}
		return fmt.Errorf("%w: %w", errdefs.ErrConnect, err)
	}

	c.stateMu.Lock()
	c.conn = &connected{host: host, port: port, link: link, since: time.Now()}
	c.stateMu.Unlock()

	c.logger.InfoContext(c.ctx, "connected", "host", host, "port", port)
	return nil
}

// Disconnect is idempotent.
func (c *Controller) Disconnect() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.teardown("disconnect requested")
}

// ConnectAndReceiveInitial connects and collects the greeting banner until
// the user prompt shows up or the banner window closes. A failed connect
// yields the connection-failed sentinel text and an error; a connected
// device that printed no prompt yields whatever it did print.
func (c *Controller) ConnectAndReceiveInitial(host string, port int) (api.Greeting, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.connect(host, port); err != nil {
		return api.Greeting{Text: api.TextConnectionFailed}, err
	}
	cur := c.current()
	t := c.cfg.Timings

	res, err := framing.ReadUntil(cur.link, framing.AnyOf(MarkerUser), t.Banner, t.Chunk)
	g := api.Greeting{Text: res.Text(), Prompted: res.Matched}
	if err != nil {
		c.fail(cur, err)
		return g, classify(err)
	}
	if !res.Matched {
		c.logger.WarnContext(c.ctx, "banner without user prompt", "bytes", len(res.Data), "waited", res.Elapsed)
	}
	c.logger.DebugContext(c.ctx, "banner received", "bytes", len(res.Data), "prompted", res.Matched)
	return g, nil
}

// Login runs the interactive handshake on an open connection: user name,
// wait for the password prompt, password, then one short read scanned for
// an acceptance hint. A reply with no recognisable hint, or no reply at all,
// is reported as LoginUnconfirmed.
func (c *Controller) Login(username, password string) (api.LoginResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	cur := c.current()
	if cur == nil {
		return api.LoginFailed, errdefs.ErrNotConnected
	}
	t := c.cfg.Timings

	c.logger.InfoContext(c.ctx, "logging in", "user", username)
	if err := c.send(cur, username+lineEnd); err != nil {
		return api.LoginFailed, err
	}
	c.Sleep(t.UserSettle)

	res, err := framing.ReadUntil(cur.link, framing.AnyOf(MarkerPassword), t.PasswordPrompt, t.Chunk)
	if err != nil {
		c.fail(cur, err)
		return api.LoginFailed, classify(err)
	}
	if !res.Matched {
		c.setLogin(cur, api.LoginFailed)
		c.logger.WarnContext(c.ctx, "password prompt not received", "waited", res.Elapsed, "got", res.Text())
		return api.LoginFailed, fmt.Errorf("%w within %s", errdefs.ErrPasswordPrompt, t.PasswordPrompt)
	}

	if errS := c.send(cur, password+lineEnd); errS != nil {
		return api.LoginFailed, errS
	}
	c.Sleep(t.PasswordSettle)

	buf := make([]byte, framing.ChunkSize)
	n, err := cur.link.Recv(buf, t.LoginConfirm)
	if err != nil && !framing.IsTimeout(err) {
		c.fail(cur, err)
		return api.LoginFailed, fmt.Errorf("%w: %w", errdefs.ErrLogin, classify(err))
	}
	reply := buf[:n]

	// Only the presence of an acceptance hint is meaningful. Any other reply,
	// rejection texts included, is an unconfirmed success.
	result := api.LoginUnconfirmed
	switch {
	case n == 0:
		c.logger.WarnContext(c.ctx, "no reply after password, assuming success")
	case loginAccepted.Match(reply):
		result = api.LoginConfirmed
	default:
		c.logger.WarnContext(c.ctx, "reply after password has no acceptance hint", "got", framing.Decode(reply))
	}
	c.setLogin(cur, result)

	c.logger.InfoContext(c.ctx, "login finished", "user", username, "result", result)
	return result, nil
}

func (c *Controller) setLogin(cur *connected, r api.LoginResult) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.conn == cur {
		cur.login = r
		cur.loggedIn = true
	}
}

/* ---------- Data exchange ---------- */

// Receive performs one bounded read. It reports false when nothing arrived
// or there is no connection.
func (c *Controller) Receive(maxSize int, timeout time.Duration) (string, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	cur := c.current()
	if cur == nil {
		return "", false
	}
	if maxSize <= 0 {
		maxSize = framing.ChunkSize
	}

	buf := make([]byte, maxSize)
	n, err := cur.link.Recv(buf, timeout)
	if err != nil && !framing.IsTimeout(err) {
		c.fail(cur, err)
	}
	if n == 0 {
		return "", false
	}
	return framing.Decode(buf[:n]), true
}

// Exchange sends one command line, waits settle, then performs exactly one
// read bounded by settle plus the configured grace. A zero settle uses the
// configured default. A silent device yields an empty string and no error.
func (c *Controller) Exchange(command string, settle time.Duration) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	cur := c.current()
	if cur == nil {
		return "", errdefs.ErrNotConnected
	}
	t := c.cfg.Timings
	if settle <= 0 {
		settle = t.CommandSettle
	}

	c.logger.DebugContext(c.ctx, "tx", "cmd", command, "settle", settle)
	if err := c.send(cur, command+lineEnd); err != nil {
		return "", err
	}
	c.Sleep(settle)

	buf := make([]byte, replySize)
	n, err := cur.link.Recv(buf, settle+t.CommandGrace)
	text := framing.Decode(buf[:n])
	if err != nil {
		if framing.IsTimeout(err) {
			c.logger.DebugContext(c.ctx, "rx timeout", "cmd", command)
			return text, nil
		}
		c.fail(cur, err)
		return text, classify(err)
	}

	c.logger.DebugContext(c.ctx, "rx", "cmd", command, "bytes", n)
	return text, nil
}

// SendCommand is Exchange with failures rendered as text an operator can
// read: the not-connected sentinel, or the error sentinel carrying the cause.
func (c *Controller) SendCommand(command string, settle time.Duration) string {
	text, err := c.Exchange(command, settle)
	if err != nil {
		return ErrorText(err)
	}
	return text
}

// ErrorText renders err the way SendCommand does.
func ErrorText(err error) string {
	if errors.Is(err, errdefs.ErrNotConnected) {
		return api.TextNotConnected
	}
	return api.TextErrorPrefix + err.Error() + "]"
}

var (
	_ api.SessionController = (*Controller)(nil)
	_ api.SessionController = (*FakeSessionController)(nil)
)
