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

package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
	"github.com/ziutek/telnet"
)

//nolint:mnd // connect default
const DefaultTimeout = 5 * time.Second

type Dialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
	Protocol     api.Protocol
	UserTimeout  time.Duration
	Trace        bool
	Logger       *slog.Logger
}

// Dial opens a TCP connection to host:port. With ProtocolTelnet the stream is
// wrapped so that IAC option negotiation is answered and stripped.
func (d *Dialer) Dial(host string, port int) (*Conn, error) {
	switch d.Protocol {
	case "", api.ProtocolRaw, api.ProtocolTelnet:
	default:
		return nil, fmt.Errorf("%w: %q", errdefs.ErrInvalidProtocol, d.Protocol)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	nd := net.Dialer{
		Timeout: timeout,
		Control: userTimeoutControl(d.UserTimeout),
	}
	raw, err := nd.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrConnect, addr, err)
	}

	var nc net.Conn = raw
	if d.Trace && d.Logger != nil {
		nc = &LoggingConn{Conn: raw, Logger: d.Logger, Label: addr}
	}

	if d.Protocol == api.ProtocolTelnet {
		tc, errT := telnet.NewConn(nc)
		if errT != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrConnect, addr, errT)
		}
		nc = tc
	}

	return &Conn{nc: nc, addr: addr, writeTimeout: d.WriteTimeout}, nil
}

// Conn is one device connection. It is not safe for concurrent use; the
// session serialises access.
type Conn struct {
	nc           net.Conn
	addr         string
	writeTimeout time.Duration
}

// NewConn wraps an already established connection.
func NewConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	addr := ""
	if ra := nc.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Conn{nc: nc, addr: addr, writeTimeout: writeTimeout}
}

func (c *Conn) Addr() string { return c.addr }

// Recv performs exactly one read bounded by timeout. A non-positive timeout
// polls: it fails with a deadline error without blocking.
func (c *Conn) Recv(buf []byte, timeout time.Duration) (int, error) {
	if err := c.nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	return c.nc.Read(buf)
}

// Send writes all of p, retrying short writes.
func (c *Conn) Send(p []byte) error {
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
		defer func() { _ = c.nc.SetWriteDeadline(time.Time{}) }()
	}

	for len(p) > 0 {
		n, err := c.nc.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
