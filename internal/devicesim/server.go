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

// Package devicesim emulates the native mode telnet port of an In-Sight
// vision controller: greeting banner, user and password prompts, and the
// small command set the client drives.
package devicesim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"golang.org/x/sync/errgroup"
)

const (
	Banner         = "Welcome to In-Sight(R) 2000 Session 0\r\n"
	PromptUser     = "User: "
	PromptPassword = "Password: "
	LoggedIn       = "User Logged In\r\n"
	InvalidLogin   = "Invalid Password\r\n"
)

type Config struct {
	User       string
	Password   string
	Jobs       []string
	CurrentJob string
	Cells      map[string]string

	// SkipPasswordPrompt never sends the password prompt.
	SkipPasswordPrompt bool
	// SilentLogin accepts the password without printing anything.
	SilentLogin bool
	// ResponseDelay is applied before every command reply.
	ResponseDelay time.Duration
	// DropOn closes the connection when this command arrives.
	DropOn string
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	dev    *device

	ln     net.Listener
	g      *errgroup.Group
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
}

func NewServer(logger *slog.Logger, cfg Config) *Server {
	if cfg.User == "" {
		cfg.User = "admin"
	}
	return &Server{cfg: cfg, logger: logger, dev: newDevice(cfg)}
}

// Listen binds addr and starts accepting connections in the background.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrSimulatorListen, addr, err)
	}
	s.ln = ln

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	s.g = g

	g.Go(func() error {
		<-gctx.Done()
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		return ln.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(gctx)
	})

	s.logger.InfoContext(ctx, "simulator listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Addr() *net.TCPAddr {
	addr, _ := s.ln.Addr().(*net.TCPAddr)
	return addr
}

// HostPort is Addr split for session.Connect.
func (s *Server) HostPort() (string, int) {
	a := s.Addr()
	return a.IP.String(), a.Port
}

func (s *Server) Snapshot() Snapshot { return s.dev.snapshot() }

// Close stops accepting, drops every open connection and waits for all
// handlers to return.
func (s *Server) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.Wait()
}

// Wait blocks until the server has stopped.
func (s *Server) Wait() error {
	if s.g == nil {
		return nil
	}
	err := s.g.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%w: %w", errdefs.ErrSimulatorClosed, err)
		}
		s.logger.DebugContext(ctx, "client connected", "remote", conn.RemoteAddr().String())
		s.g.Go(func() error {
			s.serve(ctx, conn)
			return nil
		})
	}
}

// serve runs one client to completion. Connection errors end the client, not
// the server.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	r := bufio.NewReader(conn)
	err := s.session(r, conn)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, errDropped):
		s.logger.DebugContext(ctx, "client gone", "remote", conn.RemoteAddr().String(), "reason", err)
	default:
		s.logger.DebugContext(ctx, "client ended with error", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

var errDropped = errors.New("connection dropped on request")

func (s *Server) session(r *bufio.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, Banner+PromptUser); err != nil {
		return err
	}
	if err := s.login(r, w); err != nil {
		return err
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if s.cfg.DropOn != "" && strings.EqualFold(line, s.cfg.DropOn) {
			return errDropped
		}
		if s.cfg.ResponseDelay > 0 {
			time.Sleep(s.cfg.ResponseDelay)
		}
		if _, err = io.WriteString(w, s.dev.exec(line)); err != nil {
			return err
		}
	}
}

// login loops until the client authenticates. A wrong password re-prompts.
func (s *Server) login(r *bufio.Reader, w io.Writer) error {
	for {
		user, err := readLine(r)
		if err != nil {
			return err
		}
		if s.cfg.SkipPasswordPrompt {
			// Swallow everything; the client must give up on its own.
			_, err = io.Copy(io.Discard, r)
			return err
		}
		if _, err = io.WriteString(w, PromptPassword); err != nil {
			return err
		}
		password, err := readLine(r)
		if err != nil {
			return err
		}

		if user == s.cfg.User && password == s.cfg.Password {
			if !s.cfg.SilentLogin {
				if _, err = io.WriteString(w, LoggedIn); err != nil {
					return err
				}
			}
			return nil
		}
		if _, err = io.WriteString(w, InvalidLogin+PromptUser); err != nil {
			return err
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
