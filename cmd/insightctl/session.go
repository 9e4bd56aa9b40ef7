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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eminwux/insightctl/cmd/config"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/session"
	"github.com/eminwux/insightctl/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// newSessionController is swapped in tests.
//
//nolint:gochecknoglobals // test seam
var newSessionController = func(ctx context.Context, logger *slog.Logger, d *config.Device) api.SessionController {
	return session.NewController(ctx, logger, api.SessionConfig{
		Protocol: d.Protocol,
		Trace:    d.Trace,
		Timings:  api.Timings{CommandSettle: d.Settle},
	})
}

// deviceSession is an open session together with the device it was opened
// against.
type deviceSession struct {
	api.SessionController

	device   *config.Device
	greeting api.Greeting
	login    api.LoginResult
}

func resolveDevice(cmd *cobra.Command, logger *slog.Logger) (*config.Device, error) {
	d, err := config.ResolveDevice(cmd.Context(), logger)
	if err != nil {
		return nil, err
	}
	if viper.GetBool(askPasswordKey) {
		pw, errPw := promptPassword(os.Stdin, cmd.ErrOrStderr())
		if errPw != nil {
			return nil, errPw
		}
		d.Password = pw
	}
	return d, nil
}

// openSession connects to the resolved device and, when login is set, runs
// the login handshake. The caller owns the returned session and must
// Disconnect it.
func openSession(cmd *cobra.Command, logger *slog.Logger, login bool) (*deviceSession, error) {
	d, err := resolveDevice(cmd, logger)
	if err != nil {
		return nil, err
	}

	ds := &deviceSession{
		SessionController: newSessionController(cmd.Context(), logger, d),
		device:            d,
	}

	ds.greeting, err = ds.ConnectAndReceiveInitial(d.Host, d.Port)
	if err != nil {
		ds.Disconnect()
		return nil, err
	}
	if !ds.greeting.Prompted {
		logger.WarnContext(cmd.Context(), "no user prompt in greeting", "host", d.Host, "port", d.Port)
	}
	if !login {
		return ds, nil
	}

	ds.login, err = ds.Login(d.User, d.Password)
	if err != nil {
		ds.Disconnect()
		return nil, err
	}
	logger.InfoContext(cmd.Context(), "logged in", "host", d.Host, "user", d.User, "result", ds.login)
	return ds, nil
}

// promptPassword reads a password from the terminal in without echo.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", errdefs.ErrNoTerminal
	}
	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
