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

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		// default if unknown
		return slog.LevelInfo
	}
}

// WithLogger stores a stderr logger, its level var and handler in ctx.
func WithLogger(ctx context.Context, w io.Writer, level string) context.Context {
	levelVar := new(slog.LevelVar)
	levelVar.Set(ParseLevel(level))

	handler := NewReformatHandler(w, levelVar)
	logger := slog.New(handler)

	ctx = context.WithValue(ctx, CtxLogger, logger)
	ctx = context.WithValue(ctx, CtxLevelVar, levelVar)
	ctx = context.WithValue(ctx, CtxHandler, handler)
	return ctx
}

// FromContext returns the logger stored by WithLogger or SetupFileLogger.
func FromContext(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(CtxLogger).(*slog.Logger)
	return logger, ok && logger != nil
}

// SetLevel changes the level of the logger stored in ctx, if any.
func SetLevel(ctx context.Context, level string) {
	if lv, ok := ctx.Value(CtxLevelVar).(*slog.LevelVar); ok && lv != nil {
		lv.Set(ParseLevel(level))
	}
}

// SetupFileLogger redirects the command logger to logfile. The opened file is
// stored under CtxCloser so PostRun can close it.
func SetupFileLogger(cmd *cobra.Command, logfile string, loglevel string) error {
	if cmd == nil || logfile == "" || loglevel == "" {
		return errors.New("cmd, logfile, and loglevel must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logfile), 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = WithLogger(ctx, f, loglevel)
	ctx = context.WithValue(ctx, CtxCloser, f)

	cmd.SetContext(ctx)
	return nil
}
