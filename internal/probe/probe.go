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

// Package probe checks many controllers at once. Every target gets its own
// session; sessions are never shared between goroutines.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
	"golang.org/x/sync/errgroup"
)

// WelcomeText is how In-Sight firmware opens its banner.
const WelcomeText = "Welcome to In-Sight"

const DefaultLimit = 8

type Target struct {
	Name string `json:"name"           yaml:"name"`
	Host string `json:"host"           yaml:"host"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type Report struct {
	Target    Target        `json:"target"          yaml:"target"`
	Reachable bool          `json:"reachable"       yaml:"reachable"`
	Prompted  bool          `json:"prompted"        yaml:"prompted"`
	Welcome   bool          `json:"welcome"         yaml:"welcome"`
	Latency   time.Duration `json:"latency"         yaml:"latency"`
	Banner    string        `json:"banner"          yaml:"banner"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// SessionFactory builds a fresh session for one target.
type SessionFactory func(t Target) api.SessionController

// Run greets every target with at most limit sessions open at a time and
// returns one report per target, in input order. A failing target never
// stops the others.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	targets []Target,
	newSession SessionFactory,
	limit int,
) []Report {
	if limit <= 0 {
		limit = DefaultLimit
	}
	reports := make([]Report, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			reports[i] = probeOne(gctx, logger, t, newSession)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// connectSucceeded reports whether err came after the TCP connection was
// established, i.e. while reading the banner.
func connectSucceeded(err error) bool {
	return !errors.Is(err, errdefs.ErrConnect) &&
		!errors.Is(err, errdefs.ErrInvalidHost) &&
		!errors.Is(err, errdefs.ErrInvalidPort)
}

func probeOne(ctx context.Context, logger *slog.Logger, t Target, newSession SessionFactory) Report {
	r := Report{Target: t}
	if err := ctx.Err(); err != nil {
		r.Error = fmt.Errorf("%w: %w", errdefs.ErrContextDone, err).Error()
		return r
	}

	s := newSession(t)
	defer s.Disconnect()

	start := time.Now()
	g, err := s.ConnectAndReceiveInitial(t.Host, t.Port)
	r.Latency = time.Since(start)
	r.Banner = g.Text
	if err != nil {
		logger.WarnContext(ctx, "probe failed", "target", t.Name, "host", t.Host, "err", err)
		r.Reachable = connectSucceeded(err)
		r.Error = err.Error()
		return r
	}
	r.Reachable = true
	r.Prompted = g.Prompted
	r.Welcome = strings.Contains(g.Text, WelcomeText)
	logger.InfoContext(ctx, "probe finished", "target", t.Name, "welcome", r.Welcome, "latency", r.Latency)
	return r
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// PrintReports renders reports as a table.
func PrintReports(w io.Writer, reports []Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(reports) == 0 {
		fmt.Fprintln(tw, "no targets")
		return tw.Flush()
	}
	fmt.Fprintln(tw, "NAME\tADDRESS\tREACHABLE\tWELCOME\tPROMPT\tLATENCY\tERROR")
	for _, r := range reports {
		port := r.Target.Port
		if port == 0 {
			port = api.DefaultPort
		}
		fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Target.Name,
			r.Target.Host,
			port,
			yesNo(r.Reachable),
			yesNo(r.Welcome),
			yesNo(r.Prompted),
			r.Latency.Round(time.Millisecond),
			r.Error,
		)
	}
	return tw.Flush()
}
