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

package config

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/eminwux/insightctl/internal/env"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/internal/profile"
	"github.com/eminwux/insightctl/pkg/api"
)

// Device is everything a command needs to open a session.
type Device struct {
	Profile    string
	Host       string
	Port       int
	Protocol   api.Protocol
	User       string
	Password   string
	Settle     time.Duration
	Trace      bool
	Parameters []api.ParameterSpec
}

// pick applies flag/env/config first, then the profile value, then the
// built-in default.
func pick(v env.Var, fromProfile string) string {
	if val, ok := v.Lookup(); ok && val != "" {
		return val
	}
	if fromProfile != "" {
		return fromProfile
	}
	def, _ := v.DefaultValue()
	return def
}

// ResolveDevice merges flags, environment, config file and the selected
// profile into a Device.
func ResolveDevice(ctx context.Context, logger *slog.Logger) (*Device, error) {
	d := &Device{}
	var spec api.DeviceProfileSpec

	if name, ok := env.PROFILE.Lookup(); ok && name != "" {
		p, err := profile.FindProfileByName(ctx, logger, ProfilesFile(), name)
		if err != nil {
			return nil, err
		}
		spec = p.Spec
		d.Profile = name
		d.Parameters = spec.Parameters
	}

	d.Host = strings.TrimSpace(pick(env.HOST, spec.Host))
	if d.Host == "" {
		return nil, fmt.Errorf("%w: %w (use --host or --profile)", errdefs.ErrConfig, errdefs.ErrInvalidHost)
	}

	profilePort := ""
	if spec.Port != 0 {
		profilePort = strconv.Itoa(spec.Port)
	}
	portText := pick(env.PORT, profilePort)
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %w: %q", errdefs.ErrConfig, errdefs.ErrInvalidPort, portText)
	}
	d.Port = port

	d.Protocol = api.Protocol(strings.ToLower(pick(env.PROTOCOL, string(spec.Protocol))))
	switch d.Protocol {
	case api.ProtocolRaw, api.ProtocolTelnet:
	default:
		return nil, fmt.Errorf("%w: %w: %q", errdefs.ErrConfig, errdefs.ErrInvalidProtocol, d.Protocol)
	}

	d.User = pick(env.USER, spec.Username)
	d.Password = pick(env.PASSWORD, spec.Password)

	profileSettle := ""
	if spec.Settle > 0 {
		profileSettle = spec.Settle.String()
	}
	settleText := pick(env.SETTLE, profileSettle)
	d.Settle, err = time.ParseDuration(settleText)
	if err != nil || d.Settle < 0 {
		return nil, fmt.Errorf("%w: settle %q", errdefs.ErrConfig, settleText)
	}

	if traceText := pick(env.TRACE, ""); traceText != "" {
		d.Trace, err = strconv.ParseBool(traceText)
		if err != nil {
			return nil, fmt.Errorf("%w: trace %q", errdefs.ErrConfig, traceText)
		}
	}

	logger.DebugContext(ctx, "device resolved",
		"profile", d.Profile,
		"host", d.Host,
		"port", d.Port,
		"protocol", d.Protocol,
		"user", d.User,
		"settle", d.Settle,
		"trace", d.Trace,
	)
	return d, nil
}
