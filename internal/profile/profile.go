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

// Package profile loads device profiles: named In-Sight controllers with
// their address, credentials and parameter table.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
	"gopkg.in/yaml.v3"
)

// LoadProfilesFromPath reads a multi-document YAML file.
func LoadProfilesFromPath(ctx context.Context, logger *slog.Logger, path string) ([]api.DeviceProfileDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file %q: %w", path, err)
	}
	defer f.Close()
	logger.DebugContext(ctx, "loading profiles", "file", path)
	return LoadProfilesFromReader(logger, f)
}

// LoadProfilesFromReader decodes every DeviceProfile document in r. Documents
// without a name, apiVersion or kind are skipped.
func LoadProfilesFromReader(logger *slog.Logger, r io.Reader) ([]api.DeviceProfileDoc, error) {
	dec := yaml.NewDecoder(r)
	var out []api.DeviceProfileDoc
	for {
		var p api.DeviceProfileDoc
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: decode: %w", errdefs.ErrInvalidProfile, err)
		}
		if p.Metadata.Name == "" || p.APIVersion == "" || p.Kind == "" {
			logger.Debug("skipping empty/invalid profile document", "name", p.Metadata.Name)
			continue
		}
		if p.Kind != api.KindDeviceProfile {
			logger.Debug("skipping document of another kind", "name", p.Metadata.Name, "kind", p.Kind)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func FindProfileByName(
	ctx context.Context,
	logger *slog.Logger,
	path, name string,
) (*api.DeviceProfileDoc, error) {
	profiles, err := LoadProfilesFromPath(ctx, logger, path)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.Metadata.Name == name {
			if errV := Validate(&p); errV != nil {
				return nil, errV
			}
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", errdefs.ErrProfileNotFound, name, path)
}

// Validate checks that a profile can drive a session.
func Validate(p *api.DeviceProfileDoc) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", errdefs.ErrInvalidProfile)
	}
	if p.APIVersion != api.APIVersionV1Beta1 {
		return fmt.Errorf("%w: %q: apiVersion %q (expected %q)",
			errdefs.ErrInvalidProfile, p.Metadata.Name, p.APIVersion, api.APIVersionV1Beta1)
	}
	if strings.TrimSpace(p.Spec.Host) == "" {
		return fmt.Errorf("%w: %q: spec.host is required", errdefs.ErrInvalidProfile, p.Metadata.Name)
	}
	if p.Spec.Port < 0 || p.Spec.Port > 65535 {
		return fmt.Errorf("%w: %q: spec.port %d", errdefs.ErrInvalidProfile, p.Metadata.Name, p.Spec.Port)
	}
	switch p.Spec.Protocol {
	case "", api.ProtocolRaw, api.ProtocolTelnet:
	default:
		return fmt.Errorf("%w: %q: spec.protocol %q", errdefs.ErrInvalidProfile, p.Metadata.Name, p.Spec.Protocol)
	}
	if p.Spec.Settle < 0 {
		return fmt.Errorf("%w: %q: spec.settle is negative", errdefs.ErrInvalidProfile, p.Metadata.Name)
	}
	for i, prm := range p.Spec.Parameters {
		if strings.TrimSpace(prm.Command) == "" {
			return fmt.Errorf("%w: %q: parameters[%d].command is required",
				errdefs.ErrInvalidProfile, p.Metadata.Name, i)
		}
	}
	return nil
}

// PrintProfilesTable renders one row per profile.
func PrintProfilesTable(w io.Writer, profiles []api.DeviceProfileDoc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(profiles) == 0 {
		fmt.Fprintln(tw, "no profiles found")
		return tw.Flush()
	}
	fmt.Fprintln(tw, "NAME\tADDRESS\tPROTOCOL\tUSER\tPARAMS\tLABELS")
	for _, p := range profiles {
		port := p.Spec.Port
		if port == 0 {
			port = api.DefaultPort
		}
		proto := p.Spec.Protocol
		if proto == "" {
			proto = api.ProtocolRaw
		}
		fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\t%d\t%s\n",
			p.Metadata.Name,
			p.Spec.Host,
			port,
			proto,
			p.Spec.Username,
			len(p.Spec.Parameters),
			joinLabels(p.Metadata.Labels),
		)
	}
	return tw.Flush()
}

func joinLabels(m map[string]string) string {
	if len(m) == 0 {
		return "none"
	}
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	parts := make([]string, 0, len(ks))
	for _, k := range ks {
		parts = append(parts, fmt.Sprintf("%s=%s", k, m[k]))
	}
	return strings.Join(parts, ",")
}

// ScanAndPrintProfiles loads path and prints the table to w.
func ScanAndPrintProfiles(ctx context.Context, logger *slog.Logger, path string, w io.Writer) error {
	profiles, err := LoadProfilesFromPath(ctx, logger, path)
	if err != nil {
		return err
	}
	return PrintProfilesTable(w, profiles)
}
