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

package profile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
)

const profilesYAML = `apiVersion: insightctl/v1beta1
kind: DeviceProfile
metadata:
  name: line1
  labels:
    station: "10"
spec:
  host: 192.168.0.10
  username: admin
  password: secret
  settle: 750ms
  parameters:
    - cell: C12
      item: Exposure
      command: GVC12
    - cell: D4
      item: Threshold
      command: GVD4
---
# empty document
---
apiVersion: insightctl/v1beta1
kind: SomethingElse
metadata:
  name: ignored
---
apiVersion: insightctl/v1beta1
kind: DeviceProfile
metadata:
  name: line2
spec:
  host: cam2.local
  port: 2323
  protocol: telnet
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func Test_LoadProfilesFromReader(t *testing.T) {
	profiles, err := LoadProfilesFromReader(testLogger(), strings.NewReader(profilesYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	p := profiles[0]
	if p.Metadata.Name != "line1" || p.Spec.Host != "192.168.0.10" || p.Spec.Settle != 750*time.Millisecond {
		t.Fatalf("unexpected profile %+v", p)
	}
	if len(p.Spec.Parameters) != 2 || p.Spec.Parameters[1].Command != "GVD4" {
		t.Fatalf("unexpected parameters %+v", p.Spec.Parameters)
	}
	if profiles[1].Spec.Protocol != api.ProtocolTelnet || profiles[1].Spec.Port != 2323 {
		t.Fatalf("unexpected second profile %+v", profiles[1])
	}
}

func Test_LoadProfilesFromReaderBadYAML(t *testing.T) {
	_, err := LoadProfilesFromReader(testLogger(), strings.NewReader("apiVersion: [unterminated"))
	if !errors.Is(err, errdefs.ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func Test_FindProfileByName(t *testing.T) {
	path := writeProfiles(t, profilesYAML)

	p, err := FindProfileByName(context.Background(), testLogger(), path, "line2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Spec.Host != "cam2.local" {
		t.Fatalf("unexpected host %q", p.Spec.Host)
	}

	_, err = FindProfileByName(context.Background(), testLogger(), path, "nope")
	if !errors.Is(err, errdefs.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	_, err = FindProfileByName(context.Background(), testLogger(), filepath.Join(t.TempDir(), "missing.yaml"), "x")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func Test_Validate(t *testing.T) {
	valid := func() *api.DeviceProfileDoc {
		return &api.DeviceProfileDoc{
			APIVersion: api.APIVersionV1Beta1,
			Kind:       api.KindDeviceProfile,
			Metadata:   api.DeviceProfileMetadata{Name: "x"},
			Spec:       api.DeviceProfileSpec{Host: "cam"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(p *api.DeviceProfileDoc)
		wantErr bool
	}{
		{"valid", func(*api.DeviceProfileDoc) {}, false},
		{"bad version", func(p *api.DeviceProfileDoc) { p.APIVersion = "v0" }, true},
		{"missing host", func(p *api.DeviceProfileDoc) { p.Spec.Host = " " }, true},
		{"bad port", func(p *api.DeviceProfileDoc) { p.Spec.Port = 70000 }, true},
		{"bad protocol", func(p *api.DeviceProfileDoc) { p.Spec.Protocol = "ssh" }, true},
		{"negative settle", func(p *api.DeviceProfileDoc) { p.Spec.Settle = -time.Second }, true},
		{"parameter without command", func(p *api.DeviceProfileDoc) {
			p.Spec.Parameters = []api.ParameterSpec{{Cell: "A1", Item: "x"}}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := Validate(p)
			if tt.wantErr && !errors.Is(err, errdefs.ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func Test_PrintProfilesTable(t *testing.T) {
	profiles, err := LoadProfilesFromReader(testLogger(), strings.NewReader(profilesYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err = PrintProfilesTable(&buf, profiles); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "line1", "192.168.0.10:23", "raw", "cam2.local:2323", "telnet", "LABELS", "station=10", "none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err = PrintProfilesTable(&buf, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "no profiles found") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}
