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

package shared

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eminwux/insightctl/internal/errdefs"
)

type row struct {
	Cell  string `json:"cell"  yaml:"cell"`
	Judge string `json:"judge" yaml:"judge"`
}

func Test_WriteReportJSON(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "report.json")
	rows := []row{{Cell: "A1", Judge: "OK"}, {Cell: "B2", Judge: "NG"}}

	if err := WriteReport(context.Background(), rows, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var got []row
	if err = json.Unmarshal(b, &got); err != nil {
		t.Fatalf("report is not json: %v\n%s", err, b)
	}
	if len(got) != 2 || got[1].Judge != "NG" {
		t.Fatalf("unexpected rows %+v", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func Test_WriteReportYAML(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "report.yml")
	if err := WriteReport(context.Background(), []row{{Cell: "A1", Judge: "OK"}}, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := os.ReadFile(dst)
	if !strings.Contains(string(b), "cell: A1") {
		t.Fatalf("expected yaml output, got:\n%s", b)
	}
}

func Test_WriteReportErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "report.json")
	if err := WriteReport(context.Background(), []row{}, missing); !errors.Is(err, errdefs.ErrWriteReport) {
		t.Fatalf("expected ErrWriteReport, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(ctx, []row{}, dst); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("report written despite cancelled context")
	}
}
