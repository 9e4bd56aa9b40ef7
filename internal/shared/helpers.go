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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
	"go.yaml.in/yaml/v3"
)

// WriteReport stores report at dst, as YAML when dst ends in .yaml or .yml
// and as indented JSON otherwise. Readers never observe a partial file.
func WriteReport(ctx context.Context, report any, dst string) error {
	var marshaled []byte
	var marshalErr error
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".yaml", ".yml":
		marshaled, marshalErr = yaml.Marshal(report)
	default:
		marshaled, marshalErr = json.MarshalIndent(report, "", "  ")
		marshaled = append(marshaled, '\n')
	}
	if marshalErr != nil {
		return fmt.Errorf("%w: marshal %s: %w", errdefs.ErrWriteReport, dst, marshalErr)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	const filePerm = 0o644
	if writeErr := atomicWriteFile(dst, marshaled, filePerm); writeErr != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrWriteReport, dst, writeErr)
	}
	return nil
}

// atomicWriteFile writes to a temp file in the same dir, fsyncs, then renames.
func atomicWriteFile(dst string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)

	f, createErr := os.CreateTemp(dir, ".report-*.tmp")
	if createErr != nil {
		return createErr
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp) // no-op once renamed
	}()

	if chmodErr := f.Chmod(mode); chmodErr != nil {
		return fmt.Errorf("chmod: %w", chmodErr)
	}
	if _, writeErr := f.Write(data); writeErr != nil {
		return fmt.Errorf("write: %w", writeErr)
	}
	if syncErr := f.Sync(); syncErr != nil {
		return fmt.Errorf("fsync: %w", syncErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("close: %w", closeErr)
	}

	if renameErr := os.Rename(tmp, dst); renameErr != nil {
		return fmt.Errorf("rename: %w", renameErr)
	}
	if d, openErr := os.Open(dir); openErr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
