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
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

const (
	formatHuman = ""
	formatRaw   = "raw"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func addOutputFlag(cmd *cobra.Command, formats ...string) {
	cmd.Flags().StringP("output", "o", "", fmt.Sprintf("Output format: %v (default: human-readable)", formats))
	_ = cmd.RegisterFlagCompletionFunc(
		"output",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return formats, cobra.ShellCompDirectiveNoFileComp
		},
	)
}

// outputFormat returns the -o value after checking it against allowed.
func outputFormat(cmd *cobra.Command, allowed ...string) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if format == formatHuman || slices.Contains(allowed, format) {
		return format, nil
	}
	return "", fmt.Errorf("%w: %q (use %v)", errdefs.ErrUnsupportedOutput, format, allowed)
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("%w: %q (use json|yaml)", errdefs.ErrUnsupportedOutput, format)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
