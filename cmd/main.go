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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eminwux/insightctl/cmd/insightctl"
	"github.com/eminwux/insightctl/cmd/insightsim"
	"github.com/eminwux/insightctl/internal/logging"
	"github.com/spf13/cobra"
)

type rootFactory func() *cobra.Command

func execRoot(root *cobra.Command) int {
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func runWithFactory(ctx context.Context, factory rootFactory) int {
	root := factory()
	root.SetContext(ctx)
	return execRoot(root)
}

func main() {
	ctx := logging.WithLogger(context.Background(), os.Stderr, "info")

	// Select which subtree to run based on the executable name
	exe := strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")

	factories := map[string]rootFactory{
		"insightctl": insightctl.NewInsightctlRootCmd,
		"insightsim": insightsim.NewInsightsimRootCmd,
	}

	if factory, ok := factories[exe]; ok {
		os.Exit(runWithFactory(ctx, factory))
	}

	// INSIGHT_DEBUG_MODE picks the subtree when the binary has another name,
	// e.g. when run from an IDE or with go run.
	debug := os.Getenv("INSIGHT_DEBUG_MODE")
	if factory, ok := factories[debug]; ok {
		os.Exit(runWithFactory(ctx, factory))
	}

	fmt.Fprintf(os.Stderr, "unknown entry command: %s (link the binary as insightctl or insightsim)\n", exe)
	os.Exit(1)
}
