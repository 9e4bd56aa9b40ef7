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
	"errors"
	"log/slog"
	"strings"

	"github.com/eminwux/insightctl/internal/logging"
	"github.com/eminwux/insightctl/internal/profile"
	"github.com/spf13/cobra"
)

func AutoCompleteListProfileNames(ctx context.Context, logger *slog.Logger, profilesFile string) ([]string, error) {
	// logger is not set on autocomplete calls
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	profiles, err := profile.LoadProfilesFromPath(ctx, logger, profilesFile)
	if err != nil {
		logger.ErrorContext(ctx, "ListProfiles: failed to load profiles", "path", profilesFile, "error", err)
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, errors.New("no profiles found")
	}

	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Metadata.Name)
	}
	return names, nil
}

// CompleteProfileFlag completes --profile values from the profiles file.
func CompleteProfileFlag(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	logger, _ := logging.FromContext(cmd.Context())

	all, err := AutoCompleteListProfileNames(cmd.Context(), logger, ProfilesFile())
	if err != nil {
		return []string{"__error: cannot list profiles"}, cobra.ShellCompDirectiveNoFileComp
	}
	out := make([]string, 0, len(all))
	for _, n := range all {
		if toComplete == "" || strings.HasPrefix(n, toComplete) {
			out = append(out, n)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
