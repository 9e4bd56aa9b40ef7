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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eminwux/insightctl/internal/env"
	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/spf13/viper"
)

const dirName = ".insightctl"

func baseDir() string {
	base, err := os.UserHomeDir()
	if err != nil {
		// fallback to tmp if home dir cannot be determined
		base = os.TempDir()
	}
	return filepath.Join(base, dirName)
}

func DefaultProfilesFile() string {
	return filepath.Join(baseDir(), "profiles.yaml")
}

func DefaultConfigFile() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// ProfilesFile is the profiles manifest in effect after Load.
func ProfilesFile() string {
	return env.PROFILES_FILE.ValueOrDefault()
}

// Load reads the optional config file and binds every INSIGHT_* variable.
// A missing default config file is not an error; a missing file named with
// --config is.
func Load() error {
	_ = env.CONFIG_FILE.BindEnv()
	if configFile := viper.GetString(env.CONFIG_FILE.ViperKey); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(baseDir())
	}

	_ = env.PROFILES_FILE.BindEnv()
	env.PROFILES_FILE.SetDefault(DefaultProfilesFile())

	_ = env.LOG_LEVEL.BindEnv()
	env.LOG_LEVEL.SetDefault("info")
	_ = env.LOG_FILE.BindEnv()

	for _, v := range []env.Var{
		env.PROFILE, env.HOST, env.PORT, env.PROTOCOL,
		env.USER, env.PASSWORD, env.SETTLE, env.TRACE,
	} {
		if err := v.BindEnv(); err != nil {
			return fmt.Errorf("%w: bind %s: %w", errdefs.ErrConfig, v.EnvKey(), err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: %w", errdefs.ErrConfig, err)
		}
	}
	return nil
}
