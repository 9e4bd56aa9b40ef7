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

package env

import (
	"os"

	"github.com/spf13/viper"
)

const Prefix = "INSIGHT"

type Var struct {
	Key        string // e.g. "INSIGHT_HOST"
	ViperKey   string // optional, e.g. "insightctl.device.host"
	Default    string // optional
	HasDefault bool
}

func DefineKV(envName, viperKey string, defaultVal ...string) Var {
	v := Var{Key: Prefix + "_" + envName, ViperKey: viperKey}
	if len(defaultVal) > 0 {
		v.Default = defaultVal[0]
		v.HasDefault = true
	}
	return v
}

func (v Var) EnvKey() string               { return v.Key }
func (v Var) DefaultValue() (string, bool) { return v.Default, v.HasDefault }

// Precedence: viper (if ViperKey set and value present) → OS env → default → "".
func (v Var) ValueOrDefault() string {
	if v.ViperKey != "" && viper.IsSet(v.ViperKey) {
		return viper.GetString(v.ViperKey)
	}
	if val, ok := os.LookupEnv(v.Key); ok {
		return val
	}
	if v.HasDefault {
		return v.Default
	}
	return ""
}

// Lookup reports a value set explicitly through a flag, the environment or
// the config file. Defaults are ignored.
func (v Var) Lookup() (string, bool) {
	if v.ViperKey != "" && viper.IsSet(v.ViperKey) {
		return viper.GetString(v.ViperKey), true
	}
	return os.LookupEnv(v.Key)
}

// Safe if ViperKey is empty: does nothing.
func (v Var) BindEnv() error {
	if v.ViperKey == "" {
		return nil
	}
	return viper.BindEnv(v.ViperKey, v.Key)
}

func (v Var) Set(value string) error { return os.Setenv(v.Key, value) }

func (v *Var) SetDefault(val string) {
	v.Default = val
	v.HasDefault = true
	if v.ViperKey != "" {
		viper.SetDefault(v.ViperKey, val)
	}
}

// ---- Declare statically ----.
var (
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	CONFIG_FILE = DefineKV("CONFIG_FILE", "insightctl.global.configFile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	PROFILES_FILE = DefineKV("PROFILES_FILE", "insightctl.global.profilesFile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	LOG_LEVEL = DefineKV("LOG_LEVEL", "insightctl.global.logLevel", "info")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	LOG_FILE = DefineKV("LOG_FILE", "insightctl.global.logFile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	PROFILE = DefineKV("PROFILE", "insightctl.device.profile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	HOST = DefineKV("HOST", "insightctl.device.host")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	PORT = DefineKV("PORT", "insightctl.device.port", "23")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	PROTOCOL = DefineKV("PROTOCOL", "insightctl.device.protocol", "raw")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	USER = DefineKV("USER", "insightctl.device.user", "admin")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	PASSWORD = DefineKV("PASSWORD", "insightctl.device.password")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	SETTLE = DefineKV("SETTLE", "insightctl.device.settle", "500ms")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	TRACE = DefineKV("TRACE", "insightctl.device.trace")
)

// Simulator.
var (
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	SIM_LISTEN = DefineKV("SIM_LISTEN", "insightsim.listen", "127.0.0.1:2323")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	SIM_USER = DefineKV("SIM_USER", "insightsim.user", "admin")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	SIM_PASSWORD = DefineKV("SIM_PASSWORD", "insightsim.password")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	SIM_LOG_LEVEL = DefineKV("SIM_LOG_LEVEL", "insightsim.logLevel", "info")
)
