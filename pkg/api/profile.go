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

package api

import "time"

// apiVersion: insightctl/v1beta1
// kind: DeviceProfile

type (
	Version string
	Kind    string
)

const (
	APIVersionV1Beta1 Version = "insightctl/v1beta1"
	KindDeviceProfile Kind    = "DeviceProfile"
)

// DeviceProfileDoc models one YAML document containing a DeviceProfile.
type DeviceProfileDoc struct {
	APIVersion Version               `json:"apiVersion" yaml:"apiVersion"`
	Kind       Kind                  `json:"kind"       yaml:"kind"`
	Metadata   DeviceProfileMetadata `json:"metadata"   yaml:"metadata"`
	Spec       DeviceProfileSpec     `json:"spec"       yaml:"spec"`
}

type DeviceProfileMetadata struct {
	Name        string            `json:"name"                  yaml:"name"`
	Labels      map[string]string `json:"labels,omitempty"      yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

type DeviceProfileSpec struct {
	Host       string          `json:"host"                 yaml:"host"`
	Port       int             `json:"port,omitempty"       yaml:"port,omitempty"`
	Protocol   Protocol        `json:"protocol,omitempty"   yaml:"protocol,omitempty"`
	Username   string          `json:"username,omitempty"   yaml:"username,omitempty"`
	Password   string          `json:"password,omitempty"   yaml:"password,omitempty"`
	Settle     time.Duration   `json:"settle,omitempty"     yaml:"settle,omitempty"`
	Parameters []ParameterSpec `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ParameterSpec is one row of the parameter table: a spreadsheet cell, a
// human label and the native-mode command that reads it.
type ParameterSpec struct {
	Cell    string `json:"cell"    yaml:"cell"`
	Item    string `json:"item"    yaml:"item"`
	Command string `json:"command" yaml:"command"`
}
