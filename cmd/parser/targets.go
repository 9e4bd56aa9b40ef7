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

package parser

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
)

// ParseTarget splits "host" or "host:port". A missing port is returned as 0.
func ParseTarget(s string) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("%w: empty target", errdefs.ErrInvalidArgument)
	}
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		// no port present
		return strings.Trim(s, "[]"), 0, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: %q has no host", errdefs.ErrInvalidArgument, s)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %w: %q", errdefs.ErrInvalidArgument, errdefs.ErrInvalidPort, portText)
	}
	return host, port, nil
}

type ValueType string

const (
	TypeAuto   ValueType = "auto"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeString ValueType = "string"
)

// CellValue is a typed value for one of the SI/SF/SS commands.
type CellValue struct {
	Type   ValueType
	Int    int
	Float  float64
	String string
}

// ParseCellValue converts raw according to t. TypeAuto picks int, then float,
// then string.
func ParseCellValue(raw string, t ValueType) (CellValue, error) {
	switch t {
	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return CellValue{}, fmt.Errorf("%w: %q is not an integer", errdefs.ErrInvalidArgument, raw)
		}
		return CellValue{Type: TypeInt, Int: n}, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return CellValue{}, fmt.Errorf("%w: %q is not a number", errdefs.ErrInvalidArgument, raw)
		}
		return CellValue{Type: TypeFloat, Float: f}, nil
	case TypeString:
		return CellValue{Type: TypeString, String: raw}, nil
	case TypeAuto, "":
		if v, err := ParseCellValue(raw, TypeInt); err == nil {
			return v, nil
		}
		if v, err := ParseCellValue(raw, TypeFloat); err == nil {
			return v, nil
		}
		return CellValue{Type: TypeString, String: raw}, nil
	default:
		return CellValue{}, fmt.Errorf("%w: value type %q (use auto|int|float|string)", errdefs.ErrInvalidFlag, t)
	}
}
