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

// Package insight speaks the In-Sight native mode command set on top of a
// session. Replies are a result code line followed by payload lines; this is
// a convention of the device, not something the session enforces.
package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
)

type Code int

const (
	CodeSuccess         Code = 1
	CodeUnrecognized    Code = 0
	CodeInvalidArgument Code = -1
	CodeFailed          Code = -2
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeUnrecognized:
		return "unrecognized command"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeFailed:
		return "execution failed"
	default:
		return "unknown result"
	}
}

type Result struct {
	Code    Code     `json:"code"              yaml:"code"`
	Status  string   `json:"status"            yaml:"status"`
	Payload []string `json:"payload,omitempty" yaml:"payload,omitempty"`
	Raw     string   `json:"raw"               yaml:"raw"`
}

func (r *Result) OK() bool { return r.Code == CodeSuccess }

// Err is nil for a successful reply and wraps ErrCommandFailed otherwise.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: code %d (%s)", errdefs.ErrCommandFailed, r.Code, r.Code)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ParseResponse splits a raw reply into result code and payload lines. Blank
// lines are dropped.
func ParseResponse(raw string) (*Result, error) {
	lines := splitLines(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty reply", errdefs.ErrMalformedResponse)
	}
	n, err := strconv.Atoi(lines[0])
	if err != nil {
		return nil, fmt.Errorf("%w: result code %q", errdefs.ErrMalformedResponse, lines[0])
	}
	code := Code(n)
	res := &Result{Code: code, Status: code.String(), Raw: raw}
	if len(lines) > 1 {
		res.Payload = lines[1:]
	}
	return res, nil
}

//nolint:gochecknoglobals // fixed replacement table
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// CompactText folds a reply onto one line for tables and logs. Every line
// break becomes one space; spacing inside the payload is kept.
func CompactText(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

const (
	JudgeOK = "OK"
	JudgeNG = "NG"
)

// Judge grades a reply as rendered by session.SendCommand. Session failure
// texts, silence and a failing result code are NG.
func Judge(text string) string {
	t := strings.TrimSpace(text)
	switch {
	case t == "",
		t == api.TextNotConnected,
		t == api.TextConnectionFailed,
		strings.HasPrefix(t, api.TextErrorPrefix):
		return JudgeNG
	}
	if res, err := ParseResponse(t); err == nil && !res.OK() {
		return JudgeNG
	}
	return JudgeOK
}
