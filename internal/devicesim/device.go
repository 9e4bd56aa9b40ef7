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

package devicesim

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Native mode result codes.
const (
	codeOK         = "1"
	codeUnknown    = "0"
	codeBadArg     = "-1"
	codeExecFailed = "-2"
)

//nolint:gochecknoglobals // cell address syntax
var cellRe = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,3}$`)

// device is the shared spreadsheet and job state. Every connection sees the
// same device, as on real hardware.
type device struct {
	mu       sync.Mutex
	jobs     []string
	current  string
	online   bool
	values   map[string]string
	triggers int
}

func newDevice(cfg Config) *device {
	jobs := slices.Clone(cfg.Jobs)
	if len(jobs) == 0 {
		jobs = []string{"myjob.job"}
	}
	current := cfg.CurrentJob
	if current == "" {
		current = jobs[0]
	}
	values := make(map[string]string, len(cfg.Cells))
	for k, v := range cfg.Cells {
		values[strings.ToUpper(k)] = v
	}
	return &device{jobs: jobs, current: current, online: true, values: values}
}

func reply(code string, payload ...string) string {
	var b strings.Builder
	b.WriteString(code)
	b.WriteString("\r\n")
	for _, p := range payload {
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	return b.String()
}

// exec runs one native mode command and returns the full reply.
func (d *device) exec(line string) string {
	cmd := strings.TrimSpace(line)
	upper := strings.ToUpper(cmd)

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case upper == "GET FILELIST":
		payload := append([]string{strconv.Itoa(len(d.jobs))}, d.jobs...)
		return reply(codeOK, payload...)

	case upper == "GF":
		return reply(codeOK, d.current)

	case upper == "GO":
		if d.online {
			return reply(codeOK, "1")
		}
		return reply(codeOK, "0")

	case upper == "SW8":
		if !d.online {
			return reply(codeExecFailed)
		}
		d.triggers++
		return reply(codeOK)

	case strings.HasPrefix(upper, "SO"):
		switch strings.TrimSpace(upper[2:]) {
		case "1":
			d.online = true
		case "0":
			d.online = false
		default:
			return reply(codeBadArg)
		}
		return reply(codeOK)

	case strings.HasPrefix(upper, "LF"):
		name := strings.TrimSpace(cmd[2:])
		if name == "" {
			return reply(codeBadArg)
		}
		if !slices.Contains(d.jobs, name) {
			return reply(codeExecFailed)
		}
		d.current = name
		return reply(codeOK)

	case strings.HasPrefix(upper, "GV"):
		cell := strings.TrimSpace(upper[2:])
		if !cellRe.MatchString(cell) {
			return reply(codeBadArg)
		}
		v, ok := d.values[cell]
		if !ok {
			v = "0"
		}
		return reply(codeOK, v)

	case strings.HasPrefix(upper, "SI"), strings.HasPrefix(upper, "SF"), strings.HasPrefix(upper, "SS"):
		return d.set(upper[:2], strings.TrimSpace(cmd[2:]))
	}

	return reply(codeUnknown)
}

func (d *device) set(kind, args string) string {
	cell, value, ok := strings.Cut(args, " ")
	cell = strings.ToUpper(strings.TrimSpace(cell))
	value = strings.TrimSpace(value)
	if !ok || !cellRe.MatchString(cell) {
		return reply(codeBadArg)
	}

	switch kind {
	case "SI":
		n, err := strconv.Atoi(value)
		if err != nil {
			return reply(codeBadArg)
		}
		value = strconv.Itoa(n)
	case "SF":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return reply(codeBadArg)
		}
		value = fmt.Sprintf("%.3f", f)
	case "SS":
		value = strings.Trim(value, `"`)
	}
	d.values[cell] = value
	return reply(codeOK)
}

// Snapshot is a copy of the device state, for tests and the simulator log.
type Snapshot struct {
	CurrentJob string
	Online     bool
	Triggers   int
	Cells      map[string]string
}

func (d *device) snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	cells := make(map[string]string, len(d.values))
	for k, v := range d.values {
		cells[k] = v
	}
	return Snapshot{CurrentJob: d.current, Online: d.online, Triggers: d.triggers, Cells: cells}
}
