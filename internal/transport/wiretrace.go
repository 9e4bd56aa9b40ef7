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

package transport

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

const dumpWidth = 16

// LogBytes writes a hex dump of data with a printable pane, plus a one-line
// escaped rendering that survives JSON handlers.
func LogBytes(logger *slog.Logger, label string, data []byte) {
	if logger == nil {
		return
	}
	if len(data) == 0 {
		logger.Debug(label, "len", 0)
		return
	}
	logger.Debug(label+"\n"+hexDump(data), "len", len(data), "text", escapeText(data))
}

func hexDump(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += dumpWidth {
		end := min(off+dumpWidth, len(data))
		row := data[off:end]

		fmt.Fprintf(&b, "%04X ", off)
		for i := range dumpWidth {
			if i < len(row) {
				fmt.Fprintf(&b, " %02X", row[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("  |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// escapeText renders CR and LF visibly; the device protocol is line based
// and the line endings are the interesting part.
func escapeText(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		switch {
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\n':
			b.WriteString(`\n`)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}

// LoggingConn dumps every byte crossing the wrapped connection at debug
// level.
type LoggingConn struct {
	net.Conn
	*slog.Logger

	Label string
}

func (l *LoggingConn) Read(p []byte) (int, error) {
	n, err := l.Conn.Read(p)
	if n > 0 {
		LogBytes(l.Logger, l.Label+" <- device", p[:n])
	}
	return n, err
}

func (l *LoggingConn) Write(p []byte) (int, error) {
	n, err := l.Conn.Write(p)
	if n > 0 {
		LogBytes(l.Logger, l.Label+" -> device", p[:n])
	}
	return n, err
}
