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

// Package framing recovers message boundaries from a device stream that has
// none. The device never announces how long a reply is, so the only signal is
// a known piece of text (a prompt, a keyword) showing up in what has been
// read so far. ReadUntil keeps reading until such a marker appears or a
// deadline passes. This is a heuristic: a marker can arrive split across
// reads, inside unrelated text, or never.
package framing

import (
	"bytes"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// ChunkSize is the size of a single receive.
const ChunkSize = 1024

// Receiver performs one bounded read. A read that ends because timeout
// elapsed must return an error for which IsTimeout reports true.
type Receiver interface {
	Recv(buf []byte, timeout time.Duration) (int, error)
}

// Matcher decides whether the accumulated buffer is complete.
type Matcher interface {
	Match(buf []byte) bool
}

type anyOf [][]byte

// AnyOf matches when any marker is a byte-exact substring of the buffer.
func AnyOf(markers ...string) Matcher {
	m := make(anyOf, 0, len(markers))
	for _, s := range markers {
		if s != "" {
			m = append(m, []byte(s))
		}
	}
	return m
}

func (m anyOf) Match(buf []byte) bool {
	for _, marker := range m {
		if bytes.Contains(buf, marker) {
			return true
		}
	}
	return false
}

type foldAny [][]byte

// FoldAny matches when any word appears in the buffer, ignoring case.
func FoldAny(words ...string) Matcher {
	m := make(foldAny, 0, len(words))
	for _, w := range words {
		if w != "" {
			m = append(m, []byte(strings.ToLower(w)))
		}
	}
	return m
}

func (m foldAny) Match(buf []byte) bool {
	lower := bytes.ToLower(buf)
	for _, w := range m {
		if bytes.Contains(lower, w) {
			return true
		}
	}
	return false
}

type Result struct {
	Data    []byte
	Matched bool
	Elapsed time.Duration
}

func (r Result) Text() string { return Decode(r.Data) }

// ReadUntil reads chunks from r until m matches the accumulated bytes or
// maxWait elapses. Each receive waits at most chunkTimeout, clamped to what is
// left of maxWait. A chunk that times out is not an error. On overall timeout
// the bytes read so far are returned with Matched=false and a nil error; the
// caller decides what an incomplete reply means.
//
// Any other receive error ends the loop and is returned along with the
// partial data.
func ReadUntil(r Receiver, m Matcher, maxWait, chunkTimeout time.Duration) (Result, error) {
	start := time.Now()
	deadline := start.Add(maxWait)
	buf := make([]byte, ChunkSize)
	var acc []byte

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{Data: acc, Elapsed: time.Since(start)}, nil
		}
		wait := chunkTimeout
		if wait <= 0 || wait > remaining {
			wait = remaining
		}

		n, err := r.Recv(buf, wait)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if m != nil && m.Match(acc) {
				return Result{Data: acc, Matched: true, Elapsed: time.Since(start)}, nil
			}
		}
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			return Result{Data: acc, Elapsed: time.Since(start)}, err
		}
	}
}

// IsTimeout reports whether err is a read or write deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Decode turns device bytes into text. Invalid UTF-8 is replaced with U+FFFD;
// decoding never fails.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
