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

package framing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func Test_ReadUntilReturnsAsSoonAsMarkerArrives(t *testing.T) {
	src := NewFakeSource(
		Chunk{Data: []byte("Welcome to In-Sight(R) 2000\r\n")},
		Chunk{Delay: 50 * time.Millisecond, Data: []byte("User: ")},
		Chunk{Delay: time.Second, Data: []byte("never read")},
	)

	res, err := ReadUntil(src, AnyOf("User:"), 2*time.Second, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected Matched=true")
	}
	if res.Elapsed >= 500*time.Millisecond {
		t.Fatalf("expected early return, took %v", res.Elapsed)
	}
	text := res.Text()
	if !strings.Contains(text, "Welcome to In-Sight") || !strings.Contains(text, "User:") {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Contains(text, "never read") {
		t.Fatalf("read past the marker: %q", text)
	}
}

func Test_ReadUntilTimesOutWithPartialData(t *testing.T) {
	src := NewFakeSource(Chunk{Data: []byte("Welcome")})

	maxWait := 300 * time.Millisecond
	res, err := ReadUntil(src, AnyOf("User:"), maxWait, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout must not be an error, got %v", err)
	}
	if res.Matched {
		t.Fatalf("expected Matched=false")
	}
	if got := string(res.Data); got != "Welcome" {
		t.Fatalf("expected partial data %q, got %q", "Welcome", got)
	}
	if res.Elapsed < maxWait {
		t.Fatalf("returned before max wait: %v", res.Elapsed)
	}
	if res.Elapsed > maxWait+500*time.Millisecond {
		t.Fatalf("overshot max wait: %v", res.Elapsed)
	}
	if src.Calls < 2 {
		t.Fatalf("expected several chunked receives, got %d", src.Calls)
	}
}

func Test_ReadUntilMatchesMarkerSplitAcrossChunks(t *testing.T) {
	src := NewFakeSource(
		Chunk{Data: []byte("Us")},
		Chunk{Delay: 10 * time.Millisecond, Data: []byte("er: ")},
	)
	res, err := ReadUntil(src, AnyOf("User:"), time.Second, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected marker spanning two chunks to match, data=%q", res.Data)
	}
}

func Test_ReadUntilStopsOnFatalError(t *testing.T) {
	src := NewFakeSource(Chunk{Data: []byte("partial"), Err: io.EOF})
	res, err := ReadUntil(src, AnyOf("User:"), time.Second, 100*time.Millisecond)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if string(res.Data) != "partial" {
		t.Fatalf("expected partial data to be kept, got %q", res.Data)
	}
}

func Test_ReadUntilZeroWait(t *testing.T) {
	src := NewFakeSource(Chunk{Data: []byte("User:")})
	res, err := ReadUntil(src, AnyOf("User:"), 0, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matched || src.Calls != 0 {
		t.Fatalf("zero max wait must not read, matched=%v calls=%d", res.Matched, src.Calls)
	}
}

func Test_Matchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		input   string
		want    bool
	}{
		{"exact hit", AnyOf("Password:"), "\r\nPassword: ", true},
		{"exact is case sensitive", AnyOf("Password:"), "password:", false},
		{"any of several", AnyOf("User:", "Login:"), "Login: ", true},
		{"empty markers never match", AnyOf(""), "anything", false},
		{"fold prompt", FoldAny(">", "ready", "logged"), "User Logged In\r\n", true},
		{"fold upper", FoldAny("ready"), "READY", true},
		{"fold miss", FoldAny(">", "ready", "logged"), "Invalid Password\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.Match([]byte(tt.input)); got != tt.want {
				t.Fatalf("Match(%q)=%v want %v", tt.input, got, tt.want)
			}
		})
	}
}

func Test_Decode(t *testing.T) {
	if got := Decode(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := Decode([]byte("1\r\nmyjob.job\r\n")); got != "1\r\nmyjob.job\r\n" {
		t.Fatalf("unexpected decode %q", got)
	}
	got := Decode([]byte{'o', 'k', 0xff, '!'})
	if !strings.HasPrefix(got, "ok") || !strings.HasSuffix(got, "!") || !strings.ContainsRune(got, '�') {
		t.Fatalf("invalid byte not replaced: %q", got)
	}
}

func Test_IsTimeout(t *testing.T) {
	if IsTimeout(nil) {
		t.Fatalf("nil is not a timeout")
	}
	if !IsTimeout(os.ErrDeadlineExceeded) {
		t.Fatalf("deadline exceeded is a timeout")
	}
	if !IsTimeout(fmt.Errorf("read: %w", os.ErrDeadlineExceeded)) {
		t.Fatalf("wrapped deadline exceeded is a timeout")
	}
	if IsTimeout(io.EOF) {
		t.Fatalf("EOF is not a timeout")
	}
}
