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
	"os"
	"sync"
	"time"
)

// Chunk is one scripted delivery of a FakeSource. It becomes readable Delay
// after the previous chunk was consumed (or after the first Recv for the
// first chunk). Err, if set, is returned together with Data.
type Chunk struct {
	Delay time.Duration
	Data  []byte
	Err   error
}

// FakeSource is an in-memory Receiver that drips scripted chunks. When the
// script is exhausted every Recv waits for its full timeout and reports a
// deadline error, like a silent device.
type FakeSource struct {
	mu      sync.Mutex
	chunks  []Chunk
	readyAt time.Time
	armed   bool

	Calls int
}

func NewFakeSource(chunks ...Chunk) *FakeSource {
	return &FakeSource{chunks: chunks}
}

func (s *FakeSource) Recv(buf []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++

	now := time.Now()
	if len(s.chunks) == 0 {
		time.Sleep(timeout)
		return 0, os.ErrDeadlineExceeded
	}

	if !s.armed {
		s.readyAt = now.Add(s.chunks[0].Delay)
		s.armed = true
	}

	wait := s.readyAt.Sub(now)
	if wait > timeout {
		time.Sleep(timeout)
		return 0, os.ErrDeadlineExceeded
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	head := &s.chunks[0]
	n := copy(buf, head.Data)
	if n < len(head.Data) {
		head.Data = head.Data[n:]
		return n, nil
	}

	err := head.Err
	s.chunks = s.chunks[1:]
	if len(s.chunks) > 0 {
		s.readyAt = time.Now().Add(s.chunks[0].Delay)
	}
	return n, err
}
