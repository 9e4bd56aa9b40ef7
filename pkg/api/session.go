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

import (
	"time"
)

// Sentinel texts returned by the text-rendering session operations. They are
// meant to be shown to an operator as-is.
const (
	TextNotConnected     = "[not connected]"
	TextConnectionFailed = "[connection failed]"
	TextErrorPrefix      = "[error: "
)

const DefaultPort = 23

type ID string

type Protocol string

const (
	ProtocolRaw    Protocol = "raw"
	ProtocolTelnet Protocol = "telnet"
)

type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	default:
		return "Unknown"
	}
}

// LoginResult is the outcome of the interactive login handshake.
//
// LoginUnconfirmed means the password was sent and the device did not
// complain, but it did not print anything recognisable either. It counts as
// a success.
type LoginResult int

const (
	LoginFailed LoginResult = iota
	LoginConfirmed
	LoginUnconfirmed
)

func (r LoginResult) Success() bool {
	return r == LoginConfirmed || r == LoginUnconfirmed
}

func (r LoginResult) String() string {
	switch r {
	case LoginFailed:
		return "failed"
	case LoginConfirmed:
		return "confirmed"
	case LoginUnconfirmed:
		return "unconfirmed"
	default:
		return "unknown"
	}
}

// Greeting is what the device printed right after the TCP connection was
// opened. Prompted reports whether the "User:" prompt was part of it.
type Greeting struct {
	Text     string `json:"text"     yaml:"text"`
	Prompted bool   `json:"prompted" yaml:"prompted"`
}

// Timings holds every wait used by the session. Zero fields take the
// defaults from DefaultTimings.
type Timings struct {
	Connect        time.Duration `json:"connect"        yaml:"connect"`
	Write          time.Duration `json:"write"          yaml:"write"`
	Banner         time.Duration `json:"banner"         yaml:"banner"`
	PasswordPrompt time.Duration `json:"passwordPrompt" yaml:"passwordPrompt"`
	Chunk          time.Duration `json:"chunk"          yaml:"chunk"`
	UserSettle     time.Duration `json:"userSettle"     yaml:"userSettle"`
	PasswordSettle time.Duration `json:"passwordSettle" yaml:"passwordSettle"`
	LoginConfirm   time.Duration `json:"loginConfirm"   yaml:"loginConfirm"`
	CommandSettle  time.Duration `json:"commandSettle"  yaml:"commandSettle"`
	CommandGrace   time.Duration `json:"commandGrace"   yaml:"commandGrace"`
}

//nolint:mnd // protocol timings
func DefaultTimings() Timings {
	return Timings{
		Connect:        5 * time.Second,
		Write:          5 * time.Second,
		Banner:         3 * time.Second,
		PasswordPrompt: 3 * time.Second,
		Chunk:          500 * time.Millisecond,
		UserSettle:     500 * time.Millisecond,
		PasswordSettle: time.Second,
		LoginConfirm:   2 * time.Second,
		CommandSettle:  500 * time.Millisecond,
		CommandGrace:   time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimings.
func (t Timings) WithDefaults() Timings {
	d := DefaultTimings()
	if t.Connect <= 0 {
		t.Connect = d.Connect
	}
	if t.Write <= 0 {
		t.Write = d.Write
	}
	if t.Banner <= 0 {
		t.Banner = d.Banner
	}
	if t.PasswordPrompt <= 0 {
		t.PasswordPrompt = d.PasswordPrompt
	}
	if t.Chunk <= 0 {
		t.Chunk = d.Chunk
	}
	if t.UserSettle <= 0 {
		t.UserSettle = d.UserSettle
	}
	if t.PasswordSettle <= 0 {
		t.PasswordSettle = d.PasswordSettle
	}
	if t.LoginConfirm <= 0 {
		t.LoginConfirm = d.LoginConfirm
	}
	if t.CommandSettle <= 0 {
		t.CommandSettle = d.CommandSettle
	}
	if t.CommandGrace <= 0 {
		t.CommandGrace = d.CommandGrace
	}
	return t
}

type SessionConfig struct {
	Protocol Protocol
	Timings  Timings
	// UserTimeout bounds how long unacknowledged data may stay in flight
	// before the kernel drops the connection. Linux only; zero disables it.
	UserTimeout time.Duration
	// Trace dumps every byte exchanged with the device at debug level.
	Trace bool
}

type SessionStatus struct {
	ID          ID           `json:"id"                    yaml:"id"`
	State       SessionState `json:"-"                     yaml:"-"`
	StateName   string       `json:"state"                 yaml:"state"`
	Host        string       `json:"host,omitempty"        yaml:"host,omitempty"`
	Port        int          `json:"port,omitempty"        yaml:"port,omitempty"`
	Protocol    Protocol     `json:"protocol,omitempty"    yaml:"protocol,omitempty"`
	ConnectedAt time.Time    `json:"connectedAt,omitempty" yaml:"connectedAt,omitempty"`
	Login       string       `json:"login,omitempty"       yaml:"login,omitempty"`
}

// SessionController is the device session client. All operations are
// synchronous and at most one runs at a time.
type SessionController interface {
	Connect(host string, port int) error
	Disconnect()
	IsConnected() bool
	Status() SessionStatus

	ConnectAndReceiveInitial(host string, port int) (Greeting, error)
	Login(username, password string) (LoginResult, error)

	Receive(maxSize int, timeout time.Duration) (string, bool)
	Exchange(command string, settle time.Duration) (string, error)
	SendCommand(command string, settle time.Duration) string
}
