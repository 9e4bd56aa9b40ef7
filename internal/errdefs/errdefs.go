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

package errdefs

import "errors"

var (
	ErrFuncNotSet         = errors.New("function not set")
	ErrInvalidHost        = errors.New("host must not be empty")
	ErrInvalidPort        = errors.New("port must be between 0 and 65535")
	ErrInvalidProtocol    = errors.New("unsupported transport protocol")
	ErrConnect            = errors.New("could not connect to device")
	ErrNotConnected       = errors.New("not connected")
	ErrPasswordPrompt     = errors.New("password prompt not received")
	ErrLogin              = errors.New("login failed")
	ErrSend               = errors.New("could not send to device")
	ErrReceive            = errors.New("could not receive from device")
	ErrConnectionLost     = errors.New("connection closed by device")
	ErrMalformedResponse  = errors.New("malformed device response")
	ErrCommandFailed      = errors.New("device reported failure")
	ErrConfig             = errors.New("config error")
	ErrLoggerNotFound     = errors.New("logger not found in context")
	ErrInvalidFlag        = errors.New("invalid flag usage")
	ErrInvalidArgument    = errors.New("invalid positional argument")
	ErrTooManyArguments   = errors.New("too many arguments")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidProfile     = errors.New("invalid device profile")
	ErrNoParameters       = errors.New("profile defines no parameters")
	ErrNoTerminal         = errors.New("stdin is not a terminal")
	ErrSimulatorListen    = errors.New("could not start simulator listener")
	ErrSimulatorClosed    = errors.New("simulator closed")
	ErrUnsupportedOutput  = errors.New("unsupported output format")
	ErrWriteReport        = errors.New("could not write report")
	ErrContextDone        = errors.New("context has been cancelled")
	ErrShellInputFinished = errors.New("shell input finished")
)
