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

package session

import (
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
	"github.com/eminwux/insightctl/pkg/api"
)

type FakeSessionController struct {
	Sent []string

	ConnectFunc                  func(host string, port int) error
	DisconnectFunc               func()
	IsConnectedFunc              func() bool
	StatusFunc                   func() api.SessionStatus
	ConnectAndReceiveInitialFunc func(host string, port int) (api.Greeting, error)
	LoginFunc                    func(username, password string) (api.LoginResult, error)
	ReceiveFunc                  func(maxSize int, timeout time.Duration) (string, bool)
	ExchangeFunc                 func(command string, settle time.Duration) (string, error)
}

func (f *FakeSessionController) Connect(host string, port int) error {
	if f.ConnectFunc != nil {
		return f.ConnectFunc(host, port)
	}
	return errdefs.ErrFuncNotSet
}

func (f *FakeSessionController) Disconnect() {
	if f.DisconnectFunc != nil {
		f.DisconnectFunc()
	}
}

func (f *FakeSessionController) IsConnected() bool {
	if f.IsConnectedFunc != nil {
		return f.IsConnectedFunc()
	}
	return false
}

func (f *FakeSessionController) Status() api.SessionStatus {
	if f.StatusFunc != nil {
		return f.StatusFunc()
	}
	return api.SessionStatus{StateName: api.StateDisconnected.String()}
}

func (f *FakeSessionController) ConnectAndReceiveInitial(host string, port int) (api.Greeting, error) {
	if f.ConnectAndReceiveInitialFunc != nil {
		return f.ConnectAndReceiveInitialFunc(host, port)
	}
	return api.Greeting{Text: api.TextConnectionFailed}, errdefs.ErrFuncNotSet
}

func (f *FakeSessionController) Login(username, password string) (api.LoginResult, error) {
	if f.LoginFunc != nil {
		return f.LoginFunc(username, password)
	}
	return api.LoginFailed, errdefs.ErrFuncNotSet
}

func (f *FakeSessionController) Receive(maxSize int, timeout time.Duration) (string, bool) {
	if f.ReceiveFunc != nil {
		return f.ReceiveFunc(maxSize, timeout)
	}
	return "", false
}

func (f *FakeSessionController) Exchange(command string, settle time.Duration) (string, error) {
	f.Sent = append(f.Sent, command)
	if f.ExchangeFunc != nil {
		return f.ExchangeFunc(command, settle)
	}
	return "", errdefs.ErrFuncNotSet
}

func (f *FakeSessionController) SendCommand(command string, settle time.Duration) string {
	text, err := f.Exchange(command, settle)
	if err != nil {
		return ErrorText(err)
	}
	return text
}
