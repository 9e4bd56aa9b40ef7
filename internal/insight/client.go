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

package insight

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eminwux/insightctl/internal/errdefs"
)

// Native mode commands.
const (
	CmdFileList   = "Get FileList"
	CmdGetFile    = "GF"
	CmdLoadFile   = "LF"
	CmdGetOnline  = "GO"
	CmdSetOnline  = "SO"
	CmdGetValue   = "GV"
	CmdSetInteger = "SI"
	CmdSetFloat   = "SF"
	CmdSetString  = "SS"
	CmdTrigger    = "SW8"
)

type Exchanger interface {
	Exchange(command string, settle time.Duration) (string, error)
}

type Client struct {
	ex     Exchanger
	settle time.Duration
}

// NewClient wraps ex. A zero settle uses the session default.
func NewClient(ex Exchanger, settle time.Duration) *Client {
	return &Client{ex: ex, settle: settle}
}

// Raw sends cmd and parses the reply without judging the result code.
func (c *Client) Raw(cmd string) (*Result, error) {
	text, err := c.ex.Exchange(cmd, c.settle)
	if err != nil {
		return nil, err
	}
	res, err := ParseResponse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	return res, nil
}

func (c *Client) do(cmd string) (*Result, error) {
	res, err := c.Raw(cmd)
	if err != nil {
		return nil, err
	}
	if err = res.Err(); err != nil {
		return res, fmt.Errorf("%s: %w", cmd, err)
	}
	return res, nil
}

func first(cmd string, res *Result) (string, error) {
	if len(res.Payload) == 0 {
		return "", fmt.Errorf("%s: %w: missing payload", cmd, errdefs.ErrMalformedResponse)
	}
	return res.Payload[0], nil
}

// FileList returns the job files stored on the device. The reply carries a
// count followed by one name per line.
func (c *Client) FileList() ([]string, error) {
	res, err := c.do(CmdFileList)
	if err != nil {
		return nil, err
	}
	countText, err := first(CmdFileList, res)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countText)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%s: %w: file count %q", CmdFileList, errdefs.ErrMalformedResponse, countText)
	}
	names := res.Payload[1:]
	if len(names) != count {
		return names, fmt.Errorf("%s: %w: announced %d files, got %d",
			CmdFileList, errdefs.ErrMalformedResponse, count, len(names))
	}
	return names, nil
}

func (c *Client) CurrentJob() (string, error) {
	res, err := c.do(CmdGetFile)
	if err != nil {
		return "", err
	}
	return first(CmdGetFile, res)
}

func (c *Client) LoadJob(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: job name is empty", errdefs.ErrInvalidArgument)
	}
	_, err := c.do(CmdLoadFile + name)
	return err
}

func (c *Client) Online() (bool, error) {
	res, err := c.do(CmdGetOnline)
	if err != nil {
		return false, err
	}
	v, err := first(CmdGetOnline, res)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (c *Client) SetOnline(on bool) error {
	arg := "0"
	if on {
		arg = "1"
	}
	_, err := c.do(CmdSetOnline + arg)
	return err
}

func validCell(cell string) (string, error) {
	cell = strings.ToUpper(strings.TrimSpace(cell))
	if cell == "" || strings.ContainsAny(cell, " \t\r\n") {
		return "", fmt.Errorf("%w: cell %q", errdefs.ErrInvalidArgument, cell)
	}
	return cell, nil
}

func (c *Client) GetValue(cell string) (string, error) {
	cell, err := validCell(cell)
	if err != nil {
		return "", err
	}
	res, err := c.do(CmdGetValue + cell)
	if err != nil {
		return "", err
	}
	return first(CmdGetValue, res)
}

func (c *Client) set(cmd, cell, value string) error {
	cell, err := validCell(cell)
	if err != nil {
		return err
	}
	_, err = c.do(cmd + cell + " " + value)
	return err
}

func (c *Client) SetInteger(cell string, v int) error {
	return c.set(CmdSetInteger, cell, strconv.Itoa(v))
}

func (c *Client) SetFloat(cell string, v float64) error {
	return c.set(CmdSetFloat, cell, strconv.FormatFloat(v, 'f', -1, 64))
}

func (c *Client) SetString(cell, v string) error {
	if strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("%w: value spans lines", errdefs.ErrInvalidArgument)
	}
	return c.set(CmdSetString, cell, v)
}

// Trigger fires a software trigger.
func (c *Client) Trigger() error {
	_, err := c.do(CmdTrigger)
	return err
}
