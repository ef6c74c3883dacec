// Copyright 2021 hardcore-os Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License")
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package minikv

import (
	"github.com/hardcore-os/minikv/utils"
	"github.com/pkg/errors"
)

// Code classifies the outcome of a DB call.
type Code uint8

const (
	CodeOK Code = iota
	CodeNotFound
	CodeCorruption
	CodeInvalidArgument
	CodeIOError
	CodeUsage
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NotFound"
	case CodeCorruption:
		return "Corruption"
	case CodeInvalidArgument:
		return "Invalid argument"
	case CodeIOError:
		return "IO error"
	case CodeUsage:
		return "Usage error"
	default:
		return "Unknown"
	}
}

// Status is the error type of every DB call. A nil error means OK; a non-nil
// error returned by this package is always a *Status.
type Status struct {
	code Code
	msg  string
	err  error
}

// Sentinels for errors.Is. Any status with the same code matches.
var (
	ErrNotFound        = &Status{code: CodeNotFound}
	ErrCorruption      = &Status{code: CodeCorruption}
	ErrInvalidArgument = &Status{code: CodeInvalidArgument}
	ErrIOError         = &Status{code: CodeIOError}
	ErrUsage           = &Status{code: CodeUsage}
)

func newStatus(code Code, msg string, cause error) *Status {
	return &Status{code: code, msg: msg, err: cause}
}

// OK reports whether s is a success. A nil *Status is OK.
func (s *Status) OK() bool {
	return s == nil || s.code == CodeOK
}

// Code _
func (s *Status) Code() Code {
	if s == nil {
		return CodeOK
	}
	return s.code
}

// Message _
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.msg
}

// String renders "OK" or "<code>: <message>".
func (s *Status) String() string {
	if s.OK() {
		return CodeOK.String()
	}
	if s.msg == "" {
		return s.code.String() + ": "
	}
	return s.code.String() + ": " + s.msg
}

func (s *Status) Error() string {
	return s.String()
}

func (s *Status) Unwrap() error {
	return s.err
}

func (s *Status) Is(target error) bool {
	t, ok := target.(*Status)
	return ok && t.Code() == s.Code()
}

// StatusOf converts any error into a *Status; nil becomes OK.
func StatusOf(err error) *Status {
	if err == nil {
		return &Status{code: CodeOK}
	}
	return classify(err)
}

// IsNotFound _
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruption _
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }

// IsIOError _
func IsIOError(err error) bool { return errors.Is(err, ErrIOError) }

// IsUsage _
func IsUsage(err error) bool { return errors.Is(err, ErrUsage) }

// toStatus maps an internal error onto the public status taxonomy, keeping nil as nil.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	return classify(err)
}

func classify(err error) *Status {
	var s *Status
	if errors.As(err, &s) {
		return s
	}
	msg := err.Error()
	switch {
	case errors.Is(err, utils.ErrKeyNotFound):
		return newStatus(CodeNotFound, msg, err)
	case errors.Is(err, utils.ErrCorruptWAL),
		errors.Is(err, utils.ErrBadChecksum),
		errors.Is(err, utils.ErrBadMagic):
		return newStatus(CodeCorruption, msg, err)
	case errors.Is(err, utils.ErrDBClosed):
		return newStatus(CodeUsage, msg, err)
	case errors.Is(err, utils.ErrEmptyKey),
		errors.Is(err, utils.ErrKeyTooLarge),
		errors.Is(err, utils.ErrValueTooLarge),
		errors.Is(err, utils.ErrBatchTooLarge),
		errors.Is(err, utils.ErrInvalidRequest):
		return newStatus(CodeInvalidArgument, msg, err)
	default:
		return newStatus(CodeIOError, msg, err)
	}
}
