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

package utils

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/hardcore-os/minikv/utils/log"
)

var (
	gopath = path.Join(os.Getenv("GOPATH"), "src") + "/"
)

var (
	// ErrKeyNotFound is returned when key isn't found on a Get.
	ErrKeyNotFound = errors.New("Key not found")
	// ErrEmptyKey is returned if an empty key is passed on an update function.
	ErrEmptyKey = errors.New("Key cannot be empty")
	// ErrKeyTooLarge is returned if the key is longer than MaxKeySize.
	ErrKeyTooLarge = errors.New("Key is too large")
	// ErrValueTooLarge is returned if the value is longer than the configured limit.
	ErrValueTooLarge = errors.New("Value is too large")
	// ErrBadMagic bad magic
	ErrBadMagic = errors.New("bad magic")
	// ErrBadChecksum bad check sum
	ErrBadChecksum = errors.New("bad check sum")
	// ErrCorruptWAL is returned when a damaged record is followed by more data.
	ErrCorruptWAL = errors.New("wal record corrupted before end of log")

	ErrTruncate = errors.New("Do truncate")
	ErrStop     = errors.New("Stop")

	// ErrLockHeld is returned when another handle owns the directory.
	ErrLockHeld = errors.New("directory lock held by another handle")
	// ErrDBClosed is returned for any call on a closed handle.
	ErrDBClosed = errors.New("DB is closed")
	// ErrBatchTooLarge is returned when one write does not fit in a wal frame.
	ErrBatchTooLarge = errors.New("Batch is too large")
	// ErrInvalidRequest is returned if the user request is invalid.
	ErrInvalidRequest = errors.New("Invalid request")
)

// Err logs err with the caller location and returns it unchanged.
func Err(err error) error {
	if err != nil {
		log.Internal.Error().Str("at", location(2, true)).Err(err).Msg("")
	}
	return err
}

// WarpErr logs err with a message and the caller location.
func WarpErr(format string, err error) error {
	if err != nil {
		log.Internal.Error().Str("at", location(2, true)).Err(err).Msg(format)
	}
	return err
}

func location(deep int, fullPath bool) string {
	_, file, line, ok := runtime.Caller(deep)
	if !ok {
		file = "???"
		line = 0
	}

	if fullPath {
		if strings.HasPrefix(file, gopath) {
			file = file[len(gopath):]
		}
	} else {
		file = filepath.Base(file)
	}
	return file + ":" + strconv.Itoa(line)
}

// AssertTrue panics when b is false.
func AssertTrue(b bool) {
	if !b {
		panic("Assert failed")
	}
}
