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

//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hardcore-os/minikv/utils"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DirLock holds an exclusive flock on <dir>/LOCK. flock conflicts between
// separate open file descriptions, so a second Open in the same process fails too.
type DirLock struct {
	path string
	f    *os.File
}

// AcquireDirLock _
func AcquireDirLock(dir string) (*DirLock, error) {
	path := filepath.Join(dir, utils.LockFilename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, utils.DefaultFileMode)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.Wrapf(utils.ErrLockHeld, "lock %s", path)
		}
		return nil, errors.Wrapf(err, "flock %s", path)
	}
	// owner pid, informational only
	if err := f.Truncate(0); err == nil {
		_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &DirLock{path: path, f: f}, nil
}

// Release _
func (l *DirLock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return errors.Wrapf(err, "unlock %s", l.path)
	}
	return errors.Wrapf(l.f.Close(), "close lock file %s", l.path)
}
