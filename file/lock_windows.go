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

//go:build windows

package file

import (
	"os"
	"path/filepath"

	"github.com/hardcore-os/minikv/utils"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// DirLock holds an exclusive LockFileEx range on <dir>/LOCK.
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
	ol := new(windows.Overlapped)
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	if err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, ol); err != nil {
		f.Close()
		if err == windows.ERROR_LOCK_VIOLATION {
			return nil, errors.Wrapf(utils.ErrLockHeld, "lock %s", path)
		}
		return nil, errors.Wrapf(err, "LockFileEx %s", path)
	}
	return &DirLock{path: path, f: f}, nil
}

// Release _
func (l *DirLock) Release() error {
	ol := new(windows.Overlapped)
	if err := windows.UnlockFileEx(windows.Handle(l.f.Fd()), 0, 1, 0, ol); err != nil {
		l.f.Close()
		return errors.Wrapf(err, "unlock %s", l.path)
	}
	return errors.Wrapf(l.f.Close(), "close lock file %s", l.path)
}
