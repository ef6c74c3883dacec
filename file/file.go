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

package file

import (
	"fmt"
	"path/filepath"

	"github.com/hardcore-os/minikv/utils"
)

// CoreFile is the minimal handle shared by the files of a DB directory.
type CoreFile interface {
	Close() error
	Sync() error
}

// Options
type Options struct {
	FID        uint64
	FileName   string
	Dir        string
	Flag       int
	BufferSize int
}

// WalFilePath _
func WalFilePath(dir string, fid uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%05d%s", fid, utils.WalFileExt))
}
