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
	"time"

	"github.com/hardcore-os/minikv/utils"
	"github.com/rs/zerolog"
)

// Options 参数化配置对象
type Options struct {
	// WorkDir is the directory holding LOCK, MANIFEST and the wal.
	WorkDir string
	// CreateIfMissing creates WorkDir when it does not exist. Otherwise Open fails with an IO error.
	CreateIfMissing bool
	// ErrorIfExists makes Open fail when WorkDir already holds a database.
	ErrorIfExists bool
	// SyncWrites is the durability of writes made with nil WriteOptions.
	SyncWrites bool
	// SyncInterval > 0 starts a goroutine that fsyncs the wal periodically.
	SyncInterval time.Duration

	MaxValueSize  int64
	WALBufferSize int

	// Logger overrides the package "db" component logger.
	Logger *zerolog.Logger
}

// WriteOptions controls a single write.
type WriteOptions struct {
	// Sync fsyncs the wal before the write returns.
	Sync bool
}

// NewDefaultOptions 返回默认的options
func NewDefaultOptions() *Options {
	opt := &Options{}
	opt.CreateIfMissing = true
	opt.MaxValueSize = utils.DefaultMaxValueSize
	opt.WALBufferSize = utils.DefaultWALBufferSize
	return opt
}

// withDefaults returns a copy with zero limits filled in.
func (opt *Options) withDefaults() *Options {
	o := *opt
	if o.MaxValueSize <= 0 {
		o.MaxValueSize = utils.DefaultMaxValueSize
	}
	if o.WALBufferSize <= 0 {
		o.WALBufferSize = utils.DefaultWALBufferSize
	}
	return &o
}
