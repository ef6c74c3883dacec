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
	"fmt"
	"sync/atomic"
)

// Stats counters are updated atomically and may be read at any time.
type Stats struct {
	EntryNum atomic.Int64 // 存储多少个kv数据
	Puts     atomic.Int64
	Deletes  atomic.Int64
	Gets     atomic.Int64
	Misses   atomic.Int64

	// set once by Open
	Replayed       int64
	TruncatedBytes int64
	// refreshed by Info
	WALBytes atomic.Int64
	MemBytes atomic.Int64
}

func newStats() *Stats {
	return &Stats{}
}

func (s *Stats) String() string {
	return fmt.Sprintf("entries=%d puts=%d deletes=%d gets=%d misses=%d replayed=%d truncated=%dB wal=%dB mem=%dB",
		s.EntryNum.Load(), s.Puts.Load(), s.Deletes.Load(), s.Gets.Load(), s.Misses.Load(),
		s.Replayed, s.TruncatedBytes, s.WALBytes.Load(), s.MemBytes.Load())
}
