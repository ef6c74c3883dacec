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

package lsm

import (
	"github.com/hardcore-os/minikv/file"
	"github.com/hardcore-os/minikv/utils"
)

// LSM owns the active memtable and its wal. It is not safe for concurrent
// writers; the DB serializes access.
type LSM struct {
	memTable *memTable
	option   *Options
	stats    ReplayStats
}

//Options _
type Options struct {
	WorkDir       string
	WalFileID     uint64
	WALBufferSize int
}

// ReplayStats describes what NewLSM recovered from the wal.
type ReplayStats struct {
	Replayed       int64
	TruncatedBytes int64
}

// NewLSM 启动DB恢复过程加载wal，如果没有恢复内容则创建新的内存表
func NewLSM(opt *Options) (*LSM, error) {
	lsm := &LSM{option: opt}
	mt, err := lsm.openMemTable(opt.WalFileID)
	if err != nil {
		return nil, err
	}
	lsm.memTable = mt
	return lsm, nil
}

// Close  _
func (lsm *LSM) Close() error {
	if lsm.memTable != nil {
		if err := lsm.memTable.close(); err != nil {
			return err
		}
	}
	return nil
}

// Set _
func (lsm *LSM) Set(entry *utils.Entry, sync bool) error {
	return lsm.memTable.set(entry, sync)
}

// SetBatch writes the entries as one wal frame, syncs at most once, then applies them in order.
func (lsm *LSM) SetBatch(entries []*utils.Entry, sync bool) error {
	if len(entries) == 0 {
		return nil
	}
	return lsm.memTable.setBatch(entries, sync)
}

// Get _
func (lsm *LSM) Get(key []byte) (*utils.Entry, error) {
	return lsm.memTable.Get(key)
}

// Sync flushes and fsyncs the wal.
func (lsm *LSM) Sync() error {
	return lsm.memTable.wal.Sync()
}

// NewIterator walks the memtable in key order, tombstones included.
func (lsm *LSM) NewIterator(opt *utils.Options) *utils.SkipListIterator {
	return lsm.memTable.sl.NewSkipListIterator(opt)
}

// MaxVersion is the highest sequence number applied so far.
func (lsm *LSM) MaxVersion() uint64 {
	return lsm.memTable.maxVersion
}

// MemSize _
func (lsm *LSM) MemSize() int64 {
	return lsm.memTable.Size()
}

// WALSize _
func (lsm *LSM) WALSize() int64 {
	return lsm.WAL().Size()
}

// WAL returns the log backing the active memtable.
func (lsm *LSM) WAL() *file.WalFile {
	return lsm.memTable.wal
}

// Stats returns what recovery found.
func (lsm *LSM) Stats() ReplayStats {
	return lsm.stats
}

// IsDeletedOrExpired _
func IsDeletedOrExpired(e *utils.Entry) bool {
	return e == nil || e.IsDeleted()
}
