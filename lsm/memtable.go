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
	"github.com/pkg/errors"
)

// MemTable
type memTable struct {
	lsm        *LSM
	wal        *file.WalFile
	sl         *utils.Skiplist
	maxVersion uint64
}

// openMemTable opens wal file fid and rebuilds the skiplist from it.
func (lsm *LSM) openMemTable(fid uint64) (*memTable, error) {
	wal, err := file.OpenWalFile(&file.Options{
		FID:        fid,
		FileName:   file.WalFilePath(lsm.option.WorkDir, fid),
		Dir:        lsm.option.WorkDir,
		BufferSize: lsm.option.WALBufferSize,
	})
	if err != nil {
		return nil, err
	}
	mt := &memTable{lsm: lsm, wal: wal, sl: utils.NewSkiplist()}
	if err := mt.updateSkipList(); err != nil {
		wal.Close()
		return nil, err
	}
	return mt, nil
}

// updateSkipList 重放wal, 按日志顺序写入跳表
func (m *memTable) updateSkipList() error {
	size := m.wal.Size()
	endOff, err := m.wal.Iterate(m.replayFunction())
	if err != nil {
		return errors.Wrapf(err, "while iterating wal: %s", m.wal.Name())
	}
	if endOff < size {
		m.lsm.stats.TruncatedBytes = size - endOff
		if err := m.wal.Truncate(endOff); err != nil {
			return utils.WarpErr("truncate torn wal tail", err)
		}
	}
	return nil
}

func (m *memTable) replayFunction() utils.LogEntry {
	return func(e *utils.Entry, _ int64) error {
		m.apply(e)
		m.lsm.stats.Replayed++
		return nil
	}
}

func (m *memTable) apply(e *utils.Entry) {
	m.sl.Add(e)
	if e.Version > m.maxVersion {
		m.maxVersion = e.Version
	}
}

// set appends entry to the wal before it becomes visible in the skiplist.
func (m *memTable) set(entry *utils.Entry, sync bool) error {
	return m.setBatch([]*utils.Entry{entry}, sync)
}

// setBatch writes entries as one wal frame so replay sees all of them or none.
func (m *memTable) setBatch(entries []*utils.Entry, sync bool) error {
	if err := m.wal.Write(entries...); err != nil {
		return err
	}
	var err error
	if sync {
		err = m.wal.Sync()
	} else {
		err = m.wal.Flush()
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		m.apply(e)
	}
	return nil
}

// Get returns the newest entry for key, tombstones included.
func (m *memTable) Get(key []byte) (*utils.Entry, error) {
	if e := m.sl.Search(key); e != nil {
		return e, nil
	}
	return nil, utils.ErrKeyNotFound
}

// Size _
func (m *memTable) Size() int64 {
	return m.sl.MemSize()
}

func (m *memTable) close() error {
	if err := m.wal.Sync(); err != nil {
		m.wal.Close()
		return utils.Err(err)
	}
	if err := m.wal.Close(); err != nil {
		return utils.Err(err)
	}
	m.sl.DecrRef()
	return nil
}
