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
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hardcore-os/minikv/file"
	"github.com/hardcore-os/minikv/lsm"
	"github.com/hardcore-os/minikv/utils"
	"github.com/hardcore-os/minikv/utils/log"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type (
	// minikv对外提供的功能集合
	CoreAPI interface {
		Put(wo *WriteOptions, key, value []byte) error
		Get(key []byte) ([]byte, error)
		MultiGet(keys [][]byte) ([][]byte, error)
		Delete(wo *WriteOptions, key []byte) error
		DeleteRange(wo *WriteOptions, start, end []byte) error
		DeletePrefix(wo *WriteOptions, prefix []byte) error
		Write(wo *WriteOptions, b *WriteBatch) error
		NewIterator(opt *utils.Options) (utils.Iterator, error)
		Info() *Stats
		Close() error
	}

	// DB 对外暴露的接口对象, 持有目录锁、manifest 与 LSM 的资源句柄
	DB struct {
		sync.RWMutex
		opt      *Options
		lsm      *lsm.LSM
		dirLock  *file.DirLock
		manifest *file.Manifest
		stats    *Stats
		log      zerolog.Logger
		closer   *utils.Closer

		seq    uint64
		closed bool
		// bgErr poisons writes after a failed wal append.
		bgErr error
	}
)

var _ CoreAPI = (*DB)(nil)

// Open locks opt.WorkDir and rebuilds the memtable from its wal.
func Open(opt *Options) (_ *DB, err error) {
	if opt == nil || opt.WorkDir == "" {
		return nil, newStatus(CodeInvalidArgument, "WorkDir is required", utils.ErrInvalidRequest)
	}
	opt = opt.withDefaults()
	logger := log.DB
	if opt.Logger != nil {
		logger = *opt.Logger
	}
	logger = logger.With().Str("dir", opt.WorkDir).Logger()

	if err := prepareDir(opt); err != nil {
		return nil, err
	}

	db := &DB{opt: opt, stats: newStats(), log: logger}
	if db.dirLock, err = file.AcquireDirLock(opt.WorkDir); err != nil {
		logger.Error().Err(err).Msg("acquire directory lock")
		return nil, toStatus(err)
	}
	defer func() {
		if err != nil {
			_ = db.dirLock.Release()
		}
	}()

	exists, err := file.ManifestExists(opt.WorkDir)
	if err != nil {
		return nil, toStatus(err)
	}
	if exists && opt.ErrorIfExists {
		return nil, newStatus(CodeInvalidArgument,
			fmt.Sprintf("%s: exists (error_if_exists is true)", opt.WorkDir), utils.ErrInvalidRequest)
	}
	if db.manifest, err = file.OpenManifest(opt.WorkDir); err != nil {
		return nil, toStatus(err)
	}

	start := time.Now()
	db.lsm, err = lsm.NewLSM(&lsm.Options{
		WorkDir:       opt.WorkDir,
		WalFileID:     db.manifest.WalID,
		WALBufferSize: opt.WALBufferSize,
	})
	if err != nil {
		logger.Error().Err(err).Msg("replay wal")
		return nil, toStatus(err)
	}
	db.seq = db.lsm.MaxVersion()
	if db.manifest.LastSeq > db.seq {
		db.seq = db.manifest.LastSeq
	}
	db.initStats()
	logger.Info().
		Int64("replayed", db.stats.Replayed).
		Int64("truncated_bytes", db.stats.TruncatedBytes).
		Int64("entries", db.stats.EntryNum.Load()).
		Uint64("seq", db.seq).
		Dur("took", time.Since(start)).
		Msg("opened")

	if opt.SyncInterval > 0 {
		db.closer = utils.NewCloser()
		db.closer.Add(1)
		go db.runSyncer(db.closer)
	}
	return db, nil
}

func prepareDir(opt *Options) error {
	fi, err := os.Stat(opt.WorkDir)
	switch {
	case os.IsNotExist(err):
		if !opt.CreateIfMissing {
			return newStatus(CodeIOError,
				fmt.Sprintf("%s: does not exist (create_if_missing is false)", opt.WorkDir), err)
		}
		if err := os.MkdirAll(opt.WorkDir, utils.DefaultDirMode); err != nil {
			return toStatus(errors.Wrapf(err, "create %s", opt.WorkDir))
		}
		return nil
	case err != nil:
		return toStatus(errors.Wrapf(err, "stat %s", opt.WorkDir))
	case !fi.IsDir():
		return newStatus(CodeIOError, fmt.Sprintf("%s: not a directory", opt.WorkDir), nil)
	}
	return nil
}

// initStats counts the live keys recovered from the wal.
func (db *DB) initStats() {
	rs := db.lsm.Stats()
	db.stats.Replayed = rs.Replayed
	db.stats.TruncatedBytes = rs.TruncatedBytes
	it := db.lsm.NewIterator(&utils.Options{IsAsc: true})
	defer it.Close()
	var live int64
	for it.Rewind(); it.Valid(); it.Next() {
		if !lsm.IsDeletedOrExpired(it.Item().Entry()) {
			live++
		}
	}
	db.stats.EntryNum.Store(live)
}

// Close syncs the wal, records the last sequence in the manifest and releases
// the directory lock. The handle cannot be used afterwards.
func (db *DB) Close() error {
	db.Lock()
	if db.closed {
		db.Unlock()
		return newStatus(CodeUsage, "close: DB is already closed", utils.ErrDBClosed)
	}
	db.closed = true
	db.Unlock()

	if db.closer != nil {
		db.closer.Close()
	}

	db.Lock()
	defer db.Unlock()
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(db.lsm.Close())
	if firstErr == nil {
		db.manifest.SetLastSeq(db.seq)
		keep(db.manifest.Persist())
	}
	keep(db.dirLock.Release())
	if firstErr != nil {
		db.log.Error().Err(firstErr).Msg("close")
		return toStatus(firstErr)
	}
	db.log.Info().Uint64("seq", db.seq).Msg("closed")
	return nil
}

// Put stores value under key, replacing any previous value.
func (db *DB) Put(wo *WriteOptions, key, value []byte) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := db.validate(key, value); err != nil {
		return err
	}
	return db.write(wo, []*utils.Entry{utils.NewEntry(bytes.Clone(key), bytes.Clone(value))})
}

// Delete 写入一个墓碑entry实现删除; 删除不存在的key同样返回成功
func (db *DB) Delete(wo *WriteOptions, key []byte) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := db.validate(key, nil); err != nil {
		return err
	}
	return db.write(wo, []*utils.Entry{utils.NewTombstone(bytes.Clone(key))})
}

// DeleteRange deletes every live key in [start, end) with one atomic write.
func (db *DB) DeleteRange(wo *WriteOptions, start, end []byte) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if c := bytes.Compare(start, end); c > 0 {
		return newStatus(CodeInvalidArgument,
			fmt.Sprintf("delete range: start %q is after end %q", start, end), utils.ErrInvalidRequest)
	} else if c == 0 {
		return nil
	}
	return db.deleteMatching(wo, start, func(key []byte) bool {
		return bytes.Compare(key, end) < 0
	})
}

// DeletePrefix deletes every live key starting with prefix with one atomic write.
func (db *DB) DeletePrefix(wo *WriteOptions, prefix []byte) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if len(prefix) == 0 {
		return newStatus(CodeInvalidArgument, "delete prefix: empty prefix", utils.ErrInvalidRequest)
	}
	return db.deleteMatching(wo, prefix, func(key []byte) bool {
		return bytes.HasPrefix(key, prefix)
	})
}

// deleteMatching writes tombstones for the live keys from start while in
// holds. Scan and write share the write lock, so no key slips in between.
func (db *DB) deleteMatching(wo *WriteOptions, start []byte, in func(key []byte) bool) error {
	db.Lock()
	defer db.Unlock()
	if db.closed {
		return newStatus(CodeUsage, "delete: DB is closed", utils.ErrDBClosed)
	}

	it := db.lsm.NewIterator(&utils.Options{IsAsc: true})
	var entries []*utils.Entry
	for it.Seek(start); it.Valid(); it.Next() {
		e := it.Item().Entry()
		if !in(e.Key) {
			break
		}
		if lsm.IsDeletedOrExpired(e) {
			continue
		}
		entries = append(entries, utils.NewTombstone(bytes.Clone(e.Key)))
	}
	_ = it.Close()
	return db.writeLocked(wo, entries)
}

// Write applies every operation of b or none of them, also across a crash.
func (db *DB) Write(wo *WriteOptions, b *WriteBatch) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if b == nil || b.Len() == 0 {
		return nil
	}
	entries := make([]*utils.Entry, 0, b.Len())
	for _, e := range b.entries {
		if err := db.validate(e.Key, e.Value); err != nil {
			return err
		}
		ne := *e
		entries = append(entries, &ne)
	}
	return db.write(wo, entries)
}

// Get returns a copy of the live value for key.
func (db *DB) Get(key []byte) ([]byte, error) {
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return nil, newStatus(CodeUsage, "get: DB is closed", utils.ErrDBClosed)
	}
	if len(key) == 0 {
		return nil, toStatus(utils.ErrEmptyKey)
	}
	v, ok, err := db.getLocked(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newStatus(CodeNotFound, string(key), utils.ErrKeyNotFound)
	}
	return v, nil
}

// MultiGet looks up every key under one read lock. values[i] is nil when
// keys[i] has no live value; a live empty value is an empty non-nil slice.
func (db *DB) MultiGet(keys [][]byte) ([][]byte, error) {
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return nil, newStatus(CodeUsage, "multiget: DB is closed", utils.ErrDBClosed)
	}
	for _, key := range keys {
		if len(key) == 0 {
			return nil, toStatus(utils.ErrEmptyKey)
		}
	}
	values := make([][]byte, len(keys))
	for i, key := range keys {
		v, ok, err := db.getLocked(key)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = v
		}
	}
	return values, nil
}

// getLocked returns a copy of the live value for key. Callers hold the read lock.
func (db *DB) getLocked(key []byte) ([]byte, bool, error) {
	db.stats.Gets.Add(1)
	entry, err := db.lsm.Get(key)
	if err != nil && err != utils.ErrKeyNotFound {
		return nil, false, toStatus(err)
	}
	if lsm.IsDeletedOrExpired(entry) {
		db.stats.Misses.Add(1)
		return nil, false, nil
	}
	return append([]byte{}, entry.Value...), true, nil
}

// Info 读取stats结构
func (db *DB) Info() *Stats {
	db.RLock()
	defer db.RUnlock()
	if !db.closed {
		db.stats.WALBytes.Store(db.lsm.WALSize())
		db.stats.MemBytes.Store(db.lsm.MemSize())
	}
	return db.stats
}

// Sync flushes and fsyncs the wal.
func (db *DB) Sync() error {
	db.Lock()
	defer db.Unlock()
	if db.closed {
		return newStatus(CodeUsage, "sync: DB is closed", utils.ErrDBClosed)
	}
	return toStatus(db.lsm.Sync())
}

func (db *DB) checkOpen() error {
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return newStatus(CodeUsage, "DB is closed", utils.ErrDBClosed)
	}
	return nil
}

func (db *DB) validate(key, value []byte) error {
	switch {
	case len(key) == 0:
		return toStatus(utils.ErrEmptyKey)
	case len(key) > utils.MaxKeySize:
		return toStatus(errors.Wrapf(utils.ErrKeyTooLarge, "key size %d exceeds %d", len(key), utils.MaxKeySize))
	case int64(len(value)) > db.opt.MaxValueSize:
		return toStatus(errors.Wrapf(utils.ErrValueTooLarge, "value size %d exceeds %d", len(value), db.opt.MaxValueSize))
	}
	return nil
}

// write assigns sequence numbers, appends entries to the wal and applies them
// to the memtable, all under the write lock.
func (db *DB) write(wo *WriteOptions, entries []*utils.Entry) error {
	db.Lock()
	defer db.Unlock()
	if db.closed {
		return newStatus(CodeUsage, "write: DB is closed", utils.ErrDBClosed)
	}
	return db.writeLocked(wo, entries)
}

// writeLocked does the work of write. Callers hold the write lock on an open DB.
func (db *DB) writeLocked(wo *WriteOptions, entries []*utils.Entry) error {
	if db.bgErr != nil {
		return db.bgErr
	}
	if len(entries) == 0 {
		return nil
	}
	payload := binary.MaxVarintLen64
	for _, e := range entries {
		payload += utils.EstimateWalCodecSize(e)
	}
	if int64(payload) > utils.MaxWalPayloadSize {
		return toStatus(errors.Wrapf(utils.ErrBatchTooLarge, "%d entries, about %d bytes", len(entries), payload))
	}

	sync := db.opt.SyncWrites
	if wo != nil {
		sync = wo.Sync
	}

	seq := db.seq
	live := make(map[string]bool, len(entries))
	var delta, puts, dels int64
	for _, e := range entries {
		seq++
		e.Version = seq

		was, ok := live[string(e.Key)]
		if !ok {
			prev, _ := db.lsm.Get(e.Key)
			was = !lsm.IsDeletedOrExpired(prev)
		}
		now := !e.IsDeleted()
		live[string(e.Key)] = now
		switch {
		case now && !was:
			delta++
		case !now && was:
			delta--
		}
		if e.IsDeleted() {
			dels++
		} else {
			puts++
		}
	}

	if err := db.lsm.SetBatch(entries, sync); err != nil {
		db.bgErr = toStatus(errors.Wrap(err, "wal append"))
		db.log.Error().Err(err).Msg("wal append failed, rejecting further writes")
		return db.bgErr
	}
	db.seq = seq
	db.stats.EntryNum.Add(delta)
	db.stats.Puts.Add(puts)
	db.stats.Deletes.Add(dels)
	return nil
}

func (db *DB) runSyncer(lc *utils.Closer) {
	defer lc.Done()
	ticker := time.NewTicker(db.opt.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-lc.CloseSignal:
			return
		case <-ticker.C:
			db.Lock()
			if !db.closed && db.bgErr == nil {
				if err := db.lsm.Sync(); err != nil {
					db.log.Warn().Err(err).Msg("periodic wal sync")
				}
			}
			db.Unlock()
		}
	}
}
