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
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/hardcore-os/minikv/utils"
	"github.com/hardcore-os/minikv/utils/log"
	"github.com/pkg/errors"
)

var errBadFrameHeader = errors.New("bad wal frame header")

// WalFile is an append-only log of frames, one frame per write call:
//
//	| payload len 4B | crc32c(len) 4B | payload | crc32c(payload) 4B |
//
// A frame is replayed whole or not at all, so a batch survives a crash as a unit.
type WalFile struct {
	lock *sync.RWMutex
	f    *os.File
	bw   *bufio.Writer
	opt  *Options
	buf  *bytes.Buffer
	size int64
}

var _ CoreFile = (*WalFile)(nil)

// Close flushes buffered frames and closes the file.
func (wf *WalFile) Close() error {
	if err := wf.bw.Flush(); err != nil {
		wf.f.Close()
		return errors.Wrapf(err, "flush wal %s", wf.Name())
	}
	return wf.f.Close()
}

// OpenWalFile opens or creates the wal file named by opt.FileName.
func OpenWalFile(opt *Options) (*WalFile, error) {
	flag := opt.Flag
	if flag == 0 {
		flag = utils.DefaultFileFlag
	}
	bufSize := opt.BufferSize
	if bufSize <= 0 {
		bufSize = utils.DefaultWALBufferSize
	}
	f, err := os.OpenFile(opt.FileName, flag, utils.DefaultFileMode)
	if err != nil {
		return nil, errors.Wrapf(err, "open wal %s", opt.FileName)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat wal %s", opt.FileName)
	}
	return &WalFile{
		lock: &sync.RWMutex{},
		f:    f,
		bw:   bufio.NewWriterSize(f, bufSize),
		opt:  opt,
		buf:  &bytes.Buffer{},
		size: fi.Size(),
	}, nil
}

// Write 把entries编码为一个帧写入缓冲区, 是否刷盘由调用方决定
func (wf *WalFile) Write(entries ...*utils.Entry) error {
	wf.lock.Lock()
	defer wf.lock.Unlock()
	n := utils.WalCodec(wf.buf, entries)
	if int64(n-utils.WalFrameOverhead) > utils.MaxWalPayloadSize {
		return errors.Wrapf(utils.ErrBatchTooLarge, "wal frame of %d bytes", n)
	}
	if _, err := wf.bw.Write(wf.buf.Bytes()); err != nil {
		return errors.Wrapf(err, "append wal %s", wf.Name())
	}
	wf.size += int64(n)
	return nil
}

// Flush hands buffered frames to the OS without an fsync.
func (wf *WalFile) Flush() error {
	wf.lock.Lock()
	defer wf.lock.Unlock()
	return errors.Wrapf(wf.bw.Flush(), "flush wal %s", wf.Name())
}

// Sync flushes buffered frames and fsyncs the file.
func (wf *WalFile) Sync() error {
	wf.lock.Lock()
	defer wf.lock.Unlock()
	if err := wf.bw.Flush(); err != nil {
		return errors.Wrapf(err, "flush wal %s", wf.Name())
	}
	return errors.Wrapf(wf.f.Sync(), "sync wal %s", wf.Name())
}

// Truncate drops everything after end. Later writes are appended at end.
func (wf *WalFile) Truncate(end int64) error {
	wf.lock.Lock()
	defer wf.lock.Unlock()
	if err := wf.bw.Flush(); err != nil {
		return errors.Wrapf(err, "flush wal %s", wf.Name())
	}
	if err := wf.f.Truncate(end); err != nil {
		return errors.Wrapf(err, "truncate wal %s", wf.Name())
	}
	wf.size = end
	return errors.Wrapf(wf.f.Sync(), "sync wal %s", wf.Name())
}

// Iterate reads frames from the start of the file and calls fn for every entry
// in log order. It returns the end offset of the last good frame.
//
// A frame that runs past the end of the file, a frame failing its payload
// checksum with nothing after it, or a zero-filled tail is a torn tail and ends
// the iteration without error. Any other damaged frame returns utils.ErrCorruptWAL.
func (wf *WalFile) Iterate(fn utils.LogEntry) (int64, error) {
	if err := wf.Flush(); err != nil {
		return 0, err
	}
	wf.lock.RLock()
	defer wf.lock.RUnlock()

	fi, err := wf.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat wal %s", wf.Name())
	}
	size := fi.Size()
	reader := bufio.NewReader(io.NewSectionReader(wf.f, 0, size))
	read := &safeRead{size: size}

	var validEndOffset int64
loop:
	for {
		entries, frameLen, err := read.Frame(reader)
		switch {
		case err == io.EOF:
			break loop
		case err == utils.ErrTruncate:
			break loop
		case err == errBadFrameHeader:
			zero, zerr := zeroTail(wf.f, read.recordOffset, size)
			if zerr != nil {
				return 0, errors.Wrapf(zerr, "read wal %s", wf.Name())
			}
			if zero {
				break loop
			}
			return validEndOffset, errors.Wrapf(utils.ErrCorruptWAL,
				"wal %s: bad frame header at offset %d of %d", wf.Name(), read.recordOffset, size)
		case err == utils.ErrBadChecksum:
			if read.recordOffset+frameLen >= size {
				break loop
			}
			return validEndOffset, errors.Wrapf(utils.ErrCorruptWAL,
				"wal %s: bad frame at offset %d of %d", wf.Name(), read.recordOffset, size)
		case err != nil:
			return validEndOffset, errors.Wrapf(err, "read wal %s at offset %d", wf.Name(), read.recordOffset)
		}

		frameOffset := read.recordOffset
		read.recordOffset += frameLen
		validEndOffset = read.recordOffset
		for _, e := range entries {
			e.Offset = frameOffset
			if err := fn(e, frameOffset); err != nil {
				if err == utils.ErrStop {
					break loop
				}
				return 0, err
			}
		}
	}
	if validEndOffset < size {
		log.WAL.Warn().Str("file", wf.Name()).Int64("valid_end", validEndOffset).
			Int64("size", size).Msg("torn tail found")
	}
	return validEndOffset, nil
}

// Size _
func (wf *WalFile) Size() int64 {
	wf.lock.RLock()
	defer wf.lock.RUnlock()
	return wf.size
}

// Fid _
func (wf *WalFile) Fid() uint64 {
	return wf.opt.FID
}

// Name _
func (wf *WalFile) Name() string {
	return wf.opt.FileName
}

// 这个对象用来重放日志
type safeRead struct {
	size         int64
	recordOffset int64
}

// Frame reads one frame and validates both checksums. The returned length is
// meaningful for a nil error and for utils.ErrBadChecksum.
func (r *safeRead) Frame(reader io.Reader) ([]*utils.Entry, int64, error) {
	var hdr [utils.WalFrameHeaderSize]byte
	if _, err := io.ReadFull(reader, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = utils.ErrTruncate
		}
		return nil, 0, err
	}
	if crc32.Checksum(hdr[:4], utils.CastagnoliCrcTable) != utils.BytesToU32(hdr[4:]) {
		return nil, 0, errBadFrameHeader
	}
	plen := int64(utils.BytesToU32(hdr[:4]))
	frameLen := utils.WalFrameOverhead + plen
	if r.recordOffset+frameLen > r.size {
		return nil, 0, utils.ErrTruncate
	}

	tee := utils.NewHashReader(reader)
	payload := make([]byte, plen)
	if _, err := io.ReadFull(tee, payload); err != nil {
		return nil, 0, utils.ErrTruncate
	}
	var crcBuf [crc32.Size]byte
	if _, err := io.ReadFull(reader, crcBuf[:]); err != nil {
		return nil, 0, utils.ErrTruncate
	}
	if tee.Sum32() != binary.BigEndian.Uint32(crcBuf[:]) {
		return nil, frameLen, utils.ErrBadChecksum
	}
	entries, err := utils.DecodeWalPayload(payload)
	if err != nil {
		return nil, 0, err
	}
	return entries, frameLen, nil
}

// zeroTail reports whether every byte in [off, size) is zero, which is what a
// crash leaves behind when the file grew before its data reached the disk.
func zeroTail(f *os.File, off, size int64) (bool, error) {
	buf := make([]byte, 32<<10)
	for off < size {
		n, err := f.ReadAt(buf[:min(int64(len(buf)), size-off)], off)
		for _, b := range buf[:n] {
			if b != 0 {
				return false, nil
			}
		}
		off += int64(n)
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
