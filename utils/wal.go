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
	"bytes"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// LogEntry is called for every entry read back from a log file. offset is
// where the frame holding the entry starts.
type LogEntry func(e *Entry, offset int64) error

// WalHeader prefixes every entry inside a frame payload.
type WalHeader struct {
	KeyLen   uint32
	ValueLen uint32
	Meta     byte
	Version  uint64
}

func (h WalHeader) Encode(out []byte) int {
	index := 0
	index = binary.PutUvarint(out[index:], uint64(h.KeyLen))
	index += binary.PutUvarint(out[index:], uint64(h.ValueLen))
	index += binary.PutUvarint(out[index:], uint64(h.Meta))
	index += binary.PutUvarint(out[index:], h.Version)
	return index
}

// Decode reads a header from the front of buf and returns its length.
func (h *WalHeader) Decode(buf []byte) (int, error) {
	index := 0
	next := func() (uint64, error) {
		v, n := binary.Uvarint(buf[index:])
		if n <= 0 {
			return 0, io.ErrUnexpectedEOF
		}
		index += n
		return v, nil
	}

	klen, err := next()
	if err != nil {
		return 0, err
	}
	vlen, err := next()
	if err != nil {
		return 0, err
	}
	meta, err := next()
	if err != nil {
		return 0, err
	}
	if h.Version, err = next(); err != nil {
		return 0, err
	}
	if klen > MaxKeySize || vlen > MaxWalPayloadSize || meta > 0xff {
		return 0, errors.Errorf("implausible entry header klen=%d vlen=%d meta=%d", klen, vlen, meta)
	}
	h.KeyLen, h.ValueLen, h.Meta = uint32(klen), uint32(vlen), byte(meta)
	return index, nil
}

// WalCodec 把一次写入的所有entry编码成一个wal帧, 重放时整帧生效或整帧丢弃
//
//	| payload len 4B | crc32c(len) 4B | uvarint count | (header | key | value)... | crc32c(payload) 4B |
func WalCodec(buf *bytes.Buffer, entries []*Entry) int {
	buf.Reset()
	var frameHeader [WalFrameHeaderSize]byte
	buf.Write(frameHeader[:])

	var enc [MaxHeaderSize]byte
	sz := binary.PutUvarint(enc[:], uint64(len(entries)))
	buf.Write(enc[:sz])
	for _, e := range entries {
		h := WalHeader{
			KeyLen:   uint32(len(e.Key)),
			ValueLen: uint32(len(e.Value)),
			Meta:     e.Meta,
			Version:  e.Version,
		}
		sz := h.Encode(enc[:])
		buf.Write(enc[:sz])
		buf.Write(e.Key)
		buf.Write(e.Value)
	}

	out := buf.Bytes()
	payload := out[WalFrameHeaderSize:]
	binary.BigEndian.PutUint32(out[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(out[4:8], crc32.Checksum(out[0:4], CastagnoliCrcTable))
	var crcBuf [crc32.Size]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc32.Checksum(payload, CastagnoliCrcTable))
	buf.Write(crcBuf[:])
	return buf.Len()
}

// DecodeWalPayload splits a checksummed frame payload back into entries.
// The entries share memory with payload.
func DecodeWalPayload(payload []byte) ([]*Entry, error) {
	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, errors.Wrap(ErrCorruptWAL, "bad entry count")
	}
	index := n
	entries := make([]*Entry, 0, min(count, 1024))
	for i := uint64(0); i < count; i++ {
		var h WalHeader
		hlen, err := h.Decode(payload[index:])
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptWAL, "entry %d: %v", i, err)
		}
		index += hlen
		kend := index + int(h.KeyLen)
		vend := kend + int(h.ValueLen)
		if vend > len(payload) {
			return nil, errors.Wrapf(ErrCorruptWAL, "entry %d overruns payload", i)
		}
		entries = append(entries, &Entry{
			Key:     payload[index:kend:kend],
			Value:   payload[kend:vend:vend],
			Meta:    h.Meta,
			Version: h.Version,
			Hlen:    hlen,
		})
		index = vend
	}
	if index != len(payload) {
		return nil, errors.Wrapf(ErrCorruptWAL, "%d trailing bytes in payload", len(payload)-index)
	}
	return entries, nil
}

// EstimateWalCodecSize 预估当前kv 写入wal帧payload占用的空间大小
func EstimateWalCodecSize(e *Entry) int {
	return len(e.Key) + len(e.Value) + MaxHeaderSize
}

type HashReader struct {
	R         io.Reader
	H         hash.Hash32
	BytesRead int64 // Number of bytes read.
}

func NewHashReader(r io.Reader) *HashReader {
	hash := crc32.New(CastagnoliCrcTable)
	return &HashReader{
		R: r,
		H: hash,
	}
}

// Read reads len(p) bytes from the reader. Returns the number of bytes read, error on failure.
func (t *HashReader) Read(p []byte) (int, error) {
	n, err := t.R.Read(p)
	t.BytesRead += int64(n)
	_, _ = t.H.Write(p[:n])
	return n, err
}

// Sum32 returns the sum32 of the underlying hash.
func (t *HashReader) Sum32() uint32 {
	return t.H.Sum32()
}

// BytesToU32 converts the given byte slice to uint32
func BytesToU32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// BytesToU64 _
func BytesToU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
