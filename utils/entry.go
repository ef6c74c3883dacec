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

import "bytes"

//Entry _ 最外层写入的结构体
type Entry struct {
	Key   []byte
	Value []byte
	Meta  byte

	// Version is the sequence number assigned by the DB when the entry was written.
	Version uint64
	Offset  int64
	Hlen    int // Length of the header.
}

// NewEntry_
func NewEntry(key, value []byte) *Entry {
	return &Entry{
		Key:   key,
		Value: value,
	}
}

// NewTombstone builds a deletion marker for key.
func NewTombstone(key []byte) *Entry {
	return &Entry{
		Key:  key,
		Meta: BitDelete,
	}
}

// Entry_
func (e *Entry) Entry() *Entry {
	return e
}

// WithVersion _
func (e *Entry) WithVersion(v uint64) *Entry {
	e.Version = v
	return e
}

// IsDeleted reports whether e is a tombstone.
func (e *Entry) IsDeleted() bool {
	return e.Meta&BitDelete > 0
}

// EstimateSize 预估当前entry在内存中占用的空间大小
func (e *Entry) EstimateSize() int {
	return len(e.Key) + len(e.Value) + 1 /* meta */ + 8 /* version */
}

// Clone returns a deep copy so callers may reuse their buffers.
func (e *Entry) Clone() *Entry {
	return &Entry{
		Key:     SafeCopy(nil, e.Key),
		Value:   SafeCopy(nil, e.Value),
		Meta:    e.Meta,
		Version: e.Version,
	}
}

// SafeCopy does append(a[:0], src...).
func SafeCopy(a, src []byte) []byte {
	return append(a[:0], src...)
}

// CompareKeys orders keys bytewise.
func CompareKeys(key1, key2 []byte) int {
	return bytes.Compare(key1, key2)
}

// SameKey _
func SameKey(src, dst []byte) bool {
	return bytes.Equal(src, dst)
}
