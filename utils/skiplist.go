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
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	maxHeight = 20
	pValue    = 0.25
)

type node struct {
	entry *Entry
	// tower[i] is the next node on level i.
	tower []*node
}

// Skiplist is the ordered table behind the memtable. Writers must be
// serialized by the caller; readers may run concurrently with each other.
type Skiplist struct {
	head    *node
	height  int
	length  int64
	memSize int64
	ref     int32
	OnClose func()
}

func NewSkiplist() *Skiplist {
	return &Skiplist{
		head:   &node{tower: make([]*node, maxHeight)},
		height: 1,
		ref:    1,
	}
}

// IncrRef increases the refcount
func (s *Skiplist) IncrRef() {
	atomic.AddInt32(&s.ref, 1)
}

// DecrRef decrements the refcount, running OnClose when nobody holds the list
func (s *Skiplist) DecrRef() {
	newRef := atomic.AddInt32(&s.ref, -1)
	if newRef > 0 {
		return
	}
	if s.OnClose != nil {
		s.OnClose()
	}
}

func (s *Skiplist) randomHeight() int {
	h := 1
	for h < maxHeight && Float64() < pValue {
		h++
	}
	return h
}

// findGreaterOrEqual returns the first node with key >= key. When prev is
// non-nil it is filled with the rightmost node before that position on every level.
func (s *Skiplist) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := s.head
	for level := s.height - 1; level >= 0; level-- {
		for next := x.tower[level]; next != nil && CompareKeys(next.entry.Key, key) < 0; next = x.tower[level] {
			x = next
		}
		if prev != nil {
			prev[level] = x
		}
	}
	return x.tower[0]
}

// findLessThan returns the last node with key < key, or nil when there is none.
func (s *Skiplist) findLessThan(key []byte) *node {
	x := s.head
	for level := s.height - 1; level >= 0; level-- {
		for next := x.tower[level]; next != nil && CompareKeys(next.entry.Key, key) < 0; next = x.tower[level] {
			x = next
		}
	}
	if x == s.head {
		return nil
	}
	return x
}

func (s *Skiplist) findLast() *node {
	x := s.head
	for level := s.height - 1; level >= 0; level-- {
		for x.tower[level] != nil {
			x = x.tower[level]
		}
	}
	if x == s.head {
		return nil
	}
	return x
}

// Add inserts entry. An existing key is only replaced when entry carries a
// strictly higher version, so replaying an older record never rolls a key back.
// It reports whether the list changed.
func (s *Skiplist) Add(entry *Entry) bool {
	var prev [maxHeight]*node
	x := s.findGreaterOrEqual(entry.Key, prev[:])
	if x != nil && SameKey(x.entry.Key, entry.Key) {
		if entry.Version <= x.entry.Version {
			return false
		}
		s.memSize += int64(len(entry.Value) - len(x.entry.Value))
		x.entry = entry
		return true
	}

	h := s.randomHeight()
	if h > s.height {
		for i := s.height; i < h; i++ {
			prev[i] = s.head
		}
		s.height = h
	}

	nd := &node{entry: entry, tower: make([]*node, h)}
	for i := 0; i < h; i++ {
		nd.tower[i] = prev[i].tower[i]
		prev[i].tower[i] = nd
	}
	s.length++
	s.memSize += int64(entry.EstimateSize())
	return true
}

// Search returns the latest entry for key, tombstones included, or nil.
func (s *Skiplist) Search(key []byte) *Entry {
	x := s.findGreaterOrEqual(key, nil)
	if x == nil || !SameKey(key, x.entry.Key) {
		return nil
	}
	return x.entry
}

// Len is the number of distinct keys, tombstones included.
func (s *Skiplist) Len() int64 {
	return s.length
}

// MemSize _
func (s *Skiplist) MemSize() int64 {
	return s.memSize
}

// Draw prints every level of the list, top level first.
func (s *Skiplist) Draw() string {
	var sb strings.Builder
	for level := s.height - 1; level >= 0; level-- {
		fmt.Fprintf(&sb, "%d: ", level)
		var parts []string
		for next := s.head.tower[level]; next != nil; next = next.tower[level] {
			parts = append(parts, fmt.Sprintf("%s(%s)", next.entry.Key, next.entry.Value))
		}
		sb.WriteString(strings.Join(parts, "->"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SkipListIterator walks the list in key order. IsAsc=false walks it backwards.
type SkipListIterator struct {
	list *Skiplist
	n    *node
	asc  bool
}

func (s *Skiplist) NewSkipListIterator(opt *Options) *SkipListIterator {
	s.IncrRef()
	asc := true
	if opt != nil {
		asc = opt.IsAsc
	}
	return &SkipListIterator{
		list: s,
		asc:  asc,
	}
}

func (s *SkipListIterator) Rewind() {
	if s.asc {
		s.n = s.list.head.tower[0]
		return
	}
	s.n = s.list.findLast()
}

// Seek positions at the first key >= key (ascending) or the last key <= key (descending).
func (s *SkipListIterator) Seek(key []byte) {
	if s.asc {
		s.n = s.list.findGreaterOrEqual(key, nil)
		return
	}
	x := s.list.findGreaterOrEqual(key, nil)
	if x != nil && SameKey(x.entry.Key, key) {
		s.n = x
		return
	}
	s.n = s.list.findLessThan(key)
}

func (s *SkipListIterator) Next() {
	AssertTrue(s.Valid())
	if s.asc {
		s.n = s.n.tower[0]
		return
	}
	s.n = s.list.findLessThan(s.n.entry.Key)
}

func (s *SkipListIterator) Valid() bool {
	return s.n != nil
}

func (s *SkipListIterator) Item() Item {
	return s.n.entry
}

func (s *SkipListIterator) Key() []byte {
	return s.n.entry.Key
}

func (s *SkipListIterator) Close() error {
	s.list.DecrRef()
	return nil
}
