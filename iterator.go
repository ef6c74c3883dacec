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
	"sort"

	"github.com/hardcore-os/minikv/lsm"
	"github.com/hardcore-os/minikv/utils"
)

// DBIterator is a point-in-time view of the live keys. Writes made after
// NewIterator returns are not visible to it.
type DBIterator struct {
	items []*utils.Entry
	pos   int
	asc   bool
}

// NewIterator snapshots the live entries matching opt.Prefix. A nil opt
// iterates every key in ascending order.
func (db *DB) NewIterator(opt *utils.Options) (utils.Iterator, error) {
	if opt == nil {
		opt = &utils.Options{IsAsc: true}
	}
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return nil, newStatus(CodeUsage, "iterator: DB is closed", utils.ErrDBClosed)
	}

	it := db.lsm.NewIterator(&utils.Options{IsAsc: true})
	defer it.Close()
	items := make([]*utils.Entry, 0)
	for it.Seek(opt.Prefix); it.Valid(); it.Next() {
		e := it.Item().Entry()
		if !bytes.HasPrefix(e.Key, opt.Prefix) {
			break
		}
		if lsm.IsDeletedOrExpired(e) {
			continue
		}
		items = append(items, e.Clone())
	}
	if !opt.IsAsc {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return &DBIterator{items: items, asc: opt.IsAsc}, nil
}

func (iter *DBIterator) Next() {
	iter.pos++
}

func (iter *DBIterator) Valid() bool {
	return iter.pos >= 0 && iter.pos < len(iter.items)
}

func (iter *DBIterator) Rewind() {
	iter.pos = 0
}

// Seek moves to the first key >= key, or <= key when iterating backwards.
func (iter *DBIterator) Seek(key []byte) {
	if iter.asc {
		iter.pos = sort.Search(len(iter.items), func(i int) bool {
			return bytes.Compare(iter.items[i].Key, key) >= 0
		})
		return
	}
	iter.pos = sort.Search(len(iter.items), func(i int) bool {
		return bytes.Compare(iter.items[i].Key, key) <= 0
	})
}

func (iter *DBIterator) Item() utils.Item {
	return iter.items[iter.pos]
}

func (iter *DBIterator) Close() error {
	iter.items = nil
	return nil
}
