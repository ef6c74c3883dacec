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

	"github.com/hardcore-os/minikv/utils"
)

// WriteBatch collects puts and deletes that DB.Write applies atomically.
type WriteBatch struct {
	entries []*utils.Entry
	size    int
}

// NewWriteBatch _
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put copies key and value into the batch.
func (b *WriteBatch) Put(key, value []byte) {
	e := utils.NewEntry(bytes.Clone(key), bytes.Clone(value))
	b.entries = append(b.entries, e)
	b.size += utils.EstimateWalCodecSize(e)
}

// Delete copies key into the batch as a tombstone.
func (b *WriteBatch) Delete(key []byte) {
	e := utils.NewTombstone(bytes.Clone(key))
	b.entries = append(b.entries, e)
	b.size += utils.EstimateWalCodecSize(e)
}

// Len _
func (b *WriteBatch) Len() int {
	return len(b.entries)
}

// ApproximateSize is an upper bound of the bytes the batch adds to the wal.
func (b *WriteBatch) ApproximateSize() int {
	if len(b.entries) == 0 {
		return 0
	}
	return b.size + binary.MaxVarintLen64 + utils.WalFrameOverhead
}

// Reset empties the batch for reuse.
func (b *WriteBatch) Reset() {
	b.entries = b.entries[:0]
	b.size = 0
}
