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
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalCodecDecode(t *testing.T) {
	entries := []*Entry{
		NewEntry([]byte("threefirefire"), []byte("threefirefire@gmail.com")).WithVersion(300),
		NewTombstone([]byte("threefire")).WithVersion(1 << 40),
		NewEntry([]byte("empty"), nil).WithVersion(301),
	}
	var buf bytes.Buffer
	n := WalCodec(&buf, entries)
	require.Equal(t, buf.Len(), n)

	estimate := WalFrameOverhead + 1
	for _, e := range entries {
		estimate += EstimateWalCodecSize(e)
	}
	assert.LessOrEqual(t, n, estimate)

	frame := buf.Bytes()
	plen := BytesToU32(frame[:4])
	assert.EqualValues(t, n-WalFrameOverhead, plen)
	assert.Equal(t, crc32.Checksum(frame[:4], CastagnoliCrcTable), BytesToU32(frame[4:8]))

	payload := frame[WalFrameHeaderSize : WalFrameHeaderSize+plen]
	reader := NewHashReader(bytes.NewReader(payload))
	_, err := reader.Read(make([]byte, plen))
	require.NoError(t, err)
	assert.Equal(t, reader.Sum32(), BytesToU32(frame[n-crc32.Size:]))
	assert.EqualValues(t, plen, reader.BytesRead)

	got, err := DecodeWalPayload(payload)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[0].Key, got[0].Key)
	assert.Equal(t, entries[0].Value, got[0].Value)
	assert.EqualValues(t, 300, got[0].Version)
	assert.True(t, got[1].IsDeleted())
	assert.EqualValues(t, 1<<40, got[1].Version)
	assert.Empty(t, got[2].Value)
}

func TestWalHeaderTruncated(t *testing.T) {
	var enc [MaxHeaderSize]byte
	n := WalHeader{KeyLen: 1, Meta: BitDelete, Version: 1 << 40}.Encode(enc[:])

	var h WalHeader
	hlen, err := h.Decode(enc[:n])
	require.NoError(t, err)
	assert.Equal(t, n, hlen)

	_, err = h.Decode(enc[:4])
	assert.Error(t, err)
	_, err = h.Decode(nil)
	assert.Error(t, err)
}

func TestDecodeWalPayloadRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	WalCodec(&buf, []*Entry{NewEntry([]byte("k"), []byte("v")).WithVersion(1)})
	payload := buf.Bytes()[WalFrameHeaderSize : buf.Len()-crc32.Size]

	_, err := DecodeWalPayload(payload[:len(payload)-1])
	assert.ErrorIs(t, err, ErrCorruptWAL)
	_, err = DecodeWalPayload(append(append([]byte{}, payload...), 0))
	assert.ErrorIs(t, err, ErrCorruptWAL)
	_, err = DecodeWalPayload(nil)
	assert.ErrorIs(t, err, ErrCorruptWAL)
}
