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
	"hash/crc32"
	"math"
	"os"
)

// file
const (
	ManifestFilename        = "MANIFEST"
	ManifestRewriteFilename = "REWRITEMANIFEST"
	LockFilename            = "LOCK"
	WalFileExt              = ".wal"
	DefaultFileFlag         = os.O_RDWR | os.O_CREATE | os.O_APPEND
	DefaultFileMode         = 0666
	DefaultDirMode          = 0755
	// 基于可变长编码,其最可能的编码
	MaxHeaderSize = 30
	// DefaultWALBufferSize is the size of the buffered writer in front of the wal file.
	DefaultWALBufferSize = 64 << 10
	// DefaultMaxValueSize _
	DefaultMaxValueSize = 64 << 20
	// MaxKeySize keys are limited to what fits in a uint16.
	MaxKeySize = 1<<16 - 1
)

// wal frame
const (
	// WalFrameHeaderSize | payload len 4B | crc32c(payload len) 4B |
	WalFrameHeaderSize = 8
	// WalFrameOverhead is what a frame adds around its payload.
	WalFrameOverhead = WalFrameHeaderSize + crc32.Size
	// MaxWalPayloadSize bounds one write, the payload length is a uint32.
	MaxWalPayloadSize = math.MaxUint32
)

// meta
const (
	BitDelete byte = 1 << 0 // Set if the key has been deleted.
)

// codec
var (
	MagicText    = [4]byte{'M', 'K', 'V', '1'}
	MagicVersion = uint32(1)
	// CastagnoliCrcTable is a CRC32 polynomial table
	CastagnoliCrcTable = crc32.MakeTable(crc32.Castagnoli)
)
