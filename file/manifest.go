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
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hardcore-os/minikv/utils"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// manifest field numbers
const (
	fieldVersion   protowire.Number = 1
	fieldWalID     protowire.Number = 2
	fieldLastSeq   protowire.Number = 3
	fieldCreatedAt protowire.Number = 4
)

// Manifest 维护DB目录元信息的文件
//
//	| magic "MKV1" | protowire fields | xxhash64(fields) 8B BE |
type Manifest struct {
	lock *sync.Mutex
	dir  string

	Version   uint32
	WalID     uint64
	LastSeq   uint64
	CreatedAt int64
}

// ManifestExists reports whether dir already holds a manifest.
func ManifestExists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, utils.ManifestFilename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat manifest in %s", dir)
}

// OpenManifest loads <dir>/MANIFEST, or writes a fresh one when absent.
func OpenManifest(dir string) (*Manifest, error) {
	mf := &Manifest{
		lock: &sync.Mutex{},
		dir:  dir,
	}
	path := filepath.Join(dir, utils.ManifestFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// 如果是新创建的数据库则直接写入初始manifest
		mf.Version = utils.MagicVersion
		mf.WalID = 1
		mf.CreatedAt = time.Now().Unix()
		return mf, mf.Persist()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	if err := mf.decode(data); err != nil {
		return nil, errors.Wrapf(err, "decode manifest %s", path)
	}
	return mf, nil
}

func (mf *Manifest) encode() []byte {
	body := make([]byte, 0, 32)
	body = protowire.AppendTag(body, fieldVersion, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(mf.Version))
	body = protowire.AppendTag(body, fieldWalID, protowire.VarintType)
	body = protowire.AppendVarint(body, mf.WalID)
	body = protowire.AppendTag(body, fieldLastSeq, protowire.VarintType)
	body = protowire.AppendVarint(body, mf.LastSeq)
	body = protowire.AppendTag(body, fieldCreatedAt, protowire.VarintType)
	body = protowire.AppendVarint(body, protowire.EncodeZigZag(mf.CreatedAt))
	return mf.seal(body)
}

func (mf *Manifest) seal(body []byte) []byte {
	out := make([]byte, 0, len(utils.MagicText)+len(body)+8)
	out = append(out, utils.MagicText[:]...)
	out = append(out, body...)
	return binary.BigEndian.AppendUint64(out, xxhash.Sum64(body))
}

func (mf *Manifest) decode(data []byte) error {
	if len(data) < len(utils.MagicText)+8 || !bytes.Equal(data[:len(utils.MagicText)], utils.MagicText[:]) {
		return utils.ErrBadMagic
	}
	body := data[len(utils.MagicText) : len(data)-8]
	if xxhash.Sum64(body) != utils.BytesToU64(data[len(data)-8:]) {
		return utils.ErrBadChecksum
	}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return protowire.ParseError(n)
		}
		body = body[n:]
		if typ != protowire.VarintType {
			// unknown field from a newer writer
			n = protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return protowire.ParseError(n)
			}
			body = body[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(body)
		if n < 0 {
			return protowire.ParseError(n)
		}
		body = body[n:]
		switch num {
		case fieldVersion:
			mf.Version = uint32(v)
		case fieldWalID:
			mf.WalID = v
		case fieldLastSeq:
			mf.LastSeq = v
		case fieldCreatedAt:
			mf.CreatedAt = protowire.DecodeZigZag(v)
		}
	}
	if mf.Version != utils.MagicVersion {
		return errors.Wrapf(utils.ErrBadMagic, "unsupported manifest version %d", mf.Version)
	}
	return nil
}

// SetLastSeq records the highest sequence made durable by a clean close.
func (mf *Manifest) SetLastSeq(seq uint64) {
	mf.lock.Lock()
	defer mf.lock.Unlock()
	mf.LastSeq = seq
}

// Persist rewrites the manifest through REWRITEMANIFEST and a rename.
func (mf *Manifest) Persist() error {
	mf.lock.Lock()
	defer mf.lock.Unlock()

	tmp := filepath.Join(mf.dir, utils.ManifestRewriteFilename)
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, utils.DefaultFileMode)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}
	if _, err := f.Write(mf.encode()); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, filepath.Join(mf.dir, utils.ManifestFilename)); err != nil {
		return errors.Wrap(err, "rename manifest")
	}
	return syncDir(mf.dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "open dir %s", dir)
	}
	defer d.Close()
	// directories cannot be fsynced on every platform
	_ = d.Sync()
	return nil
}
