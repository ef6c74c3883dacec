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
	"fmt"
	"os"
	"testing"

	"github.com/hardcore-os/minikv/file"
	"github.com/hardcore-os/minikv/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it utils.Iterator) []string {
	t.Helper()
	var out []string
	for it.Rewind(); it.Valid(); it.Next() {
		e := it.Item().Entry()
		out = append(out, string(e.Key)+"="+string(e.Value))
	}
	require.NoError(t, it.Close())
	return out
}

func TestIterator(t *testing.T) {
	db := openTestDB(t, newTestOptions(t))
	defer db.Close()

	for _, k := range []string{"b", "a", "ab", "c", "abc", "d"} {
		require.NoError(t, db.Put(nil, []byte(k), []byte("v"+k)))
	}
	require.NoError(t, db.Delete(nil, []byte("c")))

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a=va", "ab=vab", "abc=vabc", "b=vb", "d=vd"}, collect(t, it))

	it, err = db.NewIterator(&utils.Options{Prefix: []byte("ab"), IsAsc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ab=vab", "abc=vabc"}, collect(t, it))

	it, err = db.NewIterator(&utils.Options{IsAsc: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"d=vd", "b=vb", "abc=vabc", "ab=vab", "a=va"}, collect(t, it))

	it, err = db.NewIterator(&utils.Options{Prefix: []byte("zz"), IsAsc: true})
	require.NoError(t, err)
	assert.Empty(t, collect(t, it))
}

func TestIteratorSeek(t *testing.T) {
	db := openTestDB(t, newTestOptions(t))
	defer db.Close()
	for i := 0; i < 10; i += 2 {
		require.NoError(t, db.Put(nil, []byte(fmt.Sprintf("k%d", i)), nil))
	}

	it, err := db.NewIterator(&utils.Options{IsAsc: true})
	require.NoError(t, err)
	it.Seek([]byte("k3"))
	require.True(t, it.Valid())
	assert.Equal(t, "k4", string(it.Item().Entry().Key))
	it.Seek([]byte("k9"))
	assert.False(t, it.Valid())

	it, err = db.NewIterator(&utils.Options{IsAsc: false})
	require.NoError(t, err)
	it.Seek([]byte("k3"))
	require.True(t, it.Valid())
	assert.Equal(t, "k2", string(it.Item().Entry().Key))
}

func TestIteratorSnapshot(t *testing.T) {
	db := openTestDB(t, newTestOptions(t))
	defer db.Close()
	require.NoError(t, db.Put(nil, []byte("a"), []byte("1")))

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	require.NoError(t, db.Put(nil, []byte("a"), []byte("2")))
	require.NoError(t, db.Put(nil, []byte("b"), []byte("2")))
	assert.Equal(t, []string{"a=1"}, collect(t, it))
}

func TestWriteBatch(t *testing.T) {
	opt := newTestOptions(t)
	db := openTestDB(t, opt)

	require.NoError(t, db.Put(nil, []byte("gone"), []byte("x")))
	b := NewWriteBatch()
	key := []byte("k1")
	b.Put(key, []byte("v1"))
	key[1] = '2'
	b.Put(key, []byte("v2"))
	b.Delete([]byte("gone"))
	b.Put([]byte("k1"), []byte("v1b"))
	assert.Equal(t, 4, b.Len())
	assert.Positive(t, b.ApproximateSize())

	require.NoError(t, db.Write(&WriteOptions{Sync: true}, b))
	require.NoError(t, db.Close())

	db = openTestDB(t, opt)
	defer db.Close()
	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1=v1b", "k2=v2"}, collect(t, it))
	assert.EqualValues(t, 2, db.Info().EntryNum.Load())

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Zero(t, b.ApproximateSize())
	require.NoError(t, db.Write(nil, b))
}

func TestWriteBatchRejectsInvalid(t *testing.T) {
	opt := newTestOptions(t)
	db := openTestDB(t, opt)
	defer db.Close()

	b := NewWriteBatch()
	b.Put([]byte("ok"), []byte("v"))
	b.Put(nil, []byte("v"))
	assert.ErrorIs(t, db.Write(nil, b), ErrInvalidArgument)

	_, err := db.Get([]byte("ok"))
	assert.True(t, IsNotFound(err))
	fi, err := os.Stat(file.WalFilePath(opt.WorkDir, 1))
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}
