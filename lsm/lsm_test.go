package lsm

import (
	"fmt"
	"os"
	"testing"

	"github.com/hardcore-os/minikv/file"
	"github.com/hardcore-os/minikv/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLSM(t *testing.T, dir string) *LSM {
	t.Helper()
	l, err := NewLSM(&Options{WorkDir: dir, WalFileID: 1})
	require.NoError(t, err)
	return l
}

func TestLSMSetGetReplay(t *testing.T) {
	dir := t.TempDir()
	l := newTestLSM(t, dir)
	var seq uint64
	for i := 0; i < 50; i++ {
		seq++
		e := utils.NewEntry([]byte(fmt.Sprintf("hello%d", i)), []byte(fmt.Sprintf("world%d", i)))
		require.NoError(t, l.Set(e.WithVersion(seq), i%10 == 0))
	}
	seq++
	require.NoError(t, l.Set(utils.NewTombstone([]byte("hello7")).WithVersion(seq), false))
	seq++
	require.NoError(t, l.Set(utils.NewEntry([]byte("hello8"), []byte("again")).WithVersion(seq), false))
	require.NoError(t, l.Close())

	l = newTestLSM(t, dir)
	defer l.Close()
	assert.EqualValues(t, 52, l.Stats().Replayed)
	assert.EqualValues(t, seq, l.MaxVersion())

	v, err := l.Get([]byte("hello3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("world3"), v.Value)

	v, err = l.Get([]byte("hello7"))
	require.NoError(t, err)
	assert.True(t, IsDeletedOrExpired(v))

	v, err = l.Get([]byte("hello8"))
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), v.Value)

	_, err = l.Get([]byte("nope"))
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
}

func TestLSMSetBatch(t *testing.T) {
	dir := t.TempDir()
	l := newTestLSM(t, dir)
	batch := []*utils.Entry{
		utils.NewEntry([]byte("a"), []byte("1")).WithVersion(1),
		utils.NewEntry([]byte("a"), []byte("2")).WithVersion(2),
		utils.NewTombstone([]byte("b")).WithVersion(3),
	}
	require.NoError(t, l.SetBatch(batch, true))
	require.NoError(t, l.SetBatch(nil, true))

	it := l.NewIterator(&utils.Options{IsAsc: true})
	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Close())
	assert.Equal(t, []string{"a", "b"}, keys)

	v, err := l.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v.Value)
	require.NoError(t, l.Close())
}

func TestLSMTornTailTruncated(t *testing.T) {
	dir := t.TempDir()
	l := newTestLSM(t, dir)
	require.NoError(t, l.Set(utils.NewEntry([]byte("k1"), []byte("v1")).WithVersion(1), true))
	require.NoError(t, l.Set(utils.NewEntry([]byte("k2"), []byte("v2")).WithVersion(2), true))
	size := int64(l.WALSize())
	require.NoError(t, l.Close())

	require.NoError(t, os.Truncate(file.WalFilePath(dir, 1), size-2))

	l = newTestLSM(t, dir)
	assert.EqualValues(t, 1, l.Stats().Replayed)
	assert.Greater(t, l.Stats().TruncatedBytes, int64(0))
	_, err := l.Get([]byte("k2"))
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
	require.NoError(t, l.Set(utils.NewEntry([]byte("k3"), []byte("v3")).WithVersion(2), true))
	require.NoError(t, l.Close())

	l = newTestLSM(t, dir)
	defer l.Close()
	assert.EqualValues(t, 2, l.Stats().Replayed)
	assert.Zero(t, l.Stats().TruncatedBytes)
}
