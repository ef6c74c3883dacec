package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hardcore-os/minikv/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestManifestCreateReopen(t *testing.T) {
	dir := t.TempDir()
	ok, err := ManifestExists(dir)
	require.NoError(t, err)
	assert.False(t, ok)

	mf, err := OpenManifest(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mf.WalID)
	assert.NotZero(t, mf.CreatedAt)

	mf.SetLastSeq(42)
	require.NoError(t, mf.Persist())

	ok, err = ManifestExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(dir, utils.ManifestRewriteFilename))
	assert.True(t, os.IsNotExist(err))

	again, err := OpenManifest(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 42, again.LastSeq)
	assert.Equal(t, mf.CreatedAt, again.CreatedAt)
}

func TestManifestCorrupt(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenManifest(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, utils.ManifestFilename)
	flipByte(t, path, 5)
	_, err = OpenManifest(dir)
	assert.ErrorIs(t, err, utils.ErrBadChecksum)

	require.NoError(t, os.WriteFile(path, []byte("nope, not a manifest"), 0666))
	_, err = OpenManifest(dir)
	assert.ErrorIs(t, err, utils.ErrBadMagic)
}

func TestManifestSkipsUnknownFields(t *testing.T) {
	mf := &Manifest{Version: utils.MagicVersion, WalID: 3, LastSeq: 9}
	data := mf.encode()

	// splice a length-delimited field 15 into the body and re-seal it
	body := append([]byte{}, data[len(utils.MagicText):len(data)-8]...)
	body = protowire.AppendTag(body, 15, protowire.BytesType)
	body = protowire.AppendBytes(body, []byte("from the future"))
	sealed := (&Manifest{}).seal(body)

	var got Manifest
	require.NoError(t, got.decode(sealed))
	assert.EqualValues(t, 3, got.WalID)
	assert.EqualValues(t, 9, got.LastSeq)
}
