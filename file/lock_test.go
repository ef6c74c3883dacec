package file

import (
	"testing"

	"github.com/hardcore-os/minikv/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirLockExclusive(t *testing.T) {
	dir := t.TempDir()
	l, err := AcquireDirLock(dir)
	require.NoError(t, err)

	_, err = AcquireDirLock(dir)
	assert.ErrorIs(t, err, utils.ErrLockHeld)

	require.NoError(t, l.Release())
	l2, err := AcquireDirLock(dir)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
