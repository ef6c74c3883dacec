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
	"testing"

	"github.com/hardcore-os/minikv/utils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	cases := []struct {
		s    *Status
		want string
	}{
		{nil, "OK"},
		{StatusOf(nil), "OK"},
		{newStatus(CodeNotFound, "threefirefire", nil), "NotFound: threefirefire"},
		{newStatus(CodeCorruption, "bad record", nil), "Corruption: bad record"},
		{newStatus(CodeInvalidArgument, "empty key", nil), "Invalid argument: empty key"},
		{newStatus(CodeIOError, "./testdb: does not exist (create_if_missing is false)", nil),
			"IO error: ./testdb: does not exist (create_if_missing is false)"},
		{newStatus(CodeUsage, "", nil), "Usage error: "},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.s.String())
	}
	assert.True(t, StatusOf(nil).OK())
	assert.Equal(t, CodeOK, (*Status)(nil).Code())
	assert.Empty(t, (*Status)(nil).Message())
}

func TestStatusMatching(t *testing.T) {
	st := newStatus(CodeNotFound, "k", utils.ErrKeyNotFound)
	wrapped := fmt.Errorf("lookup: %w", st)

	assert.ErrorIs(t, st, ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, wrapped, utils.ErrKeyNotFound)
	assert.NotErrorIs(t, st, ErrCorruption)
	assert.True(t, IsNotFound(wrapped))
	assert.Same(t, st, StatusOf(wrapped))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code Code
	}{
		{utils.ErrKeyNotFound, CodeNotFound},
		{errors.Wrap(utils.ErrCorruptWAL, "replay"), CodeCorruption},
		{utils.ErrBadChecksum, CodeCorruption},
		{errors.Wrap(utils.ErrBadMagic, "manifest"), CodeCorruption},
		{utils.ErrDBClosed, CodeUsage},
		{utils.ErrEmptyKey, CodeInvalidArgument},
		{errors.Wrap(utils.ErrValueTooLarge, "put"), CodeInvalidArgument},
		{errors.Wrap(utils.ErrLockHeld, "lock"), CodeIOError},
		{errors.New("disk on fire"), CodeIOError},
	}
	for _, c := range cases {
		st := StatusOf(c.err)
		assert.Equal(t, c.code, st.Code(), c.err.Error())
		assert.Equal(t, c.err.Error(), st.Message())
		assert.ErrorIs(t, st, c.err)
	}
	assert.NoError(t, toStatus(nil))
}
