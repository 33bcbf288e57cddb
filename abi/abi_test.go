package abi

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandle(t *testing.T) Handle {
	t.Helper()
	h, err := New(Options{LearningPath: filepath.Join(t.TempDir(), "learning.tsv")})
	require.NoError(t, err)
	t.Cleanup(func() { Free(h) })
	return h
}

func TestUnknownHandleReturnsFfiError(t *testing.T) {
	_, err := ProcessKey(Handle(99999), 'a', 0, false)
	require.Error(t, err)

	_, err = IsEmpty(Handle(99999))
	require.Error(t, err)
}

func TestProcessKeyRoundTripThroughHandle(t *testing.T) {
	h := newHandle(t)

	consumed, err := ProcessKey(h, 'k', 0, false)
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = ProcessKey(h, 'a', 0, false)
	require.NoError(t, err)
	assert.True(t, consumed)

	has, err := HasPreedit(h)
	require.NoError(t, err)
	assert.True(t, has)

	text, err := GetPreedit(h)
	require.NoError(t, err)
	assert.Equal(t, "か", text)

	n, err := PreeditLen(h)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCommitAndIsEmpty(t *testing.T) {
	h := newHandle(t)
	_, err := ProcessKey(h, 'k', 0, false)
	require.NoError(t, err)

	require.NoError(t, Commit(h))

	hasCommit, err := HasCommit(h)
	require.NoError(t, err)
	assert.True(t, hasCommit)

	empty, err := IsEmpty(h)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestSetSurroundingTextRejectsInvalidUTF8(t *testing.T) {
	h := newHandle(t)
	err := SetSurroundingText(h, string([]byte{0xff, 0xfe}), 0)
	assert.Error(t, err)
}

func TestResetClearsHandle(t *testing.T) {
	h := newHandle(t)
	_, err := ProcessKey(h, 'k', 0, false)
	require.NoError(t, err)

	require.NoError(t, Reset(h))

	empty, err := IsEmpty(h)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestFreeInvalidatesHandle(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)
	Free(h)

	_, err = IsEmpty(h)
	assert.Error(t, err)
}

