package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertAdvancesCursor(t *testing.T) {
	b := New()
	b.Insert("こんにちは")
	assert.Equal(t, "こんにちは", b.Text())
	assert.Equal(t, 5, b.Cursor())
}

func TestInsertMidBuffer(t *testing.T) {
	b := New()
	b.Insert("こんは")
	b.SetCursor(2)
	b.Insert("んにち")
	assert.Equal(t, "こんんにちは", b.Text())
	assert.Equal(t, 5, b.Cursor())
}

func TestBackspace(t *testing.T) {
	b := New()
	b.Insert("あい")
	assert.True(t, b.Backspace())
	assert.Equal(t, "あ", b.Text())
	assert.Equal(t, 1, b.Cursor())

	assert.True(t, b.Backspace())
	assert.False(t, b.Backspace()) // already at 0
	assert.True(t, b.Empty())
}

func TestDeleteForward(t *testing.T) {
	b := New()
	b.Insert("あいう")
	b.MoveHome()
	assert.True(t, b.DeleteForward())
	assert.Equal(t, "いう", b.Text())
	assert.Equal(t, 0, b.Cursor())

	b.MoveEnd()
	assert.False(t, b.DeleteForward()) // nothing after cursor
}

func TestMoveLeftRightSaturate(t *testing.T) {
	b := New()
	b.Insert("ab")
	assert.True(t, b.MoveLeft())
	assert.True(t, b.MoveLeft())
	assert.False(t, b.MoveLeft()) // already at 0
	assert.Equal(t, 0, b.Cursor())

	b.MoveEnd()
	assert.False(t, b.MoveRight()) // already at end
}

// TestCursorMonotonicity is the §8 property: cursor never falls outside
// [0, Len()] through any sequence of operations.
func TestCursorMonotonicity(t *testing.T) {
	b := New()
	ops := []func(){
		func() { b.Insert("あ") },
		func() { b.Backspace() },
		func() { b.DeleteForward() },
		func() { b.MoveLeft() },
		func() { b.MoveRight() },
		func() { b.MoveHome() },
		func() { b.MoveEnd() },
	}
	for i := 0; i < 200; i++ {
		ops[i%len(ops)]()
		assert.GreaterOrEqual(t, b.Cursor(), 0)
		assert.LessOrEqual(t, b.Cursor(), b.Len())
	}
}

func TestTextBeforeAfterCursor(t *testing.T) {
	b := New()
	b.Insert("さくらさく")
	b.SetCursor(3)
	assert.Equal(t, "さくら", b.TextBeforeCursor())
	assert.Equal(t, "さく", b.TextAfterCursor())
}

func TestClear(t *testing.T) {
	b := New()
	b.Insert("test")
	b.Clear()
	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.Cursor())
	assert.Equal(t, "", b.Text())
}

func TestSetCursorClamps(t *testing.T) {
	b := New()
	b.Insert("ab")
	b.SetCursor(-5)
	assert.Equal(t, 0, b.Cursor())
	b.SetCursor(100)
	assert.Equal(t, 2, b.Cursor())
}
