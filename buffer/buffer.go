// Package buffer implements InputBuffer, the character-indexed composition
// buffer described in spec §4.C. All positions are counted in Unicode
// scalar values (runes), never bytes, since a single kana or kanji never
// spans a cursor position the way a UTF-8 byte sequence would.
package buffer

// Buffer holds the in-progress preedit text and a cursor position expressed
// as a rune index into that text, 0 <= cursor <= len(runes).
type Buffer struct {
	runes  []rune
	cursor int
}

// New returns an empty Buffer with the cursor at position 0.
func New() *Buffer {
	return &Buffer{}
}

// Insert places s at the cursor and advances the cursor past it.
func (b *Buffer) Insert(s string) {
	ins := []rune(s)
	if len(ins) == 0 {
		return
	}
	b.runes = append(b.runes[:b.cursor], append(ins, b.runes[b.cursor:]...)...)
	b.cursor += len(ins)
}

// Backspace deletes the rune immediately before the cursor, if any, and
// reports whether it removed anything.
func (b *Buffer) Backspace() bool {
	if b.cursor == 0 {
		return false
	}
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
	return true
}

// DeleteForward deletes the rune immediately after the cursor, if any, and
// reports whether it removed anything.
func (b *Buffer) DeleteForward() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
	return true
}

// MoveLeft moves the cursor one position left, saturating at 0.
func (b *Buffer) MoveLeft() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	return true
}

// MoveRight moves the cursor one position right, saturating at the end.
func (b *Buffer) MoveRight() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.cursor++
	return true
}

// MoveHome moves the cursor to position 0.
func (b *Buffer) MoveHome() {
	b.cursor = 0
}

// MoveEnd moves the cursor to the end of the buffer.
func (b *Buffer) MoveEnd() {
	b.cursor = len(b.runes)
}

// Clear empties the buffer and resets the cursor to 0.
func (b *Buffer) Clear() {
	b.runes = b.runes[:0]
	b.cursor = 0
}

// Text returns the full buffer contents.
func (b *Buffer) Text() string {
	return string(b.runes)
}

// TextBeforeCursor returns the text to the left of the cursor.
func (b *Buffer) TextBeforeCursor() string {
	return string(b.runes[:b.cursor])
}

// TextAfterCursor returns the text to the right of the cursor.
func (b *Buffer) TextAfterCursor() string {
	return string(b.runes[b.cursor:])
}

// Cursor returns the current cursor position as a rune index.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Len returns the number of runes currently in the buffer.
func (b *Buffer) Len() int {
	return len(b.runes)
}

// Empty reports whether the buffer holds no text.
func (b *Buffer) Empty() bool {
	return len(b.runes) == 0
}

// Replace overwrites the whole buffer with s, placing the cursor at the
// end — used by the Ctrl+K katakana rewrite (§4.H "rewrite buffer to
// katakana") and by Conversion's Escape restore-original-buffer transition.
func (b *Buffer) Replace(s string) {
	b.runes = []rune(s)
	b.cursor = len(b.runes)
}

// SetCursor moves the cursor to an absolute rune index, clamped to
// [0, Len()].
func (b *Buffer) SetCursor(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(b.runes) {
		pos = len(b.runes)
	}
	b.cursor = pos
}
