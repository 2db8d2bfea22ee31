package scanner

import "fmt"

// EOF is returned by Buffer.Next when the cursor is past the last rune.
const EOF rune = -1

// Buffer holds the text being processed together with a read cursor.
//
// Unlike an ordinary reader, the content is mutable: Splice replaces a span
// in place, which is how the engine substitutes an expansion for the
// invocation that produced it. All positions are rune offsets.
type Buffer struct {
	data  []rune // current content, rewritten by Splice
	index int    // read cursor
	mark  int    // last checkpoint
}

// NewBuffer creates a buffer over input with the cursor at the start.
func NewBuffer(input string) *Buffer {
	return &Buffer{
		data: []rune(input),
	}
}

// Next returns the rune under the cursor and advances past it.
// At the end of the content it returns EOF and leaves the cursor alone.
func (b *Buffer) Next() rune {
	if b.index >= len(b.data) {
		return EOF
	}
	r := b.data[b.index]
	b.index++
	return r
}

// Pushback moves the cursor n runes back, stopping at the start.
func (b *Buffer) Pushback(n int) {
	b.index -= n
	if b.index < 0 {
		b.index = 0
	}
}

// Mark records the cursor as the checkpoint and returns it.
func (b *Buffer) Mark() int {
	b.mark = b.index
	return b.mark
}

// Restore moves the cursor back to the last checkpoint.
func (b *Buffer) Restore() {
	b.index = b.mark
}

// Splice replaces the span [from, to) with text.
//
// The cursor and the checkpoint are clamped to the new content length so
// they always stay valid; callers that want the inserted text rescanned
// follow Splice with Restore.
func (b *Buffer) Splice(text string, from, to int) error {
	if from < 0 || to < from || to > len(b.data) {
		return fmt.Errorf("invalid splice span [%d, %d) in buffer of length %d", from, to, len(b.data))
	}

	insert := []rune(text)
	data := make([]rune, 0, len(b.data)-(to-from)+len(insert))
	data = append(data, b.data[:from]...)
	data = append(data, insert...)
	data = append(data, b.data[to:]...)
	b.data = data

	if b.index > len(b.data) {
		b.index = len(b.data)
	}
	if b.mark > len(b.data) {
		b.mark = len(b.data)
	}
	return nil
}

// Pos returns the cursor position.
func (b *Buffer) Pos() int { return b.index }

// Len returns the content length in runes.
func (b *Buffer) Len() int { return len(b.data) }

// Slice returns the content of [from, to), clamped to the buffer bounds.
func (b *Buffer) Slice(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(b.data) {
		to = len(b.data)
	}
	if from >= to {
		return ""
	}
	return string(b.data[from:to])
}

// String returns the whole current content.
func (b *Buffer) String() string {
	return string(b.data)
}
