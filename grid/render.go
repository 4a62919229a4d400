package grid

import (
	"bytes"
	"io"
	"log"
)

// Render writes the board as a bordered table, one "|c|c|...|" line per row, preceded by a blank line
// Output is assembled first and written once so concurrent dumps from several processes do not interleave mid-table
func Render(w io.Writer, b *Board) error {
	var buf bytes.Buffer
	buf.Grow(1 + Rows*(2*Cols+2))
	buf.WriteByte('\n')
	for row := 0; row < Rows; row++ {
		buf.WriteByte('|')
		for col := 0; col < Cols; col++ {
			buf.WriteByte(b.At(row, col).Glyph())
			buf.WriteByte('|')
		}
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Dump renders b to w when w is non-nil
// The dump is diagnostic; a write failure is logged and otherwise ignored
func Dump(w io.Writer, b *Board) {
	if w == nil {
		return
	}
	if err := Render(w, b); err != nil {
		log.Printf("grid dump failed: %v", err)
	}
}
