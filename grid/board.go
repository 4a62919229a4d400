package grid

import (
	"fmt"

	"github.com/lixenwraith/swim-mill/parameter"
)

const (
	Rows = parameter.GridRows
	Cols = parameter.GridCols
	Size = parameter.GridCells
)

// Board is a row-major view over the grid cell bytes
// The backing slice is either owned (NewBoard) or the mapped shared region (Wrap)
// Board performs no locking; callers hold the grid lock around every access
type Board struct {
	cells []byte
}

// NewBoard returns a blank board backed by private memory
func NewBoard() *Board {
	b := &Board{cells: make([]byte, Size)}
	b.Reset()
	return b
}

// Wrap returns a board over buf, which must hold exactly Size bytes
func Wrap(buf []byte) (*Board, error) {
	if len(buf) != Size {
		return nil, fmt.Errorf("grid: board needs %d bytes, got %d", Size, len(buf))
	}
	return &Board{cells: buf}, nil
}

// InBounds reports whether (row, col) lies on the grid
func InBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// At returns the cell at (row, col)
// Panics when out of bounds, as slice indexing would
func (b *Board) At(row, col int) Cell {
	c, _ := CellFromByte(b.cells[index(row, col)])
	return c
}

// Set stores c at (row, col)
func (b *Board) Set(row, col int, c Cell) {
	b.cells[index(row, col)] = c.Byte()
}

// Reset blanks every cell
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i] = byteBlank
	}
}

// HunterCount returns the number of cells holding the hunter
func (b *Board) HunterCount() int {
	n := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if b.At(row, col).HasHunter() {
				n++
			}
		}
	}
	return n
}

// Validate reports the first cell whose byte is outside the encoding
func (b *Board) Validate() error {
	for i, raw := range b.cells {
		if _, ok := CellFromByte(raw); !ok {
			return fmt.Errorf("grid: cell [%d][%d] holds unknown byte 0x%02x", i/Cols, i%Cols, raw)
		}
	}
	return nil
}

// Snapshot copies the decoded cells
func (b *Board) Snapshot() [Rows][Cols]Cell {
	var out [Rows][Cols]Cell
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			out[row][col] = b.At(row, col)
		}
	}
	return out
}

func index(row, col int) int {
	if !InBounds(row, col) {
		panic(fmt.Sprintf("grid: cell [%d][%d] out of bounds", row, col))
	}
	return row*Cols + col
}
