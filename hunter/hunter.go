package hunter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lixenwraith/swim-mill/grid"
	"github.com/lixenwraith/swim-mill/parameter"
)

// Hunter is the private state of the single pursuing worker
// Its row is fixed to the waterline; only the column moves
type Hunter struct {
	row int
	col int
}

// New returns a hunter at the home position, not yet placed on a board
func New() *Hunter {
	return &Hunter{row: parameter.HunterRow, col: parameter.HunterHomeCol}
}

// Position returns the hunter's current cell
func (h *Hunter) Position() (row, col int) {
	return h.row, h.col
}

// Place marks the hunter's current cell, keeping any target already there
func (h *Hunter) Place(b *grid.Board) {
	b.Set(h.row, h.col, b.At(h.row, h.col).WithHunter())
}

// Step scans for the nearest target and moves at most one column toward it
// Returns the column after the move
func (h *Hunter) Step(b *grid.Board) int {
	goal := NearestTargetColumn(b, h.row, h.col)
	next := NextColumn(h.col, goal)
	if next == h.col {
		return h.col
	}

	b.Set(h.row, h.col, b.At(h.row, h.col).WithoutHunter())
	h.col = next
	b.Set(h.row, h.col, b.At(h.row, h.col).WithHunter())
	return h.col
}

// Options tunes the worker loop
type Options struct {
	// Tick is the sleep between steps
	Tick time.Duration

	// Dump receives the rendered grid after every mutation; nil disables it
	Dump io.Writer
}

// Run places the hunter and steps it once per tick until ctx is cancelled
// There is no natural end; a cancelled context is a clean stop and returns nil
// The lock is only held for one place or one scan-plus-move, never across the sleep
func Run(ctx context.Context, g grid.Locker, h *Hunter, opts Options) error {
	if opts.Tick <= 0 {
		return fmt.Errorf("hunter: tick must be positive, got %v", opts.Tick)
	}

	err := g.WithLock(ctx, func(b *grid.Board) error {
		h.Place(b)
		grid.Dump(opts.Dump, b)
		return nil
	})
	if err != nil {
		return stopped(err)
	}

	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := g.WithLock(ctx, func(b *grid.Board) error {
			h.Step(b)
			grid.Dump(opts.Dump, b)
			return nil
		})
		if err != nil {
			return stopped(err)
		}
	}
}

// stopped maps cancellation observed at lock time to a clean stop
func stopped(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
