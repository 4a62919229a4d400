package grid

import (
	"context"
	"sync"
)

// Locker runs fn on the board while holding the grid lock
// Implementations skip fn and return ctx.Err() when ctx is done by the time the lock is granted
type Locker interface {
	WithLock(ctx context.Context, fn func(b *Board) error) error
}

// Guarded is an in-process Locker over a private board
// Goroutine-level stand-in for the shared segment, used where no second process is involved
type Guarded struct {
	mu    sync.Mutex
	board *Board
}

// NewGuarded returns a blank guarded board
func NewGuarded() *Guarded {
	return &Guarded{board: NewBoard()}
}

func (g *Guarded) WithLock(ctx context.Context, fn func(b *Board) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(g.board)
}
