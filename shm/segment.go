//go:build unix

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/lixenwraith/swim-mill/grid"
)

// Segment layout: header followed by the grid cells
//
//	[0:4] magic "SWIM"
//	[4]   layout version
//	[5:8] reserved
//	[8:]  grid.Size cell bytes, row-major
const (
	headerSize    = 8
	segmentSize   = headerSize + grid.Size
	layoutVersion = 1
)

var magic = [4]byte{'S', 'W', 'I', 'M'}

var (
	ErrNotFound  = errors.New("shm: segment not found")
	ErrCorrupt   = errors.New("shm: segment corrupt")
	ErrDetached  = errors.New("shm: segment detached")
	ErrNotOwner  = errors.New("shm: only the creator may destroy the segment")
	ErrNotHeld   = errors.New("shm: lock not held")
	errBadLength = errors.New("shm: segment has wrong size")
)

// Segment is a process-local handle on the shared grid and its lock
// The grid lives in a memory-mapped file; the lock is an exclusive flock on that file
// Every handle has its own open file description, so handles in one process exclude each other as separate processes do
type Segment struct {
	path  string
	owner bool

	// local serializes goroutines sharing this handle; flock alone does not, since it is per open file description
	local sync.Mutex

	mu       sync.Mutex // Guards file, data, board, held
	file     *os.File
	data     []byte
	board    *grid.Board
	held     bool
	detached bool
}

// Create allocates the segment at path with every cell blank and the lock available
// A stale segment left by a crashed run is truncated and reinitialized
func Create(path string) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	if err := f.Truncate(segmentSize); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shm: size %s: %w", path, err)
	}

	s, err := mapSegment(path, f, true)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	copy(s.data[0:4], magic[:])
	s.data[4] = layoutVersion
	s.board.Reset()
	return s, nil
}

// Attach maps an existing segment and checks its header and cells; workers never create or destroy
func Attach(path string) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("shm: attach %s: %w", path, err)
	}

	s, err := mapSegment(path, f, false)
	if err != nil {
		return nil, err
	}
	if [4]byte(s.data[0:4]) != magic || s.data[4] != layoutVersion {
		s.Detach()
		return nil, fmt.Errorf("%w: %s: header mismatch", ErrCorrupt, path)
	}
	if err := s.WithLock(context.Background(), func(b *grid.Board) error { return b.Validate() }); err != nil {
		s.Detach()
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	return s, nil
}

func mapSegment(path string, f *os.File, owner bool) (*Segment, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if info.Size() != segmentSize {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", errBadLength, path, info.Size(), segmentSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, segmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	board, err := grid.Wrap(data[headerSize:])
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}

	return &Segment{
		path:  path,
		owner: owner,
		file:  f,
		data:  data,
		board: board,
	}, nil
}

// Path returns the segment location
func (s *Segment) Path() string {
	return s.path
}

// Acquire blocks until the caller is the sole holder of the grid lock
func (s *Segment) Acquire() error {
	s.local.Lock()

	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		s.local.Unlock()
		return ErrDetached
	}
	fd := int(s.file.Fd())
	s.mu.Unlock()

	for {
		err := unix.Flock(fd, unix.LOCK_EX)
		if err == nil {
			break
		}
		if err == unix.EINTR {
			continue
		}
		s.local.Unlock()
		return fmt.Errorf("shm: lock %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Detached while waiting: the lock went away with the descriptor
	if s.detached {
		s.local.Unlock()
		return ErrDetached
	}
	s.held = true
	return nil
}

// Release relinquishes the grid lock
func (s *Segment) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		return ErrNotHeld
	}

	s.held = false
	err := unix.Flock(int(s.file.Fd()), unix.LOCK_UN)
	s.local.Unlock()
	if err != nil {
		return fmt.Errorf("shm: unlock %s: %w", s.path, err)
	}
	return nil
}

// WithLock runs fn on the board while holding the grid lock
// If ctx is already done once the lock is granted, the lock is released without calling fn
func (s *Segment) WithLock(ctx context.Context, fn func(b *grid.Board) error) (err error) {
	if err := s.Acquire(); err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.board)
}

// Snapshot copies the grid under the lock
func (s *Segment) Snapshot(ctx context.Context) ([grid.Rows][grid.Cols]grid.Cell, error) {
	var out [grid.Rows][grid.Cols]grid.Cell
	err := s.WithLock(ctx, func(b *grid.Board) error {
		out = b.Snapshot()
		return nil
	})
	return out, err
}

// Detach unmaps the segment and closes the handle; safe to call more than once
// A held lock is dropped with the descriptor
func (s *Segment) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	s.detached = true

	var errs []error
	if err := unix.Munmap(s.data); err != nil {
		errs = append(errs, fmt.Errorf("shm: munmap %s: %w", s.path, err))
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("shm: close %s: %w", s.path, err))
	}
	if s.held {
		s.held = false
		s.local.Unlock()
	}
	s.data = nil
	s.board = nil
	return errors.Join(errs...)
}

// Destroy detaches and removes the segment; only the creating handle may destroy
// Both steps are attempted even if the first fails
func (s *Segment) Destroy() error {
	if !s.owner {
		return ErrNotOwner
	}

	var errs []error
	if err := s.Detach(); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("shm: remove %s: %w", s.path, err))
	}
	return errors.Join(errs...)
}
