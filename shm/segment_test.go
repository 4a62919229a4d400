//go:build unix

package shm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/swim-mill/grid"
)

func newTestSegment(t *testing.T) (*Segment, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.grid")
	seg, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { seg.Destroy() })
	return seg, path
}

func TestCreateInitializesBlankGrid(t *testing.T) {
	seg, _ := newTestSegment(t)

	snap, err := seg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for row := range snap {
		for col, c := range snap[row] {
			if c != grid.Blank {
				t.Fatalf("cell [%d][%d] = %v, want blank", row, col, c)
			}
		}
	}
}

// TestAttachSeesCreatorWrites verifies both handles map the same memory
func TestAttachSeesCreatorWrites(t *testing.T) {
	seg, path := newTestSegment(t)
	ctx := context.Background()

	err := seg.WithLock(ctx, func(b *grid.Board) error {
		b.Set(9, 4, grid.Hunter)
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock: %v", err)
	}

	worker, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer worker.Detach()

	var got grid.Cell
	worker.WithLock(ctx, func(b *grid.Board) error {
		got = b.At(9, 4)
		b.Set(0, 0, grid.Target)
		return nil
	})
	if got != grid.Hunter {
		t.Errorf("worker sees %v, want hunter", got)
	}

	snap, _ := seg.Snapshot(ctx)
	if snap[0][0] != grid.Target {
		t.Errorf("creator sees %v at [0][0], want target", snap[0][0])
	}
}

func TestAttachMissing(t *testing.T) {
	_, err := Attach(filepath.Join(t.TempDir(), "absent.grid"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Attach on missing segment: got %v, want ErrNotFound", err)
	}
}

func TestAttachRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.grid")
	if err := os.WriteFile(path, make([]byte, segmentSize), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Attach(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Attach on zeroed file: got %v, want ErrCorrupt", err)
	}
}

func TestAttachRejectsUnknownCellByte(t *testing.T) {
	_, path := newTestSegment(t)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Cell [1][3]
	if _, err := f.WriteAt([]byte{0x7f}, headerSize+13); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = Attach(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Attach with unknown cell byte: got %v, want ErrCorrupt", err)
	}
	if !strings.Contains(err.Error(), "[1][3]") {
		t.Errorf("error %q does not name the cell", err)
	}
}

func TestAttachRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.grid")
	if err := os.WriteFile(path, []byte("SWIM"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Attach(path); err == nil {
		t.Error("Attach should reject a short file")
	}
}

// TestLockExcludesOtherHandles blocks a second handle while the first holds the lock
func TestLockExcludesOtherHandles(t *testing.T) {
	seg, path := newTestSegment(t)

	other, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer other.Detach()

	if err := seg.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := other.Acquire(); err != nil {
			t.Errorf("other Acquire: %v", err)
			return
		}
		close(acquired)
		other.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second handle acquired while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := seg.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second handle never acquired after release")
	}
}

// TestLockSerializesReadModifyWrite runs concurrent increments through separate handles
func TestLockSerializesReadModifyWrite(t *testing.T) {
	seg, path := newTestSegment(t)
	ctx := context.Background()

	const workers = 4
	const rounds = 50

	// Each round toggles the target flag on and off under one lock hold; an unserialized
	// interleaving would let another handle observe the transient Target state
	var wg sync.WaitGroup
	var mu sync.Mutex
	var seen int
	for i := 0; i < workers; i++ {
		h, err := Attach(path)
		if err != nil {
			t.Fatalf("Attach: %v", err)
		}
		defer h.Detach()

		wg.Add(1)
		go func(h *Segment) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				h.WithLock(ctx, func(b *grid.Board) error {
					if b.At(5, 5) != grid.Blank {
						mu.Lock()
						seen++
						mu.Unlock()
					}
					b.Set(5, 5, grid.Target)
					b.Set(5, 5, b.At(5, 5).WithoutTarget())
					return nil
				})
			}
		}(h)
	}
	wg.Wait()

	if seen != 0 {
		t.Errorf("observed %d torn updates", seen)
	}
	snap, _ := seg.Snapshot(ctx)
	if snap[5][5] != grid.Blank {
		t.Errorf("final cell = %v, want blank", snap[5][5])
	}
}

func TestWithLockSkipsCancelled(t *testing.T) {
	seg, _ := newTestSegment(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := seg.WithLock(ctx, func(b *grid.Board) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if called {
		t.Error("fn ran after cancellation")
	}

	// Lock must be free again
	done := make(chan error, 1)
	go func() { done <- seg.WithLock(context.Background(), func(*grid.Board) error { return nil }) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WithLock after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lock left held after cancelled WithLock")
	}
}

func TestReleaseWithoutAcquire(t *testing.T) {
	seg, _ := newTestSegment(t)
	if err := seg.Release(); !errors.Is(err, ErrNotHeld) {
		t.Errorf("got %v, want ErrNotHeld", err)
	}
}

func TestDetachIdempotent(t *testing.T) {
	_, path := newTestSegment(t)

	h, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Detach(); err != nil {
		t.Fatalf("first Detach: %v", err)
	}
	if err := h.Detach(); err != nil {
		t.Errorf("second Detach: %v", err)
	}
	if err := h.Acquire(); !errors.Is(err, ErrDetached) {
		t.Errorf("Acquire after Detach: got %v, want ErrDetached", err)
	}
}

func TestDestroy(t *testing.T) {
	seg, path := newTestSegment(t)

	worker, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := worker.Destroy(); !errors.Is(err, ErrNotOwner) {
		t.Errorf("worker Destroy: got %v, want ErrNotOwner", err)
	}
	worker.Detach()

	if err := seg.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("segment file still present: %v", err)
	}
	if _, err := Attach(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("Attach after Destroy: got %v, want ErrNotFound", err)
	}
}

func TestCreateReplacesStaleSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.grid")
	if err := os.WriteFile(path, []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}

	seg, err := Create(path)
	if err != nil {
		t.Fatalf("Create over stale file: %v", err)
	}
	defer seg.Destroy()

	h, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.Detach()
}

func TestCreateFailsInMissingDir(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "x.grid"))
	if err == nil {
		t.Error("Create in missing directory should fail")
	}
}
