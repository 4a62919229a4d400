//go:build unix

package worker

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/swim-mill/config"
	"github.com/lixenwraith/swim-mill/grid"
	"github.com/lixenwraith/swim-mill/parameter"
	"github.com/lixenwraith/swim-mill/shm"
)

func setup(t *testing.T) (*config.Config, *shm.Segment) {
	t.Helper()
	cfg := config.Default()
	cfg.Tick = 2 * time.Millisecond
	cfg.SegmentPath = filepath.Join(t.TempDir(), "test.grid")
	cfg.Display = config.DisplayOff

	seg, err := shm.Create(cfg.SegmentPath)
	if err != nil {
		t.Fatalf("create segment: %v", err)
	}
	t.Cleanup(func() { seg.Destroy() })
	return cfg, seg
}

func seeded() Options {
	return Options{Rand: rand.New(rand.NewPCG(1, 2))}
}

func snapshot(t *testing.T, seg *shm.Segment) [grid.Rows][grid.Cols]grid.Cell {
	t.Helper()
	cells, err := seg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return cells
}

func TestTargetMissesEmptyRow(t *testing.T) {
	cfg, seg := setup(t)

	if code := Target(context.Background(), cfg, seeded()); code != parameter.ExitOK {
		t.Fatalf("exit = %d, want %d", code, parameter.ExitOK)
	}

	for r, row := range snapshot(t, seg) {
		for c, cell := range row {
			if cell != grid.Blank {
				t.Errorf("cell [%d][%d] = %v after a missed target", r, c, cell)
			}
		}
	}
}

func TestTargetEatenAcrossHunterRow(t *testing.T) {
	cfg, seg := setup(t)
	err := seg.WithLock(context.Background(), func(b *grid.Board) error {
		for c := 0; c < grid.Cols; c++ {
			b.Set(parameter.HunterRow, c, grid.Hunter)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed hunters: %v", err)
	}

	if code := Target(context.Background(), cfg, seeded()); code != parameter.ExitEaten {
		t.Fatalf("exit = %d, want %d", code, parameter.ExitEaten)
	}

	cells := snapshot(t, seg)
	for c := 0; c < grid.Cols; c++ {
		if cells[parameter.HunterRow][c] != grid.Hunter {
			t.Errorf("hunter row column %d = %v, want hunter kept", c, cells[parameter.HunterRow][c])
		}
	}
}

func TestTargetCancelled(t *testing.T) {
	cfg, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code := Target(ctx, cfg, seeded()); code != parameter.ExitCancelled {
		t.Errorf("exit = %d, want %d", code, parameter.ExitCancelled)
	}
}

func TestTargetAttachFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Tick = time.Millisecond
	cfg.SegmentPath = filepath.Join(t.TempDir(), "missing.grid")

	if code := Target(context.Background(), cfg, seeded()); code != parameter.ExitAttach {
		t.Errorf("exit = %d, want %d", code, parameter.ExitAttach)
	}
}

func TestHunterRunsUntilCancelled(t *testing.T) {
	cfg, seg := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if code := Hunter(ctx, cfg, Options{}); code != parameter.ExitOK {
		t.Fatalf("exit = %d, want %d", code, parameter.ExitOK)
	}

	cells := snapshot(t, seg)
	if got := cells[parameter.HunterRow][parameter.HunterHomeCol]; got != grid.Hunter {
		t.Errorf("home cell = %v, want hunter", got)
	}
}

func TestHunterAttachFailure(t *testing.T) {
	cfg := config.Default()
	cfg.SegmentPath = filepath.Join(t.TempDir(), "missing.grid")

	if code := Hunter(context.Background(), cfg, Options{}); code != parameter.ExitAttach {
		t.Errorf("exit = %d, want %d", code, parameter.ExitAttach)
	}
}
