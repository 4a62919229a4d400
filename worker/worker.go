//go:build unix

// Package worker holds the entry points of the two worker processes
// Each one attaches to the coordinator's grid, runs its loop until done or terminated, and reports through its exit code
package worker

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/lixenwraith/swim-mill/config"
	"github.com/lixenwraith/swim-mill/hunter"
	"github.com/lixenwraith/swim-mill/parameter"
	"github.com/lixenwraith/swim-mill/shm"
	"github.com/lixenwraith/swim-mill/target"
)

// Options carries what a worker takes from its process rather than from config
type Options struct {
	// Dump receives the grid after every mutation; nil disables it
	Dump io.Writer

	// Rand picks the target's spawn cell; nil seeds one from the clock and pid
	Rand *rand.Rand
}

// Hunter runs the hunter until ctx is cancelled and returns its exit code
func Hunter(ctx context.Context, cfg *config.Config, opts Options) int {
	seg, ok := attach(cfg)
	if !ok {
		return parameter.ExitAttach
	}
	defer detach(seg)

	h := hunter.New()
	err := hunter.Run(ctx, seg, h, hunter.Options{Tick: cfg.Tick, Dump: opts.Dump})
	if err != nil {
		log.Printf("hunter: %v", err)
		return parameter.ExitFailure
	}
	_, col := h.Position()
	log.Printf("hunter pid=%d stopped at column %d", os.Getpid(), col)
	return parameter.ExitOK
}

// Target runs one target from spawn to resolution and returns its exit code
func Target(ctx context.Context, cfg *config.Config, opts Options) int {
	seg, ok := attach(cfg)
	if !ok {
		return parameter.ExitAttach
	}
	defer detach(seg)

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
	}

	t := target.New(rng)
	outcome, err := target.Run(ctx, seg, t, target.Options{Tick: cfg.Tick, Dump: opts.Dump})
	if err != nil {
		log.Printf("target: %v", err)
		return parameter.ExitFailure
	}

	row, col := t.Position()
	switch outcome {
	case target.OutcomeCancelled:
		log.Printf("target pid=%d at [%d][%d] terminated", os.Getpid(), row, col)
	default:
		log.Printf("target pid=%d at [%d][%d] was %s", os.Getpid(), row, col, outcome)
	}
	return outcome.ExitCode()
}

func attach(cfg *config.Config) (*shm.Segment, bool) {
	seg, err := shm.Attach(cfg.SegmentPath)
	if err != nil {
		log.Printf("attach failed: %v", err)
		return nil, false
	}
	log.Printf("attached to %s", seg.Path())
	return seg, true
}

func detach(seg *shm.Segment) {
	if err := seg.Detach(); err != nil {
		log.Printf("detach failed: %v", err)
		return
	}
	log.Printf("detached from %s", seg.Path())
}
