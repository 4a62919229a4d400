//go:build unix

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/swim-mill/config"
	"github.com/lixenwraith/swim-mill/core"
	"github.com/lixenwraith/swim-mill/grid"
	"github.com/lixenwraith/swim-mill/runlog"
	"github.com/lixenwraith/swim-mill/service"
	"github.com/lixenwraith/swim-mill/status"
)

// reaped carries one worker exit from its reaper goroutine to the run loop
type reaped struct {
	w    *worker
	exit Exit
	at   time.Time
}

// Coordinator owns the shared grid and run log, spawns the hunter and a stream of targets, and reaps them
// Run drives INIT -> RUNNING -> SHUTTING_DOWN -> TERMINATED once
type Coordinator struct {
	cfg     *config.Config
	spawner Spawner
	dump    io.Writer

	hub     *service.Hub
	segment *segmentService
	runLog  *runLogService
	metrics *status.Registry
	state   atomic.Uint32

	// exits has room for every worker that can be live at once, so reaper sends never block
	exits chan reaped

	mu          sync.Mutex // Guards live and liveTargets; the crash hook reads them off the run loop
	live        map[int]*worker
	liveTargets int
	ran         bool
}

// New returns a coordinator for cfg
// dump receives the initial grid when non-nil
func New(cfg *config.Config, spawner Spawner, dump io.Writer) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		spawner: spawner,
		dump:    dump,
		hub:     service.NewHub(),
		segment: &segmentService{path: cfg.SegmentPath},
		runLog:  &runLogService{path: cfg.RunLogPath},
		metrics: status.NewRegistry(),
		exits:   make(chan reaped, cfg.TargetCap+1),
		live:    make(map[int]*worker),
	}
	// Grid before log: teardown runs in reverse, closing the log before the grid goes away
	c.hub.Register(c.segment)
	c.hub.Register(c.runLog)
	return c
}

// State returns the current lifecycle phase
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Metrics returns the run counters
func (c *Coordinator) Metrics() *status.Registry {
	return c.metrics
}

// Live returns the number of live workers by role
func (c *Coordinator) Live() (hunters, targets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live) - c.liveTargets, c.liveTargets
}

// Run executes one full run
// It returns nil after a clean shutdown, an INIT error if setup failed (no worker is left running),
// or the joined teardown failures
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return errors.New("coordinator: Run called twice")
	}
	c.ran = true
	c.mu.Unlock()

	c.setState(StateInit)
	if err := c.init(); err != nil {
		c.setState(StateTerminated)
		return fmt.Errorf("coordinator: init: %w", err)
	}

	core.SetCrashHook(c.emergencyStop)
	defer core.SetCrashHook(nil)

	deadline := time.NewTimer(c.cfg.Duration)
	defer deadline.Stop()
	log.Printf("timer started and set to %s", c.cfg.Duration)

	c.setState(StateRunning)
	reason := c.loop(ctx, deadline.C)
	log.Printf("%s, shutting down", reason)

	c.setState(StateShuttingDown)
	err := c.shutdown()
	c.setState(StateTerminated)

	log.Printf("run finished: %s", c.metrics)
	return err
}

func (c *Coordinator) setState(s State) {
	c.state.Store(uint32(s))
}

// init allocates the grid and run log, then starts the hunter
// Any failure releases what was acquired, so there is never a partial run
func (c *Coordinator) init() error {
	if err := c.hub.StartAll(); err != nil {
		return err
	}

	fail := func(err error) error {
		if serr := c.hub.StopAll(); serr != nil {
			return errors.Join(err, serr)
		}
		return err
	}

	if err := c.runLog.log.RunStarted(time.Now(), c.cfg.Duration, c.cfg.TargetCap); err != nil {
		return fail(err)
	}

	if c.dump != nil {
		err := c.segment.seg.WithLock(context.Background(), func(b *grid.Board) error {
			return grid.Render(c.dump, b)
		})
		if err != nil {
			log.Printf("initial grid dump failed: %v", err)
		}
	}

	p, err := c.spawner.Spawn(RoleHunter)
	if err != nil {
		return fail(fmt.Errorf("spawn hunter: %w", err))
	}
	c.track(RoleHunter, p)
	return nil
}

// loop is the RUNNING phase; it returns why the run ended
func (c *Coordinator) loop(ctx context.Context, deadline <-chan time.Time) string {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		atCap := c.liveTargets >= c.cfg.TargetCap
		c.mu.Unlock()

		if atCap {
			// Block for an exit before anything new is spawned
			select {
			case r := <-c.exits:
				c.reap(r)
			case <-ctx.Done():
				return "termination signal received"
			case <-deadline:
				return "timer has expired"
			}
		} else {
			c.spawnTarget()
		}

		// Sleep one tick, reaping whatever exits meanwhile
		for waiting := true; waiting; {
			select {
			case r := <-c.exits:
				c.reap(r)
			case <-ticker.C:
				waiting = false
			case <-ctx.Done():
				return "termination signal received"
			case <-deadline:
				return "timer has expired"
			}
		}
	}
}

// spawnTarget starts one target; a failure is logged and skipped for this tick
func (c *Coordinator) spawnTarget() {
	p, err := c.spawner.Spawn(RoleTarget)
	if err != nil {
		c.metrics.Int(status.SpawnErrors).Add(1)
		log.Printf("spawn target failed, skipping tick: %v", err)
		return
	}
	c.track(RoleTarget, p)
}

// track records a new worker and starts its reaper
func (c *Coordinator) track(role Role, p Process) {
	w := &worker{pid: p.Pid(), role: role, spawned: time.Now(), proc: p}

	c.mu.Lock()
	c.live[w.pid] = w
	if role == RoleTarget {
		c.liveTargets++
		c.metrics.Int(status.TargetsSpawned).Add(1)
		c.metrics.Int(status.TargetsLive).Store(int64(c.liveTargets))
		status.StoreMax(c.metrics.Int(status.TargetsPeak), int64(c.liveTargets))
	}
	c.mu.Unlock()

	log.Printf("spawned %s pid=%d", role, w.pid)
	core.Go(func() {
		exit := w.proc.Wait()
		c.exits <- reaped{w: w, exit: exit, at: time.Now()}
	})
}

// reap removes a worker's record and writes its outcome to the run log
func (c *Coordinator) reap(r reaped) {
	c.mu.Lock()
	delete(c.live, r.w.pid)
	if r.w.role == RoleTarget {
		c.liveTargets--
		c.metrics.Int(status.TargetsLive).Store(int64(c.liveTargets))
	}
	c.mu.Unlock()

	outcome, failed := describe(r.w.role, r.exit)
	c.metrics.Int(status.WorkersReaped).Add(1)
	switch {
	case failed:
		c.metrics.Int(status.WorkersFailed).Add(1)
	case outcome == "eaten":
		c.metrics.Int(status.TargetsEaten).Add(1)
	case outcome == "not eaten":
		c.metrics.Int(status.TargetsMissed).Add(1)
	}

	if failed {
		log.Printf("%s pid=%d failed: %s", r.w.role, r.w.pid, r.exit)
	} else {
		log.Printf("reaped %s pid=%d: %s", r.w.role, r.w.pid, outcome)
	}
	if r.w.role == RoleHunter && c.State() == StateRunning {
		log.Printf("hunter pid=%d exited during the run", r.w.pid)
	}

	err := c.runLog.log.WorkerReaped(runlog.Entry{
		Role:    r.w.role.String(),
		Pid:     r.w.pid,
		Outcome: outcome,
		Status:  r.exit.String(),
		Spawned: r.w.spawned,
		Reaped:  r.at,
	})
	if err != nil {
		log.Printf("run log write failed: %v", err)
	}
}

// shutdown is the SHUTTING_DOWN phase
// Every step is attempted; failures are joined into the result
func (c *Coordinator) shutdown() error {
	var errs []error

	for _, w := range c.snapshotLive() {
		if err := w.proc.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("terminate %s pid=%d: %v", w.role, w.pid, err)
		}
	}

	if !c.awaitAll(c.cfg.ShutdownGrace) {
		stuck := c.snapshotLive()
		for _, w := range stuck {
			log.Printf("%s pid=%d did not exit within %s, killing", w.role, w.pid, c.cfg.ShutdownGrace)
			c.metrics.Int(status.WorkersKilled).Add(1)
			if err := w.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				log.Printf("kill %s pid=%d: %v", w.role, w.pid, err)
			}
		}
		errs = append(errs, fmt.Errorf("coordinator: %d worker(s) ignored the terminate request", len(stuck)))

		if !c.awaitAll(c.cfg.ShutdownGrace) {
			errs = append(errs, fmt.Errorf("coordinator: %d worker(s) still running after kill", len(c.snapshotLive())))
		}
	}

	if err := c.hub.StopAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// awaitAll reaps until no worker is live or d elapses; reports whether all exited
func (c *Coordinator) awaitAll(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		c.mu.Lock()
		n := len(c.live)
		c.mu.Unlock()
		if n == 0 {
			return true
		}

		select {
		case r := <-c.exits:
			c.reap(r)
		case <-timer.C:
			return false
		}
	}
}

func (c *Coordinator) snapshotLive() []*worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*worker, 0, len(c.live))
	for _, w := range c.live {
		out = append(out, w)
	}
	return out
}

// emergencyStop runs from the crash handler: kill every worker and drop shared resources
func (c *Coordinator) emergencyStop() {
	for _, w := range c.snapshotLive() {
		if err := w.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("emergency kill %s pid=%d: %v", w.role, w.pid, err)
		}
	}
	if err := c.hub.StopAll(); err != nil {
		log.Printf("emergency teardown: %v", err)
	}
}
