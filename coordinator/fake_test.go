//go:build unix

package coordinator

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/swim-mill/config"
)

// fakeProc is an in-process worker: it ends after lifetime, on Terminate (unless ignoreTerm), or on Kill
type fakeProc struct {
	pid        int
	role       Role
	lifetime   time.Duration
	code       int
	ignoreTerm bool
	killErr    error

	term     chan struct{}
	kill     chan struct{}
	termOnce sync.Once
	killOnce sync.Once
	onExit   func(*fakeProc)
}

func (p *fakeProc) Pid() int { return p.pid }

func (p *fakeProc) Terminate() error {
	p.termOnce.Do(func() { close(p.term) })
	return nil
}

func (p *fakeProc) Kill() error {
	p.killOnce.Do(func() { close(p.kill) })
	return p.killErr
}

func (p *fakeProc) Wait() Exit {
	defer p.onExit(p)

	var natural <-chan time.Time
	if p.lifetime > 0 {
		timer := time.NewTimer(p.lifetime)
		defer timer.Stop()
		natural = timer.C
	}
	term := p.term
	if p.ignoreTerm {
		term = nil
	}

	select {
	case <-natural:
		return Exit{Code: p.code}
	case <-term:
		if p.role == RoleTarget {
			return Exit{Code: 4}
		}
		return Exit{Code: 0}
	case <-p.kill:
		return Exit{Signal: "SIGKILL"}
	}
}

// fakeSpawner hands out fakeProcs and tracks how many are alive per role
type fakeSpawner struct {
	mu       sync.Mutex
	nextPid  int
	live     map[Role]int
	peak     map[Role]int
	spawned  map[Role]int
	attempts map[Role]int
	failures int

	// configure decides each new process's behaviour; nil means live until terminated
	configure func(p *fakeProc, n int)

	// fail reports whether spawn attempt n (zero-based, per role) should fail
	fail func(role Role, n int) bool
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		nextPid:  1000,
		live:     make(map[Role]int),
		peak:     make(map[Role]int),
		spawned:  make(map[Role]int),
		attempts: make(map[Role]int),
	}
}

var errSpawn = errors.New("fork: resource temporarily unavailable")

func (s *fakeSpawner) Spawn(role Role) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.attempts[role]
	s.attempts[role]++
	if s.fail != nil && s.fail(role, n) {
		s.failures++
		return nil, errSpawn
	}

	s.nextPid++
	p := &fakeProc{
		pid:    s.nextPid,
		role:   role,
		term:   make(chan struct{}),
		kill:   make(chan struct{}),
		onExit: s.exited,
	}
	if s.configure != nil {
		s.configure(p, s.spawned[role])
	}

	s.spawned[role]++
	s.live[role]++
	if s.live[role] > s.peak[role] {
		s.peak[role] = s.live[role]
	}
	return p, nil
}

func (s *fakeSpawner) exited(p *fakeProc) {
	s.mu.Lock()
	s.live[p.role]--
	s.mu.Unlock()
}

func (s *fakeSpawner) stats() (spawned, live, peak map[Role]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := func(m map[Role]int) map[Role]int {
		out := make(map[Role]int, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return cp(s.spawned), cp(s.live), cp(s.peak)
}

// testConfig returns a fast run rooted in a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Tick = 2 * time.Millisecond
	cfg.Duration = 150 * time.Millisecond
	cfg.ShutdownGrace = 500 * time.Millisecond
	cfg.SegmentPath = filepath.Join(dir, "test.grid")
	cfg.RunLogPath = filepath.Join(dir, "output.txt")
	cfg.Display = config.DisplayOff
	return cfg
}

func segmentGone(t *testing.T, cfg *config.Config) {
	t.Helper()
	if _, err := os.Stat(cfg.SegmentPath); !os.IsNotExist(err) {
		t.Errorf("segment %s not removed: %v", cfg.SegmentPath, err)
	}
}
