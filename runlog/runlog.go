package runlog

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

var ErrClosed = errors.New("runlog: closed")

// Log is the append-only run log owned by the coordinator
// One line per run start and one per reaped worker; safe for concurrent use
type Log struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// Open opens path for appending, creating it if needed
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	return &Log{path: path, file: f}, nil
}

// Path returns the log location
func (l *Log) Path() string {
	return l.path
}

// Printf appends one line; a trailing newline is added when missing
func (l *Log) Printf(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("runlog: write %s: %w", l.path, err)
	}
	return nil
}

// RunStarted records the start of a run
func (l *Log) RunStarted(at time.Time, duration time.Duration, targetCap int) error {
	return l.Printf("New Run! start=%s duration=%s cap=%d", at.Format(time.RFC3339), duration, targetCap)
}

// Entry describes one reaped worker
type Entry struct {
	Role    string
	Pid     int
	Outcome string
	Status  string
	Spawned time.Time
	Reaped  time.Time
}

// WorkerReaped records one reaped worker
func (l *Log) WorkerReaped(e Entry) error {
	return l.Printf("%s %s pid=%d outcome=%q status=%s lifetime=%s",
		e.Reaped.Format(time.RFC3339), e.Role, e.Pid, e.Outcome, e.Status,
		e.Reaped.Sub(e.Spawned).Round(time.Millisecond))
}

// Close syncs and closes the file exactly once; later calls return the first result
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.closed = true

		var errs []error
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("runlog: sync %s: %w", l.path, err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("runlog: close %s: %w", l.path, err))
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}
