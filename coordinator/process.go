package coordinator

import (
	"fmt"
	"time"

	"github.com/lixenwraith/swim-mill/parameter"
)

// Role distinguishes the two worker kinds
type Role uint8

const (
	RoleHunter Role = iota
	RoleTarget
)

func (r Role) String() string {
	switch r {
	case RoleHunter:
		return parameter.RoleHunter
	case RoleTarget:
		return parameter.RoleTarget
	default:
		return "unknown"
	}
}

// Exit is how a worker ended: an exit code, a terminating signal, or a wait failure
type Exit struct {
	Code   int
	Signal string // Non-empty when a signal ended the process
	Err    error  // Wait itself failed; Code and Signal are meaningless
}

func (e Exit) String() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("wait error: %v", e.Err)
	case e.Signal != "":
		return "signal " + e.Signal
	default:
		return fmt.Sprintf("exit %d", e.Code)
	}
}

// Process is a running worker as seen by the coordinator
type Process interface {
	Pid() int

	// Terminate asks the worker to exit cleanly
	Terminate() error

	// Kill ends the worker immediately
	Kill() error

	// Wait blocks until the worker exits; called exactly once
	Wait() Exit
}

// Spawner starts workers
type Spawner interface {
	Spawn(role Role) (Process, error)
}

// worker is the coordinator-local record of a live worker
type worker struct {
	pid     int
	role    Role
	spawned time.Time
	proc    Process
}

// describe classifies a reaped worker for the run log
// failed marks exits that count as a failed run for that worker
func describe(role Role, e Exit) (outcome string, failed bool) {
	switch {
	case e.Err != nil:
		return "wait failed", true
	case e.Signal != "":
		return "killed", true
	}

	switch e.Code {
	case parameter.ExitAttach:
		return "attach failed", true
	case parameter.ExitFailure:
		return "failed", true
	}

	if role == RoleHunter {
		if e.Code == parameter.ExitOK {
			return "stopped", false
		}
		return "failed", true
	}

	switch e.Code {
	case parameter.ExitOK:
		return "not eaten", false
	case parameter.ExitEaten:
		return "eaten", false
	case parameter.ExitCancelled:
		return "cancelled", false
	default:
		return "failed", true
	}
}
