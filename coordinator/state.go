package coordinator

// State is the coordinator lifecycle phase
type State uint32

const (
	StateInit         State = iota // Allocating the grid, opening the run log, spawning the hunter
	StateRunning                   // Spawning targets once per tick and reaping exits
	StateShuttingDown              // Terminating workers after the deadline or a signal
	StateTerminated               // Resources released
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
