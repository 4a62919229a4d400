package parameter

// Worker Roles
const (
	// RoleHunter selects the hunter entry point in a re-executed worker
	RoleHunter = "hunter"

	// RoleTarget selects the target entry point in a re-executed worker
	RoleTarget = "target"
)

// Environment Variables
const (
	EnvRole        = "SWIM_MILL_ROLE"
	EnvConfig      = "SWIM_MILL_CONFIG"
	EnvSegment     = "SWIM_MILL_SEGMENT"
	EnvRunLog      = "SWIM_MILL_RUN_LOG"
	EnvTick        = "SWIM_MILL_TICK"
	EnvDuration    = "SWIM_MILL_DURATION"
	EnvTargetCap   = "SWIM_MILL_TARGET_CAP"
	EnvGrace       = "SWIM_MILL_SHUTDOWN_GRACE"
	EnvDisplay     = "SWIM_MILL_DISPLAY"
	EnvDebug       = "SWIM_MILL_DEBUG"
	EnvHunterImage = "SWIM_MILL_HUNTER_IMAGE"
	EnvTargetImage = "SWIM_MILL_TARGET_IMAGE"
)

// Worker Exit Codes
// A target reports its outcome to the coordinator through its exit code
const (
	// ExitOK is a clean hunter stop, or a target that landed uneaten
	ExitOK = 0

	// ExitFailure is an unexpected worker error after attaching
	ExitFailure = 1

	// ExitAttach means the worker could not reach the shared grid and never touched it
	ExitAttach = 2

	// ExitEaten is a target that landed on the hunter
	ExitEaten = 3

	// ExitCancelled is a target stopped by a terminate request before resolving
	ExitCancelled = 4
)
