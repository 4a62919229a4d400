package parameter

import "time"

// Grid Extent
const (
	// GridRows is the number of rows in the shared grid
	GridRows = 10

	// GridCols is the number of columns in the shared grid
	GridCols = 10

	// GridCells is the number of cell bytes in the shared region
	GridCells = GridRows * GridCols

	// LastRow is the bottom row index, where targets land
	LastRow = GridRows - 1

	// HunterRow is the waterline the hunter patrols
	HunterRow = LastRow

	// HunterHomeCol is the hunter start column and the fallback goal when no target is visible
	HunterHomeCol = GridCols/2 - 1

	// TargetSpawnRows bounds the spawn row to 0..TargetSpawnRows-1 so a target never starts landed
	TargetSpawnRows = GridRows - 1
)

// Run Timing & Limits
const (
	// DefaultTick is the duration of one simulation step
	DefaultTick = 1 * time.Second

	// DefaultRunDuration is the wall-clock deadline measured from coordinator start
	DefaultRunDuration = 30 * time.Second

	// DefaultTargetCap is the maximum number of simultaneously live target workers
	DefaultTargetCap = 20

	// DefaultShutdownGrace bounds the wait for workers after the terminate request, and again after the kill
	DefaultShutdownGrace = 2 * time.Second
)

// Files
const (
	// DefaultRunLogPath is the append-only run log
	DefaultRunLogPath = "output.txt"

	// DefaultSegmentName is the well-known name of the shared grid segment
	DefaultSegmentName = "swim-mill.grid"

	// SharedMemoryDir is preferred for the segment when present (tmpfs on Linux)
	SharedMemoryDir = "/dev/shm"
)
