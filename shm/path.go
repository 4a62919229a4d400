// Package shm holds the shared grid segment and its lock
package shm

import (
	"os"
	"path/filepath"

	"github.com/lixenwraith/swim-mill/parameter"
)

// DefaultPath returns the well-known segment location, preferring tmpfs
func DefaultPath() string {
	if info, err := os.Stat(parameter.SharedMemoryDir); err == nil && info.IsDir() {
		return filepath.Join(parameter.SharedMemoryDir, parameter.DefaultSegmentName)
	}
	return filepath.Join(os.TempDir(), parameter.DefaultSegmentName)
}
