//go:build unix

package coordinator

import (
	"github.com/lixenwraith/swim-mill/runlog"
	"github.com/lixenwraith/swim-mill/shm"
)

// segmentService owns the shared grid for the run; the coordinator is its only creator and destroyer
type segmentService struct {
	path string
	seg  *shm.Segment
}

func (s *segmentService) Name() string { return "segment" }

func (s *segmentService) Start() error {
	seg, err := shm.Create(s.path)
	if err != nil {
		return err
	}
	s.seg = seg
	return nil
}

func (s *segmentService) Stop() error {
	if s.seg == nil {
		return nil
	}
	return s.seg.Destroy()
}

// runLogService owns the run log file
type runLogService struct {
	path string
	log  *runlog.Log
}

func (s *runLogService) Name() string { return "runlog" }

func (s *runLogService) Start() error {
	l, err := runlog.Open(s.path)
	if err != nil {
		return err
	}
	s.log = l
	return nil
}

func (s *runLogService) Stop() error {
	if s.log == nil {
		return nil
	}
	return s.log.Close()
}
