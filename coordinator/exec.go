//go:build unix

package coordinator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/lixenwraith/swim-mill/config"
	"github.com/lixenwraith/swim-mill/parameter"
)

// ExecSpawner starts each worker as a separate process image with no arguments
// Workers find the grid through the environment they inherit, never through argv
type ExecSpawner struct {
	// Images maps a role to its executable; roles without an entry re-execute Self
	Images map[Role]string

	// Self is the current binary, run with SWIM_MILL_ROLE set
	Self string

	// Env is appended to the coordinator's environment for every worker
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// NewExecSpawner builds a spawner for cfg, re-executing the running binary unless worker images are configured
func NewExecSpawner(cfg *config.Config) (*ExecSpawner, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("coordinator: locate executable: %w", err)
	}

	images := make(map[Role]string)
	if cfg.HunterImage != "" {
		images[RoleHunter] = cfg.HunterImage
	}
	if cfg.TargetImage != "" {
		images[RoleTarget] = cfg.TargetImage
	}

	return &ExecSpawner{
		Images: images,
		Self:   self,
		Env:    cfg.Environ(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

// Spawn starts one worker
// Workers get their own process group so a terminal interrupt reaches only the coordinator, which then stops them
func (s *ExecSpawner) Spawn(role Role) (Process, error) {
	path, ok := s.Images[role]
	if !ok {
		path = s.Self
	}

	cmd := exec.Command(path)
	cmd.Args = []string{path}
	cmd.Env = append(append(os.Environ(), s.Env...), parameter.EnvRole+"="+role.String())
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("coordinator: start %s (%s): %w", role, path, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Terminate() error {
	return p.cmd.Process.Signal(unix.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() Exit {
	err := p.cmd.Wait()
	state := p.cmd.ProcessState
	if state == nil {
		return Exit{Err: err}
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Exit{Err: err}
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Exit{Signal: unix.SignalName(ws.Signal())}
	}
	return Exit{Code: state.ExitCode()}
}
