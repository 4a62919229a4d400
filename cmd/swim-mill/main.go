//go:build unix

// Command swim-mill runs one coordinated pursuit: the coordinator owns a shared 10x10 grid,
// a hunter process tracks falling target processes along the bottom row, and every outcome lands in the run log
//
// With no SWIM_MILL_ROLE in the environment the binary is the coordinator; workers are this same
// binary re-executed with the role set
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/lixenwraith/swim-mill/config"
	"github.com/lixenwraith/swim-mill/coordinator"
	"github.com/lixenwraith/swim-mill/core"
	"github.com/lixenwraith/swim-mill/parameter"
	"github.com/lixenwraith/swim-mill/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup completes before os.Exit
func run() int {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	if role := os.Getenv(parameter.EnvRole); role != "" {
		return runWorker(role)
	}
	return runCoordinator(os.Args[1:])
}

func runWorker(role string) int {
	log.SetPrefix(fmt.Sprintf("%s[%d] ", role, os.Getpid()))

	cfg, err := config.Load(os.Getenv(parameter.EnvConfig))
	if err != nil {
		log.Printf("config: %v", err)
		return parameter.ExitAttach
	}
	if logFile := setupWorkerLogging(cfg.Debug); logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	var opts worker.Options
	if cfg.DisplayEnabled(os.Stdout) {
		opts.Dump = os.Stdout
	}

	switch role {
	case parameter.RoleHunter:
		return worker.Hunter(ctx, cfg, opts)
	case parameter.RoleTarget:
		return worker.Target(ctx, cfg, opts)
	default:
		log.Printf("unknown role %q", role)
		return parameter.ExitFailure
	}
}

func runCoordinator(args []string) int {
	log.SetPrefix(fmt.Sprintf("coordinator[%d] ", os.Getpid()))

	cfg, err := parseConfig(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	if logFile := setupLogging(cfg.Debug); logFile != nil {
		defer logFile.Close()
	}

	spawner, err := coordinator.NewExecSpawner(cfg)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	var dump io.Writer
	if cfg.DisplayEnabled(os.Stdout) {
		dump = os.Stdout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	c := coordinator.New(cfg, spawner, dump)
	if err := c.Run(ctx); err != nil {
		log.Printf("run failed: %v", err)
		return 1
	}
	return 0
}

// parseConfig resolves the coordinator's configuration: defaults, then the TOML file, then SWIM_MILL_* variables,
// then any flags given explicitly on the command line
func parseConfig(args []string, output io.Writer) (*config.Config, error) {
	def := config.Default()

	fs := flag.NewFlagSet("swim-mill", flag.ContinueOnError)
	fs.SetOutput(output)
	configPath := fs.String("config", os.Getenv(parameter.EnvConfig), "TOML configuration file")
	duration := fs.Duration("duration", def.Duration, "Run length before shutdown")
	tick := fs.Duration("tick", def.Tick, "Spawn interval and worker step interval")
	targetCap := fs.Int("cap", def.TargetCap, "Maximum live targets")
	grace := fs.Duration("grace", def.ShutdownGrace, "Wait for workers to exit after terminate, then after kill")
	segment := fs.String("segment", def.SegmentPath, "Shared grid file")
	runLog := fs.String("run-log", def.RunLogPath, "Run log file, appended")
	display := fs.String("display", def.Display, "Grid dump: auto, on, off")
	debug := fs.Bool("debug", def.Debug, "Log to logs/swim-mill.log instead of stderr")
	hunterImage := fs.String("hunter", def.HunterImage, "Hunter executable (default: this binary)")
	targetImage := fs.String("target", def.TargetImage, "Target executable (default: this binary)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Duration = *duration
		case "tick":
			cfg.Tick = *tick
		case "cap":
			cfg.TargetCap = *targetCap
		case "grace":
			cfg.ShutdownGrace = *grace
		case "segment":
			cfg.SegmentPath = *segment
		case "run-log":
			cfg.RunLogPath = *runLog
		case "display":
			cfg.Display = *display
		case "debug":
			cfg.Debug = *debug
		case "hunter":
			cfg.HunterImage = *hunterImage
		case "target":
			cfg.TargetImage = *targetImage
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
