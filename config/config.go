package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/term"

	"github.com/lixenwraith/swim-mill/parameter"
	"github.com/lixenwraith/swim-mill/shm"
)

// Display modes for the grid dump
const (
	DisplayAuto = "auto" // Dump only when stdout is a terminal
	DisplayOn   = "on"
	DisplayOff  = "off"
)

// Config holds the run parameters shared by the coordinator and its workers
type Config struct {
	Tick          time.Duration
	Duration      time.Duration
	TargetCap     int
	ShutdownGrace time.Duration

	SegmentPath string
	RunLogPath  string

	Display string
	Debug   bool

	// HunterImage and TargetImage name separate worker executables; empty re-executes the current binary
	HunterImage string
	TargetImage string
}

// Default returns the reference run: one second ticks, thirty second deadline, twenty live targets
func Default() *Config {
	return &Config{
		Tick:          parameter.DefaultTick,
		Duration:      parameter.DefaultRunDuration,
		TargetCap:     parameter.DefaultTargetCap,
		ShutdownGrace: parameter.DefaultShutdownGrace,
		SegmentPath:   shm.DefaultPath(),
		RunLogPath:    parameter.DefaultRunLogPath,
		Display:       DisplayAuto,
	}
}

// Load builds a configuration from defaults, the optional TOML file at path, and SWIM_MILL_* environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors the TOML layout; nil fields leave the current value untouched
type fileConfig struct {
	Tick          *string `toml:"tick"`
	Duration      *string `toml:"duration"`
	TargetCap     *int    `toml:"target_cap"`
	ShutdownGrace *string `toml:"shutdown_grace"`
	Segment       *string `toml:"segment"`
	RunLog        *string `toml:"run_log"`
	Display       *string `toml:"display"`
	Debug         *bool   `toml:"debug"`
	HunterImage   *string `toml:"hunter_image"`
	TargetImage   *string `toml:"target_image"`
}

// LoadFile overlays values from a TOML file; unknown keys are rejected
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"tick", fc.Tick, &c.Tick},
		{"duration", fc.Duration, &c.Duration},
		{"shutdown_grace", fc.ShutdownGrace, &c.ShutdownGrace},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("config: %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}

	if fc.TargetCap != nil {
		c.TargetCap = *fc.TargetCap
	}
	setString(&c.SegmentPath, fc.Segment)
	setString(&c.RunLogPath, fc.RunLog)
	setString(&c.Display, fc.Display)
	setString(&c.HunterImage, fc.HunterImage)
	setString(&c.TargetImage, fc.TargetImage)
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	return nil
}

// ApplyEnv overlays SWIM_MILL_* environment variables
func (c *Config) ApplyEnv() error {
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{parameter.EnvTick, &c.Tick},
		{parameter.EnvDuration, &c.Duration},
		{parameter.EnvGrace, &c.ShutdownGrace},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv(parameter.EnvTargetCap); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", parameter.EnvTargetCap, err)
		}
		c.TargetCap = n
	}

	if v := os.Getenv(parameter.EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", parameter.EnvDebug, err)
		}
		c.Debug = b
	}

	for key, dst := range map[string]*string{
		parameter.EnvSegment:     &c.SegmentPath,
		parameter.EnvRunLog:      &c.RunLogPath,
		parameter.EnvDisplay:     &c.Display,
		parameter.EnvHunterImage: &c.HunterImage,
		parameter.EnvTargetImage: &c.TargetImage,
	} {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate rejects values the run cannot honor
func (c *Config) Validate() error {
	switch {
	case c.Tick <= 0:
		return fmt.Errorf("config: tick must be positive, got %v", c.Tick)
	case c.Duration <= 0:
		return fmt.Errorf("config: duration must be positive, got %v", c.Duration)
	case c.ShutdownGrace <= 0:
		return fmt.Errorf("config: shutdown grace must be positive, got %v", c.ShutdownGrace)
	case c.TargetCap < 1:
		return fmt.Errorf("config: target cap must be at least 1, got %d", c.TargetCap)
	case c.SegmentPath == "":
		return fmt.Errorf("config: segment path is empty")
	case c.RunLogPath == "":
		return fmt.Errorf("config: run log path is empty")
	}

	switch c.Display {
	case DisplayAuto, DisplayOn, DisplayOff:
	default:
		return fmt.Errorf("config: unknown display mode %q (want auto, on, off)", c.Display)
	}
	return nil
}

// Environ returns the variables a worker needs to reach the same grid with the same timing
func (c *Config) Environ() []string {
	return []string{
		parameter.EnvSegment + "=" + c.SegmentPath,
		parameter.EnvTick + "=" + c.Tick.String(),
		parameter.EnvDisplay + "=" + c.Display,
		parameter.EnvDebug + "=" + strconv.FormatBool(c.Debug),
	}
}

// DisplayEnabled resolves the display mode against out
func (c *Config) DisplayEnabled(out *os.File) bool {
	switch c.Display {
	case DisplayOn:
		return true
	case DisplayOff:
		return false
	default:
		return out != nil && term.IsTerminal(int(out.Fd()))
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
