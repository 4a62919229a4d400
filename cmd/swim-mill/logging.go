//go:build unix

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	logDir      = "logs"
	logFileName = "swim-mill.log"
	maxLogSize  = 10 * 1024 * 1024
)

// setupLogging points the standard logger at stderr, or at logs/swim-mill.log when debug is set
// The coordinator rotates an oversized log before the run starts; the returned file is nil without debug
func setupLogging(debug bool) *os.File {
	return openLog(debug, true)
}

// setupWorkerLogging appends to the coordinator's log without rotating it, since many workers share the file
func setupWorkerLogging(debug bool) *os.File {
	return openLog(debug, false)
}

func openLog(debug, rotate bool) *os.File {
	if !debug {
		log.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("log dir %s: %v, logging to stderr", logDir, err)
		return nil
	}

	path := filepath.Join(logDir, logFileName)
	if rotate {
		rotateLog(path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("open log %s: %v, logging to stderr", path, err)
		return nil
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return f
}

// rotateLog renames path aside with a timestamp once it passes maxLogSize
func rotateLog(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= maxLogSize {
		return
	}
	rotated := filepath.Join(logDir, fmt.Sprintf("swim-mill-%s.log", time.Now().Format("20060102-150405")))
	if err := os.Rename(path, rotated); err != nil {
		fmt.Fprintf(os.Stderr, "rotate log %s: %v\n", path, err)
	}
}
