package core

import (
	"log"
	"os"
	"runtime/debug"
	"sync"
)

var (
	crashMu   sync.Mutex
	crashHook func()

	// exit is replaced in tests
	exit = os.Exit
)

// SetCrashHook registers cleanup to run before a crashed process exits
// The coordinator uses it to kill workers and remove the shared segment
func SetCrashHook(fn func()) {
	crashMu.Lock()
	crashHook = fn
	crashMu.Unlock()
}

// HandleCrash is the unified panic handler: logs the value and stack, runs the crash hook, exits 1
func HandleCrash(r any) {
	if r == nil {
		return
	}

	log.Printf("CRASH DETECTED: %v\nStack Trace:\n%s", r, debug.Stack())

	crashMu.Lock()
	hook := crashHook
	crashMu.Unlock()
	if hook != nil {
		// A panicking hook must not prevent the exit
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("crash hook panicked: %v", r)
				}
			}()
			hook()
		}()
	}

	os.Stderr.Sync()
	exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword so a crash still releases shared resources.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
