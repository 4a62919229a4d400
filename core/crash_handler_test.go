package core

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

func TestGoRecoversAndRunsHook(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	exited := make(chan int, 1)
	exit = func(code int) { exited <- code }
	defer func() { exit = os.Exit }()

	hookRan := make(chan struct{}, 1)
	SetCrashHook(func() { hookRan <- struct{}{} })
	defer SetCrashHook(nil)

	Go(func() { panic("reaper exploded") })

	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crash handler never exited")
	}

	select {
	case <-hookRan:
	default:
		t.Error("crash hook did not run")
	}
	if !strings.Contains(buf.String(), "reaper exploded") {
		t.Errorf("log missing panic value: %q", buf.String())
	}
}

func TestHandleCrashNil(t *testing.T) {
	called := false
	exit = func(int) { called = true }
	defer func() { exit = os.Exit }()

	HandleCrash(nil)
	if called {
		t.Error("nil recovery value should not exit")
	}
}
