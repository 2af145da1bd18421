package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background(), nil)
	defer stop()

	select {
	case <-ctx.Done():
		t.Error("Context should not be cancelled initially")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSetupSignalHandlerParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent, nil)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("Context not cancelled with its parent")
	}
}

func TestSetupSignalHandlerStop(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background(), nil)
	stop()
	stop()

	if ctx.Err() == nil {
		t.Error("Context not cancelled by stop")
	}
}

func TestSetupSignalHandlerReceivesSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}

	ctx, stop := SetupSignalHandler(context.Background(), nil)
	defer stop()

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("Context not cancelled by SIGTERM")
	}
}

func TestSetupSignalHandlerSecondSignalForcesExit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}

	exited := make(chan struct{}, 1)
	orig := forceExit
	forceExit = func() { exited <- struct{}{} }
	defer func() { forceExit = orig }()

	ctx, stop := SetupSignalHandler(context.Background(), nil)
	defer stop()

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Context not cancelled by first SIGTERM")
	}

	_ = p.Signal(syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Error("second SIGTERM did not force exit")
	}
}
