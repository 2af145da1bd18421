package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// forceExit ends the process when a second signal arrives during shutdown.
var forceExit = func() { os.Exit(ExitFailure) }

// SetupSignalHandler returns a context that is canceled on the first SIGINT
// or SIGTERM. The final world save can take a while, so a second signal
// received before stop is called exits the process immediately. Call stop
// to release the signal registration.
func SetupSignalHandler(parent context.Context, logger *slog.Logger) (ctx context.Context, stop context.CancelFunc) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	released := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(released)
			cancel()
		})
	}

	go func() {
		select {
		case sig := <-sigs:
			logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-released:
			return
		}

		select {
		case sig := <-sigs:
			logger.Error("second signal received, exiting without cleanup", "signal", sig.String())
			forceExit()
		case <-released:
		}
	}()

	return ctx, stop
}
