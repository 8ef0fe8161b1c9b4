package config

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// ReloadFunc runs one reload attempt for the given trigger.
type ReloadFunc func(Trigger) ReloadResult

// WatchSignals reloads on every SIGHUP until ctx is cancelled. It returns
// immediately; the watcher runs in its own goroutine and unregisters the
// handler on shutdown.
func WatchSignals(ctx context.Context, reload ReloadFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				result := reload(TriggerSignal)
				if !result.Success {
					logger.Warn("reload on SIGHUP failed",
						zap.String("error", result.Error))
				}
			}
		}
	}()
}
