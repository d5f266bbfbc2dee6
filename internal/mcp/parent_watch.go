package mcp

import (
	"context"
	"os"
	"time"

	"tracekit/internal/logging"
)

// ParentPollInterval is how often WatchParent checks the parent pid.
var ParentPollInterval = 2 * time.Second

// WatchParent cancels the server when the parent process exits, so that a
// stdio server does not outlive the client that spawned it. It never reads
// stdin, which belongs to the transport. The goroutine exits with ctx.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	log := logging.New("mcp")
	go func() {
		t := time.NewTicker(ParentPollInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if os.Getppid() != ppid {
					log.Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
