package engine

import (
	"context"
	"os/signal"
	"syscall"
)

// WatchSignals returns a context cancelled on SIGINT/SIGTERM. Go cannot
// block a signal in every worker goroutine the way the original blocks
// it in every pthread (signal delivery is process-wide, not
// per-goroutine) -- the idiomatic substitute is a context owned and
// observed only by the orchestrator; workers never touch os/signal,
// which gets the same "only the orchestrator observes the signal"
// invariant by construction.
func WatchSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
