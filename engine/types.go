// Package engine implements the orchestrator that wires the page
// queue, pattern catalog, OS collaborator and telemetry sink into a
// running set of workers, runs them for the configured duration, and
// tears them down into a final pass/fail result.
package engine

import (
	"github.com/nnsgmsone/damrey/logger"

	"github.com/infinivision/satgo/config"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/queue"
	"github.com/infinivision/satgo/worker"
)

// Engine owns the long-lived collaborators a run needs: the arena, the
// page queue built over it, the pattern catalog, and the worker-status
// controller every spawned worker shares.
type Engine struct {
	cfg     config.Config
	os      oslayer.OS
	catalog *pattern.Catalog
	queue   queue.Queue
	arena   []byte
	status  *worker.Status
	sink    *countingSink
	log     logger.Log
}

// Result summarizes one completed run, per spec.md 7's exit-status
// contract: a non-zero Errors or Diagnoses count means the caller's
// process should exit 1.
type Result struct {
	Errors       int
	Diagnoses    int
	PagesTouched int
	Duration     int64 // nanoseconds actually run, for the caller's report
}
