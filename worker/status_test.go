package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCountingWorker(status *Status, iter *int64, done chan struct{}) {
	var paused bool
	for status.ShouldContinue(&paused) {
		atomic.AddInt64(iter, 1)
	}
	close(done)
}

func TestPauseWorkersBlocksIterationUntilResume(t *testing.T) {
	status := NewStatus()
	status.AddWorkers(1)
	status.Initialize()

	var iter int64
	done := make(chan struct{})
	go runCountingWorker(status, &iter, done)

	for atomic.LoadInt64(&iter) == 0 {
		time.Sleep(time.Millisecond)
	}

	status.PauseWorkers()
	first := atomic.LoadInt64(&iter)
	time.Sleep(50 * time.Millisecond)
	second := atomic.LoadInt64(&iter)
	assert.Equal(t, first, second, "iteration counter must not advance while paused")

	status.ResumeWorkers()
	time.Sleep(20 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt64(&iter), second, "iteration counter must advance after resume")

	status.StopWorkers()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not observe STOP")
	}
}

func TestStopWorkersWakesPausedWorker(t *testing.T) {
	status := NewStatus()
	status.AddWorkers(1)
	status.Initialize()

	var iter int64
	done := make(chan struct{})
	go runCountingWorker(status, &iter, done)

	for atomic.LoadInt64(&iter) == 0 {
		time.Sleep(time.Millisecond)
	}
	status.PauseWorkers()
	status.StopWorkers()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop_workers must wake a paused worker")
	}
}

func TestRemoveSelfWaitsOutAPause(t *testing.T) {
	status := NewStatus()
	status.AddWorkers(1)
	status.Initialize()

	var iter int64
	done := make(chan struct{})
	go runCountingWorker(status, &iter, done)

	for atomic.LoadInt64(&iter) == 0 {
		time.Sleep(time.Millisecond)
	}
	status.PauseWorkers()

	removed := make(chan struct{})
	go func() {
		status.RemoveSelf()
		close(removed)
	}()

	select {
	case <-removed:
		t.Fatal("remove_self must not return while status is PAUSE")
	case <-time.After(20 * time.Millisecond):
	}

	status.ResumeWorkers()
	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("remove_self must return once the pause it was waiting out ends")
	}
	require.Equal(t, 0, status.NumWorkers())

	status.StopWorkers()
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
