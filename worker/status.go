package worker

// AddWorkers increases the worker count. Must be called before
// Initialize; the count starts at zero.
func (s *Status) AddWorkers(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numWorkers += k
}

// Initialize sizes the rendezvous for num_workers+1 participants
// (every worker plus the controller) and sets the state to RUN.
func (s *Status) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateRun
	s.arrived = 0
}

// PauseWorkers swaps RUN -> PAUSE and blocks until every worker has
// rendezvoused at the barrier (by calling ShouldContinue and
// observing PAUSE) or has exited via RemoveSelf. Must not be called
// again before a matching ResumeWorkers.
func (s *Status) PauseWorkers() {
	s.mu.Lock()
	s.state = statePause
	s.generation++
	s.arrived = 0
	s.cond.Broadcast()
	for s.arrived < s.numWorkers {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// ResumeWorkers swaps PAUSE -> RUN and releases every worker blocked
// at the second half of the barrier.
func (s *Status) ResumeWorkers() {
	s.mu.Lock()
	s.state = stateRun
	s.generation++
	s.cond.Broadcast()
	s.mu.Unlock()
}

// StopWorkers swaps the state to STOP unconditionally, waking any
// paused workers so they observe STOP instead of blocking forever.
func (s *Status) StopWorkers() {
	s.mu.Lock()
	s.state = stateStop
	s.generation++
	s.cond.Broadcast()
	s.mu.Unlock()
}

// ShouldContinue is the worker-side poll. On RUN it returns true
// immediately. On STOP it returns false. On PAUSE it rendezvous at
// the barrier (signaling pause-acknowledged to a PauseWorkers call),
// blocks until ResumeWorkers or StopWorkers, sets *paused = true, and
// re-polls.
func (s *Status) ShouldContinue(paused *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		switch s.state {
		case stateRun:
			return true
		case stateStop:
			return false
		case statePause:
			myGen := s.generation
			s.arrived++
			s.cond.Broadcast()
			for s.state == statePause && s.generation == myGen {
				s.cond.Wait()
			}
			if paused != nil {
				*paused = true
			}
		}
	}
}

// RemoveSelf decreases the worker count by one. A worker that intends
// to exit before StopWorkers must call this exactly once, after its
// last ShouldContinue call. If the controller is mid-pause, RemoveSelf
// waits for resume or stop first so the barrier's participant count
// stays consistent with PauseWorkers' wait condition.
func (s *Status) RemoveSelf() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state == statePause {
		s.cond.Wait()
	}
	s.numWorkers--
}

// NumWorkers reports the current worker count, for tests and
// diagnostics.
func (s *Status) NumWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numWorkers
}
