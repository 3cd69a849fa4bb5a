package retry

import "sync/atomic"

// ExecutionState is the cancellation flag of one agent instance. Cancel may
// be called from any goroutine; the loop observes it between iterations.
type ExecutionState struct {
	cancelled atomic.Bool
}

// Cancel requests that the current execution stop at the next boundary.
func (s *ExecutionState) Cancel() {
	s.cancelled.Store(true)
}

// ResetCancel clears the flag; called when an execution starts.
func (s *ExecutionState) ResetCancel() {
	s.cancelled.Store(false)
}

// IsCancelled reads the flag.
func (s *ExecutionState) IsCancelled() bool {
	return s.cancelled.Load()
}
