package sim

import (
	"errors"
	"fmt"
)

// The closed set of contract-violation classes. The simulation is
// deterministic and offline, so none of these are retryable.
var (
	ErrNilArgument      = errors.New("nil argument")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrCallbackFailed   = errors.New("callback failed")
)

// StepError locates a failure at a specific loop iteration.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
