package controller

// historyCap is the fixed capacity of the error history ring buffer.
const historyCap = 10

// Params is the immutable tuning triple for one controller instance.
type Params struct {
	Kp float64
	Ki float64
	Kd float64
}

// State holds the per-run mutable controller state. All fields start at
// zero when a run begins and are mutated only by the owning controller's
// Compute. The plant never reads or writes it.
type State struct {
	Integral        float64
	PreviousError   float64
	Derivative      float64
	AdaptiveGain    float64
	ErrorHistory    [historyCap]float64
	HistoryIndex    int
	CumulativeError float64
}

// Reset zeroes the state for a new run.
func (s *State) Reset() {
	*s = State{}
}

func (s *State) recordError(e float64) {
	s.ErrorHistory[s.HistoryIndex] = e
	s.HistoryIndex = (s.HistoryIndex + 1) % historyCap
}

// Aux exposes the running error integral and the last error rate so the
// loop can forward them to the sink without recomputation.
func (s *State) Aux() []float64 {
	return []float64{s.Derivative, s.Integral}
}

// AuxNames matches the layout of Aux.
func (s *State) AuxNames() []string {
	return []string{"error_rate", "error_integral"}
}
