package sim

// Plant is one simulated physical system. Output and Setpoint are
// normalized to the same 0-100% reference scale. Step advances the true
// physical state by exactly one time step and returns the new output;
// input saturation happens inside Step, never in the loop.
type Plant interface {
	Output() float64
	Setpoint() float64
	SetSetpoint(sp float64)
	Step(input, dt float64) (float64, error)
}

// AuxSource is implemented by plants and controllers that expose extra
// per-step channels (velocity, acceleration, error integral...). The
// loop forwards them to the sink untouched.
type AuxSource interface {
	AuxNames() []string
	Aux() []float64
}

// Controller turns the current error into a control signal. The only
// permitted side effect is updating the controller's own state.
type Controller interface {
	Compute(err, dt float64) (float64, error)
	Reset()
}

// ErrorFunc computes the control error. The default is plain
// subtraction; substitutable for wrap-around error spaces.
type ErrorFunc func(setpoint, output float64) (float64, error)

// SubtractError is the default ErrorFunc.
func SubtractError(setpoint, output float64) (float64, error) {
	return setpoint - output, nil
}

// Sink receives one record per simulation step, in non-decreasing time
// order. Close must be called exactly once, on every exit path.
type Sink interface {
	Append(t, output, setpoint, control float64, aux []float64) error
	Close() error
}

// Metric observes every step of one run and reduces it to a scalar.
type Metric interface {
	Name() string
	Observe(t, output, setpoint, control float64)
	Value() float64
	Reset()
}

// Schedule yields the setpoint at simulation time t. A nil Schedule
// leaves the plant's setpoint untouched.
type Schedule func(t float64) float64

// Config holds the per-run loop parameters.
type Config struct {
	Dt       float64
	Duration float64
	Setpoint Schedule
}

// Result is the collected time series of one run. A failed or cancelled
// run still carries everything recorded before it stopped.
type Result struct {
	Times     []float64
	Outputs   []float64
	Setpoints []float64
	Controls  []float64
	Aux       [][]float64
	Steps     int
	Metrics   map[string]float64
}
