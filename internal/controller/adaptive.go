package controller

import "math"

// cumulativeDecay is the per-step decay applied to the cumulative error
// estimator. The estimator's effective memory therefore depends on dt:
// smaller steps decay the sum more often per unit of simulated time.
const cumulativeDecay = 0.98

// Schedule is one cumulative-error boost ladder. Two distinct ladders
// exist: the P/PD-style variants were tuned with a steeper ladder than
// the PI/PID-style ones, and the divergence is kept as two named
// policies instead of being merged.
type Schedule struct {
	Name       string
	Thresholds [3]float64
	Boosts     [3]float64
}

var (
	// ScheduleAggressive pairs with the P and PD adaptive variants,
	// which have no integral term to work off steady-state error.
	ScheduleAggressive = Schedule{
		Name:       "aggressive",
		Thresholds: [3]float64{3.0, 1.0, 0.3},
		Boosts:     [3]float64{2.0, 1.6, 1.3},
	}

	// ScheduleConservative pairs with the PI and PID adaptive variants.
	ScheduleConservative = Schedule{
		Name:       "conservative",
		Thresholds: [3]float64{5.0, 2.0, 0.5},
		Boosts:     [3]float64{1.5, 1.3, 1.15},
	}
)

func (s Schedule) boost(cumulative float64) float64 {
	switch {
	case cumulative > s.Thresholds[0]:
		return s.Boosts[0]
	case cumulative > s.Thresholds[1]:
		return s.Boosts[1]
	case cumulative > s.Thresholds[2]:
		return s.Boosts[2]
	default:
		return 1.0
	}
}

// baseMultiplier maps the error magnitude onto the fixed gain ladder:
// large errors get an aggressive gain, and even near the setpoint a
// significant fraction of the base gain is kept.
func baseMultiplier(absErr float64) float64 {
	switch {
	case absErr > 1.0:
		return 3.5
	case absErr > 0.6:
		return 2.5
	case absErr > 0.3:
		return 2.0
	case absErr > 0.15:
		return 1.5
	case absErr > 0.05:
		return 1.15
	case absErr > 0.02:
		return 1.0
	default:
		return 0.85
	}
}

// gain computes the scheduled proportional gain for this step and stores
// it in the state. errorRate must be (e-previousError)/dt with the
// previous error still unmodified; the caller updates PreviousError
// afterwards.
func (s Schedule) gain(params Params, state *State, e, errorRate, dt float64) float64 {
	absErr := math.Abs(e)
	absRate := math.Abs(errorRate)

	state.CumulativeError = state.CumulativeError*cumulativeDecay + absErr*dt

	g := params.Kp * baseMultiplier(absErr)
	g *= s.boost(state.CumulativeError)

	// Boost while the error is shrinking at a healthy rate; damp when
	// the rate says the loop is oscillating. The two are exclusive
	// because the rate windows do not overlap.
	if errorRate < 0 && absRate > 0.15 && absRate < 1.5 {
		g *= 1.35
	}
	if absRate > 4.0 {
		g *= 0.55
	} else if absRate > 2.5 {
		g *= 0.70
	}

	state.AdaptiveGain = g
	return g
}

// AdaptiveP is the proportional law with the scheduled gain replacing Kp.
type AdaptiveP struct {
	params   Params
	state    *State
	schedule Schedule
}

func NewAdaptiveP(params Params) *AdaptiveP {
	return &AdaptiveP{params: params, state: &State{}, schedule: ScheduleAggressive}
}

func (c *AdaptiveP) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	rate := (e - c.state.PreviousError) / dt
	g := c.schedule.gain(c.params, c.state, e, rate, dt)
	c.state.Derivative = rate
	c.state.recordError(e)
	c.state.PreviousError = e
	return g * e, nil
}

func (c *AdaptiveP) Reset()             { c.state.Reset() }
func (c *AdaptiveP) State() *State      { return c.state }
func (c *AdaptiveP) Aux() []float64     { return c.state.Aux() }
func (c *AdaptiveP) AuxNames() []string { return c.state.AuxNames() }

// AdaptivePD schedules Kp; Kd stays at its configured value.
type AdaptivePD struct {
	params   Params
	state    *State
	schedule Schedule
}

func NewAdaptivePD(params Params) *AdaptivePD {
	return &AdaptivePD{params: params, state: &State{}, schedule: ScheduleAggressive}
}

func (c *AdaptivePD) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	derivative := (e - c.state.PreviousError) / dt
	g := c.schedule.gain(c.params, c.state, e, derivative, dt)
	c.state.Derivative = derivative
	c.state.recordError(e)
	c.state.PreviousError = e
	return g*e + c.params.Kd*derivative, nil
}

func (c *AdaptivePD) Reset()             { c.state.Reset() }
func (c *AdaptivePD) State() *State      { return c.state }
func (c *AdaptivePD) Aux() []float64     { return c.state.Aux() }
func (c *AdaptivePD) AuxNames() []string { return c.state.AuxNames() }

// AdaptivePI schedules Kp; Ki stays at its configured value.
type AdaptivePI struct {
	params   Params
	state    *State
	schedule Schedule
}

func NewAdaptivePI(params Params) *AdaptivePI {
	return &AdaptivePI{params: params, state: &State{}, schedule: ScheduleConservative}
}

func (c *AdaptivePI) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	c.state.Integral += e * dt
	rate := (e - c.state.PreviousError) / dt
	g := c.schedule.gain(c.params, c.state, e, rate, dt)
	c.state.Derivative = rate
	c.state.recordError(e)
	c.state.PreviousError = e
	return g*e + c.params.Ki*c.state.Integral, nil
}

func (c *AdaptivePI) Reset()             { c.state.Reset() }
func (c *AdaptivePI) State() *State      { return c.state }
func (c *AdaptivePI) Aux() []float64     { return c.state.Aux() }
func (c *AdaptivePI) AuxNames() []string { return c.state.AuxNames() }

// AdaptivePID schedules Kp; Ki and Kd stay at their configured values.
type AdaptivePID struct {
	params   Params
	state    *State
	schedule Schedule
}

func NewAdaptivePID(params Params) *AdaptivePID {
	return &AdaptivePID{params: params, state: &State{}, schedule: ScheduleConservative}
}

func (c *AdaptivePID) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	c.state.Integral += e * dt
	derivative := (e - c.state.PreviousError) / dt
	g := c.schedule.gain(c.params, c.state, e, derivative, dt)
	c.state.Derivative = derivative
	c.state.recordError(e)
	c.state.PreviousError = e
	return g*e + c.params.Ki*c.state.Integral + c.params.Kd*derivative, nil
}

func (c *AdaptivePID) Reset()             { c.state.Reset() }
func (c *AdaptivePID) State() *State      { return c.state }
func (c *AdaptivePID) Aux() []float64     { return c.state.Aux() }
func (c *AdaptivePID) AuxNames() []string { return c.state.AuxNames() }
