// Package controller implements the P/PI/PD/PID family and the adaptive
// gain-scheduled variant of each. Controllers are pure with respect to
// the plant: Compute(error, dt) touches nothing but the controller's own
// State.
//
// The integral term uses rectangular accumulation (integral += e*dt)
// even though the plants offer trapezoidal integration for their own
// force/flow state; the two accumulation rules are independent.
package controller

import (
	"fmt"

	"github.com/controlkit/ctrlsim/internal/sim"
)

// P is the plain proportional law: u = Kp*e. Stateless.
type P struct {
	params Params
	state  *State
}

func NewP(params Params) *P {
	return &P{params: params, state: &State{}}
}

func (c *P) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	return c.params.Kp * e, nil
}

func (c *P) Reset()             { c.state.Reset() }
func (c *P) State() *State      { return c.state }
func (c *P) Aux() []float64     { return c.state.Aux() }
func (c *P) AuxNames() []string { return c.state.AuxNames() }

// PI adds rectangular integral accumulation: u = Kp*e + Ki*∫e.
// There is no windup protection; saturation happens in the plant and the
// integral keeps growing while the error persists.
type PI struct {
	params Params
	state  *State
}

func NewPI(params Params) *PI {
	return &PI{params: params, state: &State{}}
}

func (c *PI) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	c.state.Integral += e * dt
	return c.params.Kp*e + c.params.Ki*c.state.Integral, nil
}

func (c *PI) Reset()             { c.state.Reset() }
func (c *PI) State() *State      { return c.state }
func (c *PI) Aux() []float64     { return c.state.Aux() }
func (c *PI) AuxNames() []string { return c.state.AuxNames() }

// PD adds a backward-difference derivative: u = Kp*e + Kd*(e-prev)/dt.
type PD struct {
	params Params
	state  *State
}

func NewPD(params Params) *PD {
	return &PD{params: params, state: &State{}}
}

func (c *PD) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	derivative := (e - c.state.PreviousError) / dt
	c.state.Derivative = derivative
	c.state.PreviousError = e
	return c.params.Kp*e + c.params.Kd*derivative, nil
}

func (c *PD) Reset()             { c.state.Reset() }
func (c *PD) State() *State      { return c.state }
func (c *PD) Aux() []float64     { return c.state.Aux() }
func (c *PD) AuxNames() []string { return c.state.AuxNames() }

// PID sums all three terms. previousError is updated after the
// derivative is taken.
type PID struct {
	params Params
	state  *State
}

func NewPID(params Params) *PID {
	return &PID{params: params, state: &State{}}
}

func (c *PID) Compute(e, dt float64) (float64, error) {
	if err := checkStep(c.state, dt); err != nil {
		return 0, err
	}
	c.state.Integral += e * dt
	derivative := (e - c.state.PreviousError) / dt
	c.state.Derivative = derivative
	c.state.PreviousError = e
	return c.params.Kp*e + c.params.Ki*c.state.Integral + c.params.Kd*derivative, nil
}

func (c *PID) Reset()             { c.state.Reset() }
func (c *PID) State() *State      { return c.state }
func (c *PID) Aux() []float64     { return c.state.Aux() }
func (c *PID) AuxNames() []string { return c.state.AuxNames() }

func checkStep(s *State, dt float64) error {
	if s == nil {
		return sim.ErrNilArgument
	}
	if dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", sim.ErrInvalidParameter, dt)
	}
	return nil
}
