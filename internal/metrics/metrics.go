// Package metrics provides per-run scalar metrics computed as loop
// observers.
package metrics

import (
	"math"

	"github.com/controlkit/ctrlsim/internal/sim"
)

// IAE accumulates the integral of absolute error.
type IAE struct {
	dt  float64
	sum float64
}

func NewIAE(dt float64) *IAE {
	return &IAE{dt: dt}
}

func (m *IAE) Name() string { return "iae" }

func (m *IAE) Observe(t, output, setpoint, control float64) {
	m.sum += math.Abs(setpoint-output) * m.dt
}

func (m *IAE) Value() float64 { return m.sum }
func (m *IAE) Reset()         { m.sum = 0 }

// Overshoot tracks the largest excursion of the output past the
// setpoint, in the direction the error started in.
type Overshoot struct {
	max   float64
	first bool
	sign  float64
}

func NewOvershoot() *Overshoot {
	return &Overshoot{first: true}
}

func (m *Overshoot) Name() string { return "overshoot" }

func (m *Overshoot) Observe(t, output, setpoint, control float64) {
	if m.first {
		if output < setpoint {
			m.sign = 1
		} else {
			m.sign = -1
		}
		m.first = false
	}
	over := (output - setpoint) * m.sign
	if over > m.max {
		m.max = over
	}
}

func (m *Overshoot) Value() float64 { return m.max }

func (m *Overshoot) Reset() {
	m.max = 0
	m.first = true
}

// SettlingTime reports the last time the output left the tolerance band
// around the setpoint.
type SettlingTime struct {
	tolerance float64
	last      float64
}

func NewSettlingTime(tolerance float64) *SettlingTime {
	return &SettlingTime{tolerance: tolerance}
}

func (m *SettlingTime) Name() string { return "settling_time" }

func (m *SettlingTime) Observe(t, output, setpoint, control float64) {
	if math.Abs(setpoint-output) > m.tolerance {
		m.last = t
	}
}

func (m *SettlingTime) Value() float64 { return m.last }
func (m *SettlingTime) Reset()         { m.last = 0 }

// ControlEffort averages the absolute control signal.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (m *ControlEffort) Name() string { return "control_effort" }

func (m *ControlEffort) Observe(t, output, setpoint, control float64) {
	m.sum += math.Abs(control)
	m.samples++
}

func (m *ControlEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *ControlEffort) Reset() {
	m.sum = 0
	m.samples = 0
}

// Defaults is the metric set attached to every batch run.
func Defaults(dt float64) []sim.Metric {
	return []sim.Metric{
		NewIAE(dt),
		NewOvershoot(),
		NewSettlingTime(2.0),
		NewControlEffort(),
	}
}
