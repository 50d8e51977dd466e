// Package plant implements the two physical systems: a train on an
// inclined surface chasing a target position, and a water tank with
// Torricelli outflow. Each plant pairs a pluggable net-force/net-flow
// model with a pluggable fixed-step integration scheme.
package plant

import (
	"fmt"
	"math"

	"github.com/controlkit/ctrlsim/internal/sim"
)

// TrainForceModel computes the instantaneous net force on the train from
// its current velocity and the already-saturated applied force.
type TrainForceModel interface {
	Net(cfg TrainConfig, velocity, applied float64) float64
}

// FullTrainForce is the complete model:
// F_net = F_applied - m*g*sin(θ) - c*v².
type FullTrainForce struct{}

func (FullTrainForce) Net(cfg TrainConfig, velocity, applied float64) float64 {
	gravity := cfg.Mass * cfg.Gravity * math.Sin(cfg.InclineAngle)
	drag := cfg.DragCoeff * velocity * velocity
	return applied - gravity - drag
}

// SimplifiedTrainForce drops the velocity-dependent drag term, leaving
// only the static incline loss. Used to validate the control law in
// isolation from secondary effects.
type SimplifiedTrainForce struct{}

func (SimplifiedTrainForce) Net(cfg TrainConfig, velocity, applied float64) float64 {
	gravity := cfg.Mass * cfg.Gravity * math.Sin(cfg.InclineAngle)
	return applied - gravity
}

// TrainStepper advances the train by one step with the given control
// input. Every stepper saturates the input, clamps the position to
// [0, MaxPosition] and re-derives the percentage output, in that order.
type TrainStepper interface {
	Step(t *Train, input, dt float64) float64
}

// TrainConfig is the immutable physical configuration of one train.
type TrainConfig struct {
	Mass         float64 // kg
	Gravity      float64 // m/s²
	InclineAngle float64 // radians, 0 = flat
	DragCoeff    float64 // N·s²/m²
	MaxForce     float64 // N, saturation bound on the applied force
	MaxPosition  float64 // m, 100% reference for normalization
	Force        TrainForceModel
	Stepper      TrainStepper
}

// Train is a point mass moving along an inclined surface. Position is
// the true state; velocity is its own integrated state; the normalized
// percentage output is always derived from the clamped position.
type Train struct {
	cfg          TrainConfig
	position     float64
	velocity     float64
	positionPct  float64
	setpoint     float64
	applied      float64
	lastNetForce float64
	prevNetForce float64 // previous-step net force, trapezoidal stepper only
}

// NewTrain builds a train with the given initial position (m) at rest.
func NewTrain(cfg TrainConfig, initialPosition float64) (*Train, error) {
	if cfg.Force == nil || cfg.Stepper == nil {
		return nil, fmt.Errorf("%w: train force model and stepper are required", sim.ErrNilArgument)
	}
	if cfg.Mass <= 0 || cfg.MaxPosition <= 0 {
		return nil, fmt.Errorf("%w: mass and max position must be positive", sim.ErrInvalidParameter)
	}
	t := &Train{cfg: cfg, position: initialPosition}
	t.clampAndDerive()
	return t, nil
}

func (t *Train) Output() float64        { return t.positionPct }
func (t *Train) Setpoint() float64      { return t.setpoint }
func (t *Train) SetSetpoint(sp float64) { t.setpoint = sp }

// Position returns the internal position in meters.
func (t *Train) Position() float64 { return t.position }

// Velocity returns the internal velocity in m/s.
func (t *Train) Velocity() float64 { return t.velocity }

// Applied returns the last control force after saturation.
func (t *Train) Applied() float64 { return t.applied }

// Step advances the train by one step and returns the new normalized
// position. Saturation happens here, never in the caller.
func (t *Train) Step(input, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("%w: dt must be positive, got %f", sim.ErrInvalidParameter, dt)
	}
	return t.cfg.Stepper.Step(t, input, dt), nil
}

// Aux exposes velocity and acceleration derived from the net force the
// stepper already computed.
func (t *Train) Aux() []float64 {
	return []float64{t.velocity, t.lastNetForce / t.cfg.Mass}
}

func (t *Train) AuxNames() []string {
	return []string{"velocity", "acceleration"}
}

func (t *Train) saturate(input float64) {
	t.applied = clamp(input, -t.cfg.MaxForce, t.cfg.MaxForce)
}

func (t *Train) clampAndDerive() {
	t.position = clamp(t.position, 0, t.cfg.MaxPosition)
	t.positionPct = t.position / t.cfg.MaxPosition * 100.0
}

// TrainEuler is semi-implicit Euler: velocity is updated first and the
// position update uses the already-updated velocity. The distinction
// from plain forward Euler matters for stability.
type TrainEuler struct{}

func (TrainEuler) Step(t *Train, input, dt float64) float64 {
	t.saturate(input)

	net := t.cfg.Force.Net(t.cfg, t.velocity, t.applied)
	t.lastNetForce = net

	acceleration := net / t.cfg.Mass
	t.velocity += acceleration * dt
	t.position += t.velocity * dt

	t.clampAndDerive()
	return t.positionPct
}

// TrainTrapezoid applies the trapezoidal rule independently to the
// velocity-from-acceleration and position-from-velocity integrals, each
// using the mean of the two endpoint rates. It is the only stepper that
// reads or writes prevNetForce.
type TrainTrapezoid struct{}

func (TrainTrapezoid) Step(t *Train, input, dt float64) float64 {
	t.saturate(input)

	netCurrent := t.cfg.Force.Net(t.cfg, t.velocity, t.applied)
	t.lastNetForce = netCurrent

	netAvg := (t.prevNetForce + netCurrent) / 2.0
	accelerationAvg := netAvg / t.cfg.Mass

	velocityPrev := t.velocity
	t.velocity += accelerationAvg * dt
	velocityAvg := (velocityPrev + t.velocity) / 2.0
	t.position += velocityAvg * dt

	t.clampAndDerive()

	t.prevNetForce = netCurrent
	return t.positionPct
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
