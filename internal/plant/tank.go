package plant

import (
	"fmt"
	"math"

	"github.com/controlkit/ctrlsim/internal/sim"
)

// TankFlowModel computes the instantaneous net mass flow (kg/s) from the
// current water height and the already-saturated volumetric inflow.
type TankFlowModel interface {
	Net(cfg TankConfig, height, inflow float64) float64
}

// TorricelliFlow is the complete model: outflow is proportional to the
// square root of the level. The non-negativity clamp guards against
// taking the root of a level driven slightly negative by numerical
// overshoot.
type TorricelliFlow struct{}

func (TorricelliFlow) Net(cfg TankConfig, height, inflow float64) float64 {
	outflow := cfg.OutflowCoeff * math.Sqrt(math.Max(height, 0))
	return (inflow - outflow) * cfg.Density
}

// DirectFlow drops the outflow dynamics entirely; the control input is
// accumulated as-is.
type DirectFlow struct{}

func (DirectFlow) Net(cfg TankConfig, height, inflow float64) float64 {
	return inflow * cfg.Density
}

// TankStepper advances the tank by one step. Every stepper saturates the
// inflow, clamps the volume to [0, MaxVolume] and re-derives the level
// percentage, in that order.
type TankStepper interface {
	Step(t *Tank, input, dt float64) float64
}

// TankConfig is the immutable physical configuration of one tank.
type TankConfig struct {
	Area         float64 // m², cross section
	OutflowCoeff float64 // m³/s per √m of level
	Density      float64 // kg/m³
	MaxInflow    float64 // m³/s, saturation bound on the inflow
	MaxVolume    float64 // m³, 100% reference for normalization
	Flow         TankFlowModel
	Stepper      TankStepper
}

// Tank holds water whose volume is the true state; the height derived
// from it feeds the outflow term and the normalized level percentage is
// always derived from the clamped volume.
type Tank struct {
	cfg         TankConfig
	volume      float64
	levelPct    float64
	setpoint    float64
	inflow      float64
	prevNetFlow float64 // previous-step net mass flow, trapezoidal stepper only
}

// NewTank builds a tank filled to the given level percentage.
func NewTank(cfg TankConfig, initialLevelPct float64) (*Tank, error) {
	if cfg.Flow == nil || cfg.Stepper == nil {
		return nil, fmt.Errorf("%w: tank flow model and stepper are required", sim.ErrNilArgument)
	}
	if cfg.Area <= 0 || cfg.Density <= 0 || cfg.MaxVolume <= 0 {
		return nil, fmt.Errorf("%w: area, density and max volume must be positive", sim.ErrInvalidParameter)
	}
	t := &Tank{cfg: cfg, volume: initialLevelPct / 100.0 * cfg.MaxVolume}
	t.clampAndDerive()
	return t, nil
}

func (t *Tank) Output() float64        { return t.levelPct }
func (t *Tank) Setpoint() float64      { return t.setpoint }
func (t *Tank) SetSetpoint(sp float64) { t.setpoint = sp }

// Volume returns the internal water volume in m³.
func (t *Tank) Volume() float64 { return t.volume }

// Height returns the water height in meters, derived from the volume.
func (t *Tank) Height() float64 { return t.volume / t.cfg.Area }

// Inflow returns the last control inflow after saturation.
func (t *Tank) Inflow() float64 { return t.inflow }

// Step advances the tank by one step and returns the new level
// percentage.
func (t *Tank) Step(input, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("%w: dt must be positive, got %f", sim.ErrInvalidParameter, dt)
	}
	return t.cfg.Stepper.Step(t, input, dt), nil
}

func (t *Tank) saturate(input float64) {
	t.inflow = clamp(input, -t.cfg.MaxInflow, t.cfg.MaxInflow)
}

func (t *Tank) clampAndDerive() {
	t.volume = clamp(t.volume, 0, t.cfg.MaxVolume)
	t.levelPct = t.volume / t.cfg.MaxVolume * 100.0
}

// TankEuler integrates the volume with explicit Euler.
type TankEuler struct{}

func (TankEuler) Step(t *Tank, input, dt float64) float64 {
	t.saturate(input)

	massFlow := t.cfg.Flow.Net(t.cfg, t.Height(), t.inflow)
	t.volume += massFlow / t.cfg.Density * dt

	t.clampAndDerive()
	return t.levelPct
}

// TankTrapezoid averages the previous and current net mass flows before
// integrating the volume. It is the only stepper that reads or writes
// prevNetFlow.
type TankTrapezoid struct{}

func (TankTrapezoid) Step(t *Tank, input, dt float64) float64 {
	t.saturate(input)

	massFlowCurrent := t.cfg.Flow.Net(t.cfg, t.Height(), t.inflow)
	massFlowAvg := (t.prevNetFlow + massFlowCurrent) / 2.0
	t.volume += massFlowAvg / t.cfg.Density * dt

	t.clampAndDerive()

	t.prevNetFlow = massFlowCurrent
	return t.levelPct
}
