package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/controlkit/ctrlsim/internal/sim"
)

func smallTankConfig(stepper TankStepper) TankConfig {
	return TankConfig{
		Area:         1.0,
		OutflowCoeff: 0.2,
		Density:      1000.0,
		MaxInflow:    10.0,
		MaxVolume:    1.0,
		Flow:         TorricelliFlow{},
		Stepper:      stepper,
	}
}

func TestNewTankValidation(t *testing.T) {
	cfg := smallTankConfig(TankEuler{})
	cfg.Flow = nil
	if _, err := NewTank(cfg, 50.0); !errors.Is(err, sim.ErrNilArgument) {
		t.Errorf("nil flow model: got %v", err)
	}

	cfg = smallTankConfig(TankEuler{})
	cfg.Area = 0
	if _, err := NewTank(cfg, 50.0); !errors.Is(err, sim.ErrInvalidParameter) {
		t.Errorf("zero area: got %v", err)
	}
}

func TestTankInitialLevel(t *testing.T) {
	tank, err := NewTank(smallTankConfig(TankEuler{}), 30.0)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}
	if math.Abs(tank.Output()-30.0) > 1e-9 {
		t.Errorf("level = %f, want 30", tank.Output())
	}
	if math.Abs(tank.Volume()-0.3) > 1e-12 {
		t.Errorf("volume = %f, want 0.3", tank.Volume())
	}
}

func TestTankSaturatesInflow(t *testing.T) {
	tank, err := NewTank(smallTankConfig(TankEuler{}), 50.0)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}

	if _, err := tank.Step(1e3, 0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if tank.Inflow() != 10.0 {
		t.Errorf("inflow = %f, want 10", tank.Inflow())
	}

	if _, err := tank.Step(-1e3, 0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if tank.Inflow() != -10.0 {
		t.Errorf("inflow = %f, want -10", tank.Inflow())
	}
}

func TestTankLevelStaysInRange(t *testing.T) {
	for _, input := range []float64{10.0, -10.0} {
		tank, err := NewTank(smallTankConfig(TankEuler{}), 50.0)
		if err != nil {
			t.Fatalf("new tank: %v", err)
		}
		for i := 0; i < 500; i++ {
			pct, err := tank.Step(input, 0.04)
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if pct < 0 || pct > 100 {
				t.Fatalf("level %f out of [0,100] at step %d", pct, i)
			}
		}
	}
}

func TestTankEulerStep(t *testing.T) {
	tank, err := NewTank(smallTankConfig(TankEuler{}), 50.0)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}

	dt := 0.04
	inflow := 1.0
	height := tank.Height()
	expected := tank.Volume() + (inflow-0.2*math.Sqrt(height))*dt

	if _, err := tank.Step(inflow, dt); err != nil {
		t.Fatalf("step: %v", err)
	}
	if math.Abs(tank.Volume()-expected) > 1e-12 {
		t.Errorf("volume = %f, want %f", tank.Volume(), expected)
	}
}

func TestTorricelliGuardsNegativeHeight(t *testing.T) {
	cfg := smallTankConfig(TankEuler{})

	// A level driven slightly negative by overshoot must not feed a
	// negative value into the square root.
	net := TorricelliFlow{}.Net(cfg, -0.01, 2.0)
	if math.Abs(net-2.0*cfg.Density) > 1e-12 {
		t.Errorf("net flow = %f, want pure inflow %f", net, 2.0*cfg.Density)
	}
}

func TestDirectFlowIgnoresLevel(t *testing.T) {
	cfg := smallTankConfig(TankEuler{})

	low := DirectFlow{}.Net(cfg, 0.1, 2.0)
	high := DirectFlow{}.Net(cfg, 100.0, 2.0)
	if low != high {
		t.Errorf("direct flow depends on level: %f vs %f", low, high)
	}
	if math.Abs(low-2.0*cfg.Density) > 1e-12 {
		t.Errorf("net flow = %f, want %f", low, 2.0*cfg.Density)
	}
}

func TestTankEulerIgnoresPrevNetFlow(t *testing.T) {
	tank, err := NewTank(smallTankConfig(TankEuler{}), 50.0)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}
	tank.prevNetFlow = 1e9

	before := tank.Volume()
	if _, err := tank.Step(0, 0.04); err != nil {
		t.Fatalf("step: %v", err)
	}
	if tank.Volume() >= before {
		t.Errorf("free decay should drain: %f -> %f", before, tank.Volume())
	}
	if tank.Volume() < before-1.0 {
		t.Errorf("volume jumped, carry state leaked into Euler: %f", tank.Volume())
	}
}

// freeDecay drains the tank with zero inflow for one simulated second
// and returns the final level percentage.
func freeDecay(t *testing.T, stepper TankStepper, dt float64) float64 {
	t.Helper()
	tank, err := NewTank(smallTankConfig(stepper), 50.0)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}

	steps := int(math.Round(1.0 / dt))
	var pct float64
	for i := 0; i < steps; i++ {
		pct, err = tank.Step(0, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return pct
}

// Halving dt must shrink the error of both schemes against a fine-step
// reference, and shrink the distance between the two schemes' answers.
func TestSteppersConvergeOnFreeDecay(t *testing.T) {
	ref := freeDecay(t, TankEuler{}, 1e-5)

	eulerCoarse := math.Abs(freeDecay(t, TankEuler{}, 0.02) - ref)
	eulerFine := math.Abs(freeDecay(t, TankEuler{}, 0.01) - ref)
	if eulerFine >= eulerCoarse {
		t.Errorf("euler error did not shrink: %g -> %g", eulerCoarse, eulerFine)
	}

	trapCoarse := math.Abs(freeDecay(t, TankTrapezoid{}, 0.02) - ref)
	trapFine := math.Abs(freeDecay(t, TankTrapezoid{}, 0.01) - ref)
	if trapFine >= trapCoarse {
		t.Errorf("trapezoid error did not shrink: %g -> %g", trapCoarse, trapFine)
	}

	gap := func(dt float64) float64 {
		return math.Abs(freeDecay(t, TankTrapezoid{}, dt) - freeDecay(t, TankEuler{}, dt))
	}
	gapCoarse := gap(0.02)
	gapFine := gap(0.01)
	if gapFine >= gapCoarse*0.75 {
		t.Errorf("schemes not converging on each other: gap %g -> %g", gapCoarse, gapFine)
	}
}
