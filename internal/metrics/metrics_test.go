package metrics

import (
	"math"
	"testing"
)

func TestIAE(t *testing.T) {
	m := NewIAE(0.1)
	m.Observe(0.0, 30.0, 70.0, 0)
	m.Observe(0.1, 75.0, 70.0, 0)

	expected := 40.0*0.1 + 5.0*0.1
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("iae = %f, want %f", m.Value(), expected)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("iae after reset = %f", m.Value())
	}
}

func TestOvershootTracksApproachDirection(t *testing.T) {
	// Approaching from below: only excursions above the setpoint count.
	m := NewOvershoot()
	m.Observe(0, 30.0, 70.0, 0)
	m.Observe(1, 78.0, 70.0, 0)
	m.Observe(2, 65.0, 70.0, 0)
	if m.Value() != 8.0 {
		t.Errorf("overshoot = %f, want 8", m.Value())
	}

	// Approaching from above: the excursion below counts instead.
	m.Reset()
	m.Observe(0, 90.0, 70.0, 0)
	m.Observe(1, 64.0, 70.0, 0)
	m.Observe(2, 95.0, 70.0, 0)
	if m.Value() != 6.0 {
		t.Errorf("overshoot = %f, want 6", m.Value())
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(2.0)
	m.Observe(0.0, 30.0, 70.0, 0)
	m.Observe(1.0, 60.0, 70.0, 0)
	m.Observe(2.0, 69.5, 70.0, 0)
	m.Observe(3.0, 69.9, 70.0, 0)

	if m.Value() != 1.0 {
		t.Errorf("settling time = %f, want 1", m.Value())
	}

	// Leaving the band later pushes the settling time out.
	m.Observe(4.0, 50.0, 70.0, 0)
	if m.Value() != 4.0 {
		t.Errorf("settling time = %f, want 4", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Errorf("effort with no samples = %f", m.Value())
	}

	m.Observe(0, 0, 0, 10.0)
	m.Observe(1, 0, 0, -20.0)
	if m.Value() != 15.0 {
		t.Errorf("effort = %f, want 15", m.Value())
	}
}

func TestDefaults(t *testing.T) {
	set := Defaults(0.04)
	if len(set) != 4 {
		t.Fatalf("default set size = %d, want 4", len(set))
	}

	seen := map[string]bool{}
	for _, m := range set {
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %q", m.Name())
		}
		seen[m.Name()] = true
	}
	for _, name := range []string{"iae", "overshoot", "settling_time", "control_effort"} {
		if !seen[name] {
			t.Errorf("missing metric %q", name)
		}
	}
}
