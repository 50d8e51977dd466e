package optim

import (
	"context"
	"math"
	"testing"

	"github.com/controlkit/ctrlsim/internal/config"
)

func shortTankConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Controller = "p"
	cfg.Gains = config.GainsConfig{Kp: 1.0}
	cfg.Tank.Schedule = false
	cfg.Tank.Setpoint = 70.0
	cfg.Duration = 5.0
	return cfg
}

func TestSearchPicksACandidate(t *testing.T) {
	cfg := shortTankConfig()
	gs := &GridSearch{Kp: []float64{0.2, 1.0, 3.0}}

	best, val, err := gs.Search(context.Background(), cfg, "iae")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if math.IsInf(val, 1) {
		t.Fatal("no grid point was evaluated")
	}

	found := false
	for _, kp := range gs.Kp {
		if best.Kp == kp {
			found = true
		}
	}
	if !found {
		t.Errorf("best Kp %f not among candidates", best.Kp)
	}
	if best.Ki != cfg.Gains.Ki || best.Kd != cfg.Gains.Kd {
		t.Errorf("pinned gains moved: %+v", best)
	}
}

func TestSearchPrefersLowerMetric(t *testing.T) {
	cfg := shortTankConfig()

	// A proportional gain of zero never moves the plant, so any
	// responsive candidate must beat it on tracking error.
	gs := &GridSearch{Kp: []float64{0.0, 1.0}}
	best, _, err := gs.Search(context.Background(), cfg, "iae")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if best.Kp != 1.0 {
		t.Errorf("best Kp = %f, want the responsive candidate", best.Kp)
	}
}

func TestSearchEmptyListsPinBaseGains(t *testing.T) {
	cfg := shortTankConfig()
	cfg.Gains = config.GainsConfig{Kp: 0.7, Ki: 0.1, Kd: 0.2}
	cfg.Controller = "pid"

	gs := &GridSearch{}
	best, _, err := gs.Search(context.Background(), cfg, "iae")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if best != cfg.Gains {
		t.Errorf("best = %+v, want base gains %+v", best, cfg.Gains)
	}
}

func TestSearchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gs := &GridSearch{Kp: []float64{1.0, 2.0}}
	if _, _, err := gs.Search(ctx, shortTankConfig(), "iae"); err == nil {
		t.Error("expected cancellation error")
	}
}
