package scenario

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/controlkit/ctrlsim/internal/config"
	"github.com/controlkit/ctrlsim/internal/storage"
)

func quietRunner(t *testing.T) (*Runner, *storage.Store) {
	t.Helper()
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(store, log), store
}

func TestTankComparisonBuildsOneRunPerController(t *testing.T) {
	base := config.DefaultConfig()
	controllers := []string{"p", "pi", "pid_adaptive"}

	runs, err := TankComparison(base, controllers)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}
	if len(runs) != len(controllers) {
		t.Fatalf("runs = %d, want %d", len(runs), len(controllers))
	}

	seen := map[string]bool{}
	for i, run := range runs {
		if seen[run.Name] {
			t.Errorf("duplicate run name %q", run.Name)
		}
		seen[run.Name] = true

		if run.Cfg.Controller != controllers[i] {
			t.Errorf("run %d controller = %s, want %s", i, run.Cfg.Controller, controllers[i])
		}
		if want, ok := config.DefaultGains["tank"][controllers[i]]; ok && run.Cfg.Gains != want {
			t.Errorf("run %d gains = %+v, want tuned %+v", i, run.Cfg.Gains, want)
		}
	}
}

func TestTankComparisonRejectsUnknownController(t *testing.T) {
	base := config.DefaultConfig()
	if _, err := TankComparison(base, []string{"bang-bang"}); err == nil {
		t.Error("expected error for unknown controller")
	}
}

func TestRunnerExecutesBatch(t *testing.T) {
	runner, store := quietRunner(t)

	base := config.DefaultConfig()
	base.Duration = 2.0
	runs, err := TankComparison(base, []string{"p", "pid"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	reports := runner.RunAll(context.Background(), runs)
	if len(reports) != 2 {
		t.Fatalf("reports = %d", len(reports))
	}

	wantSteps := int(base.Duration / base.Dt)
	for _, rep := range reports {
		if rep.Err != nil {
			t.Fatalf("run %s failed: %v", rep.Name, rep.Err)
		}
		if rep.Steps != wantSteps {
			t.Errorf("run %s steps = %d, want %d", rep.Name, rep.Steps, wantSteps)
		}
		if _, ok := rep.Metrics["iae"]; !ok {
			t.Errorf("run %s missing iae metric: %v", rep.Name, rep.Metrics)
		}
	}

	stored, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored runs = %d, want 2", len(stored))
	}
	for _, meta := range stored {
		if meta.Failed {
			t.Errorf("run %s marked failed: %s", meta.ID, meta.Error)
		}
		if meta.Steps != wantSteps {
			t.Errorf("run %s meta steps = %d", meta.ID, meta.Steps)
		}

		header, cols, err := store.LoadSeries(meta.ID)
		if err != nil {
			t.Fatalf("load series %s: %v", meta.ID, err)
		}
		if len(header) < 4 {
			t.Fatalf("series header = %v", header)
		}
		if len(cols[0]) != wantSteps {
			t.Errorf("run %s series rows = %d, want %d", meta.ID, len(cols[0]), wantSteps)
		}
	}
}

func TestRunnerCancellationFlushesPartialSeries(t *testing.T) {
	runner, store := quietRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := config.DefaultConfig()
	runs, err := TankComparison(base, []string{"p"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	reports := runner.RunAll(ctx, runs)
	if reports[0].Err == nil {
		t.Fatal("expected cancellation error")
	}

	meta, err := store.Load(runs[0].Name)
	if err != nil {
		t.Fatalf("metadata should exist for a cancelled run: %v", err)
	}
	if !meta.Failed {
		t.Error("cancelled run not marked failed")
	}
}

func TestTrainScenariosReproducible(t *testing.T) {
	base := config.DefaultConfig()
	base.Model = "train"
	base.Controller = "pid"
	base.Gains = config.DefaultGains["train"]["pid"]
	base.Dt = config.DefaultTrainDt
	base.Duration = config.DefaultTrainTime

	first, err := TrainScenarios(base, 4, 99)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := TrainScenarios(base, 4, 99)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}

	if len(first) != 4 {
		t.Fatalf("runs = %d, want 4", len(first))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("run %d name diverged: %s vs %s", i, first[i].Name, second[i].Name)
		}
		if len(first[i].ExtraAux) != 1 || first[i].ExtraAux[0] != BallAuxName {
			t.Errorf("run %d extra aux = %v", i, first[i].ExtraAux)
		}
		if first[i].WrapSink == nil {
			t.Errorf("run %d missing ball sink decorator", i)
		}
	}
}

func TestTrainScenariosRunEndToEnd(t *testing.T) {
	runner, store := quietRunner(t)

	base := config.DefaultConfig()
	base.Model = "train"
	base.Controller = "pid"
	base.Gains = config.DefaultGains["train"]["pid"]
	base.Dt = config.DefaultTrainDt
	base.Duration = 1.0

	runs, err := TrainScenarios(base, 2, 7)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	reports := runner.RunAll(context.Background(), runs)
	for _, rep := range reports {
		if rep.Err != nil {
			t.Fatalf("run %s failed: %v", rep.Name, rep.Err)
		}
	}

	// The stored series carries the ball channel after the plant aux.
	header, _, err := store.LoadSeries(runs[0].Name)
	if err != nil {
		t.Fatalf("load series: %v", err)
	}
	if header[len(header)-1] != BallAuxName {
		t.Errorf("last channel = %q, want %q", header[len(header)-1], BallAuxName)
	}
}
