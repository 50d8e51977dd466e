package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/controlkit/ctrlsim/internal/config"
	"github.com/controlkit/ctrlsim/internal/metrics"
	"github.com/controlkit/ctrlsim/internal/sim"
	"github.com/controlkit/ctrlsim/internal/storage"
)

// Run is one fully assembled simulation: a loop that owns its plant and
// controller state exclusively, plus the sink channel layout.
type Run struct {
	Name     string
	Cfg      *config.Config
	Loop     *sim.Loop
	SimCfg   sim.Config
	ExtraAux []string
	WrapSink func(sim.Sink) sim.Sink
}

// Report is the outcome of one run. Failures are run-local; sibling runs
// are unaffected.
type Report struct {
	Name    string
	Steps   int
	Metrics map[string]float64
	Err     error
}

// Runner executes batches of independent runs in parallel, one goroutine
// per run, sharing nothing but the store (which partitions by run name).
type Runner struct {
	store *storage.Store
	log   *slog.Logger
}

func NewRunner(store *storage.Store, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{store: store, log: log}
}

// RunAll executes every run concurrently and joins them. Cancelling ctx
// stops all loops at their next iteration; each run still flushes the
// partial series it collected.
func (r *Runner) RunAll(ctx context.Context, runs []Run) []Report {
	reports := make([]Report, len(runs))

	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			reports[idx] = r.runOne(ctx, runs[idx])
		}(i)
	}
	wg.Wait()

	return reports
}

func (r *Runner) runOne(ctx context.Context, run Run) Report {
	log := r.log.With("run", run.Name)
	log.Info("starting run",
		"controller", run.Cfg.Controller,
		"integrator", run.Cfg.Integrator,
		"kp", run.Cfg.Gains.Kp, "ki", run.Cfg.Gains.Ki, "kd", run.Cfg.Gains.Kd)

	auxNames := append(run.Loop.AuxNames(), run.ExtraAux...)
	writer, err := r.store.Open(run.Name, auxNames)
	if err != nil {
		log.Error("failed to open run storage", "err", err)
		return Report{Name: run.Name, Err: err}
	}
	// The sink is owned by this run and released on every exit path.
	defer writer.Close()

	var sink sim.Sink = writer
	if run.WrapSink != nil {
		sink = run.WrapSink(writer)
	}
	run.Loop.SetSink(sink)

	for _, m := range metrics.Defaults(run.SimCfg.Dt) {
		run.Loop.AddMetric(m)
	}

	result, runErr := run.Loop.Run(ctx, run.SimCfg)
	if result == nil {
		result = &sim.Result{Metrics: map[string]float64{}}
	}

	meta := storage.RunMetadata{
		ID:         run.Name,
		Model:      run.Cfg.Model,
		Controller: run.Cfg.Controller,
		Integrator: run.Cfg.Integrator,
		Timestamp:  time.Now(),
		Dt:         run.SimCfg.Dt,
		Duration:   run.SimCfg.Duration,
		Seed:       run.Cfg.Seed,
		Steps:      result.Steps,
		Metrics:    result.Metrics,
	}

	switch {
	case runErr == nil:
		log.Info("run completed", "steps", result.Steps)
	case errors.Is(runErr, context.Canceled):
		log.Warn("run cancelled", "steps", result.Steps)
		meta.Failed = true
		meta.Error = runErr.Error()
	default:
		var stepErr *sim.StepError
		if errors.As(runErr, &stepErr) {
			log.Error("run failed", "step", stepErr.Step, "sim_time", stepErr.Time, "err", stepErr.Err)
		} else {
			log.Error("run failed", "err", runErr)
		}
		meta.Failed = true
		meta.Error = runErr.Error()
	}

	if err := writer.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := r.store.WriteMeta(meta); err != nil {
		log.Error("failed to write run metadata", "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	return Report{Name: run.Name, Steps: result.Steps, Metrics: result.Metrics, Err: runErr}
}

// TankComparison builds the eight-controller comparison batch on the
// tank reference scenario, every controller with its tuned gains and a
// fresh plant and state.
func TankComparison(base *config.Config, controllers []string) ([]Run, error) {
	runs := make([]Run, 0, len(controllers))
	for _, name := range controllers {
		cfg := *base
		cfg.Model = "tank"
		cfg.Controller = name
		if gains, ok := config.DefaultGains["tank"][name]; ok {
			cfg.Gains = gains
		}

		loop, simCfg, err := BuildLoop(&cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}

		runs = append(runs, Run{
			Name:   fmt.Sprintf("tank_%s_%s", name, cfg.Integrator),
			Cfg:    &cfg,
			Loop:   loop,
			SimCfg: simCfg,
		})
	}
	return runs, nil
}

// TrainScenarios builds count randomized catch runs from one seed. The
// same seed reproduces the same batch.
func TrainScenarios(base *config.Config, count int, seed int64) ([]Run, error) {
	r := rand.New(rand.NewSource(seed))
	runs := make([]Run, 0, count)

	for i := 1; i <= count; i++ {
		sc := RandomTrain(r)

		cfg := *base
		cfg.Model = "train"
		cfg.Seed = seed
		cfg.Train.InclineAngle = sc.AngleDeg
		cfg.Train.BallX = sc.BallX
		cfg.Train.BallY = sc.BallY
		cfg.Train.InitialX = sc.TrainX

		loop, simCfg, err := BuildLoop(&cfg)
		if err != nil {
			return nil, fmt.Errorf("build scenario %d: %w", i, err)
		}

		gravity := cfg.Train.Gravity
		scenario := sc
		runs = append(runs, Run{
			Name:     scenario.Name(i),
			Cfg:      &cfg,
			Loop:     loop,
			SimCfg:   simCfg,
			ExtraAux: []string{BallAuxName},
			WrapSink: func(s sim.Sink) sim.Sink { return WithBall(s, scenario, gravity) },
		})
	}
	return runs, nil
}
