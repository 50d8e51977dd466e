package sim

import (
	"context"
	"fmt"
)

// Loop drives one plant/controller pair at a fixed dt. Logical time
// advances by dt per iteration regardless of wall clock; this is an
// offline simulation, not a live control system.
type Loop struct {
	plant   Plant
	ctrl    Controller
	errFn   ErrorFunc
	sink    Sink
	metrics []Metric
}

func NewLoop(plant Plant, ctrl Controller) *Loop {
	return &Loop{
		plant: plant,
		ctrl:  ctrl,
		errFn: SubtractError,
	}
}

// SetErrorFunc replaces the default subtraction error calculation.
func (l *Loop) SetErrorFunc(fn ErrorFunc) {
	if fn != nil {
		l.errFn = fn
	}
}

func (l *Loop) SetSink(s Sink) { l.sink = s }

func (l *Loop) AddMetric(m Metric) { l.metrics = append(l.metrics, m) }

func (l *Loop) Plant() Plant { return l.plant }

func (l *Loop) Controller() Controller { return l.ctrl }

func (l *Loop) validate(cfg Config) error {
	if l.plant == nil || l.ctrl == nil {
		return ErrNilArgument
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidParameter, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidParameter, cfg.Duration)
	}
	return nil
}

// Run executes the loop until the time budget is exhausted, the context
// is cancelled, or a step fails. On failure the run stops immediately
// (fail-fast, no retry) but the partial series already collected is kept
// in the returned Result so a truncated artifact still exists for
// post-mortem inspection.
func (l *Loop) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Times:     make([]float64, 0, steps),
		Outputs:   make([]float64, 0, steps),
		Setpoints: make([]float64, 0, steps),
		Controls:  make([]float64, 0, steps),
		Aux:       make([][]float64, 0, steps),
		Metrics:   make(map[string]float64),
	}

	for _, m := range l.metrics {
		m.Reset()
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			l.finish(result)
			return result, ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt

		if cfg.Setpoint != nil {
			l.plant.SetSetpoint(cfg.Setpoint(t))
		}

		setpoint := l.plant.Setpoint()
		output := l.plant.Output()

		e, err := l.errFn(setpoint, output)
		if err != nil {
			l.finish(result)
			return result, &StepError{Step: i, Time: t, Err: fmt.Errorf("%w: error calculation: %v", ErrCallbackFailed, err)}
		}

		u, err := l.ctrl.Compute(e, cfg.Dt)
		if err != nil {
			l.finish(result)
			return result, &StepError{Step: i, Time: t, Err: err}
		}

		newOutput, err := l.plant.Step(u, cfg.Dt)
		if err != nil {
			l.finish(result)
			return result, &StepError{Step: i, Time: t, Err: err}
		}

		aux := l.collectAux()

		for _, m := range l.metrics {
			m.Observe(t, newOutput, setpoint, u)
		}

		if l.sink != nil {
			if err := l.sink.Append(t, newOutput, setpoint, u, aux); err != nil {
				l.finish(result)
				return result, &StepError{Step: i, Time: t, Err: fmt.Errorf("%w: sink: %v", ErrCallbackFailed, err)}
			}
		}

		result.Times = append(result.Times, t)
		result.Outputs = append(result.Outputs, newOutput)
		result.Setpoints = append(result.Setpoints, setpoint)
		result.Controls = append(result.Controls, u)
		result.Aux = append(result.Aux, aux)
		result.Steps++
	}

	l.finish(result)
	return result, nil
}

// AuxNames returns the names of the concatenated plant and controller
// auxiliary channels, matching the layout of each Result.Aux row.
func (l *Loop) AuxNames() []string {
	var names []string
	if src, ok := l.plant.(AuxSource); ok {
		names = append(names, src.AuxNames()...)
	}
	if src, ok := l.ctrl.(AuxSource); ok {
		names = append(names, src.AuxNames()...)
	}
	return names
}

func (l *Loop) collectAux() []float64 {
	var aux []float64
	if src, ok := l.plant.(AuxSource); ok {
		aux = append(aux, src.Aux()...)
	}
	if src, ok := l.ctrl.(AuxSource); ok {
		aux = append(aux, src.Aux()...)
	}
	return aux
}

func (l *Loop) finish(result *Result) {
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
