// Package optim provides a simple grid search over controller gains.
package optim

import (
	"context"
	"math"

	"github.com/controlkit/ctrlsim/internal/config"
	"github.com/controlkit/ctrlsim/internal/metrics"
	"github.com/controlkit/ctrlsim/internal/scenario"
)

// GridSearch sweeps Kp/Ki/Kd over fixed candidate lists and keeps the
// combination minimizing one metric. Empty lists pin the gain at the
// base config's value.
type GridSearch struct {
	Kp []float64
	Ki []float64
	Kd []float64
}

// Search runs one simulation per grid point and returns the best gains
// with the winning metric value. Runs are sequential; every point gets a
// fresh plant and controller state.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (config.GainsConfig, float64, error) {
	kps := orDefault(g.Kp, base.Gains.Kp)
	kis := orDefault(g.Ki, base.Gains.Ki)
	kds := orDefault(g.Kd, base.Gains.Kd)

	best := math.Inf(1)
	bestGains := base.Gains

	for _, kp := range kps {
		for _, ki := range kis {
			for _, kd := range kds {
				if err := ctx.Err(); err != nil {
					return bestGains, best, err
				}

				cfg := *base
				cfg.Gains = config.GainsConfig{Kp: kp, Ki: ki, Kd: kd}

				val, err := evaluate(ctx, &cfg, metricName)
				if err != nil {
					// A diverging grid point is not a search failure;
					// it just never wins.
					continue
				}

				if val < best {
					best = val
					bestGains = cfg.Gains
				}
			}
		}
	}

	return bestGains, best, nil
}

func evaluate(ctx context.Context, cfg *config.Config, metricName string) (float64, error) {
	loop, simCfg, err := scenario.BuildLoop(cfg)
	if err != nil {
		return 0, err
	}

	for _, m := range metrics.Defaults(simCfg.Dt) {
		loop.AddMetric(m)
	}

	result, err := loop.Run(ctx, simCfg)
	if err != nil {
		return 0, err
	}
	return result.Metrics[metricName], nil
}

func orDefault(values []float64, fallback float64) []float64 {
	if len(values) == 0 {
		return []float64{fallback}
	}
	return values
}
