// Package scenario builds runnable loops from configuration and owns the
// two concrete scenarios: the water tank level-tracking reference and the
// train catching a falling ball on an inclined surface.
package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/controlkit/ctrlsim/internal/config"
	"github.com/controlkit/ctrlsim/internal/controller"
	"github.com/controlkit/ctrlsim/internal/plant"
	"github.com/controlkit/ctrlsim/internal/sim"
)

// TankSchedule is the reference setpoint profile: 70→20→90→50% of the
// full level at 12 s boundaries.
func TankSchedule(t float64) float64 {
	switch {
	case t < 12.0:
		return 70.0
	case t < 24.0:
		return 20.0
	case t < 36.0:
		return 90.0
	default:
		return 50.0
	}
}

// TrainScenario is one randomized catch problem: a ball dropped from
// (BallX, BallY) onto a surface inclined at AngleDeg, with the train
// starting at TrainX.
type TrainScenario struct {
	AngleDeg float64
	BallX    float64
	BallY    float64
	TrainX   float64
}

// RandomTrain draws a scenario: angle 0-45°, ball x 20-100 m, drop
// height 30-100 m, train start at least 20 m short of the ball.
func RandomTrain(r *rand.Rand) TrainScenario {
	ballX := 20.0 + r.Float64()*80.0
	maxTrainX := math.Max(ballX-20.0, 0)
	return TrainScenario{
		AngleDeg: r.Float64() * 45.0,
		BallX:    ballX,
		BallY:    30.0 + r.Float64()*70.0,
		TrainX:   r.Float64() * maxTrainX,
	}
}

// Name derives the deterministic, unique run name for this scenario.
func (s TrainScenario) Name(idx int) string {
	return fmt.Sprintf("train_s%02d_a%02.0f_bx%03.0fy%03.0f_tx%03.0f",
		idx, s.AngleDeg, s.BallX, s.BallY, s.TrainX)
}

// BallHeight is the free-fall trajectory y(t) = y0 - ½gt², floored at
// ground level.
func (s TrainScenario) BallHeight(gravity, t float64) float64 {
	y := s.BallY - 0.5*gravity*t*t
	return math.Max(y, 0)
}

// BallHeightPct normalizes the ball height against its drop height.
func (s TrainScenario) BallHeightPct(gravity, t float64) float64 {
	if s.BallY <= 0 {
		return 0
	}
	return s.BallHeight(gravity, t) / s.BallY * 100.0
}

// CatchTime solves y(t)=0 for the moment the ball lands.
func (s TrainScenario) CatchTime(gravity float64) float64 {
	if gravity <= 0 {
		return 0
	}
	return math.Sqrt(2 * s.BallY / gravity)
}

func trainStepper(name string) (plant.TrainStepper, error) {
	switch name {
	case "euler":
		return plant.TrainEuler{}, nil
	case "trapezoid":
		return plant.TrainTrapezoid{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown integrator %q", sim.ErrInvalidParameter, name)
	}
}

func tankStepper(name string) (plant.TankStepper, error) {
	switch name {
	case "euler":
		return plant.TankEuler{}, nil
	case "trapezoid":
		return plant.TankTrapezoid{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown integrator %q", sim.ErrInvalidParameter, name)
	}
}

// NewTank builds the tank plant from configuration.
func NewTank(cfg *config.Config) (*plant.Tank, error) {
	stepper, err := tankStepper(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	var flow plant.TankFlowModel = plant.TorricelliFlow{}
	if cfg.ForceModel == "simplified" {
		flow = plant.DirectFlow{}
	}

	tank, err := plant.NewTank(plant.TankConfig{
		Area:         cfg.Tank.Area,
		OutflowCoeff: cfg.Tank.OutflowCoeff,
		Density:      cfg.Tank.Density,
		MaxInflow:    cfg.Tank.MaxInflow,
		MaxVolume:    cfg.Tank.Area * cfg.Tank.MaxLevel,
		Flow:         flow,
		Stepper:      stepper,
	}, cfg.Tank.InitialLevel)
	if err != nil {
		return nil, err
	}
	tank.SetSetpoint(cfg.Tank.Setpoint)
	return tank, nil
}

// NewTrain builds the train plant from configuration; the setpoint is
// the ball's landing position on the 0-100% position scale.
func NewTrain(cfg *config.Config) (*plant.Train, error) {
	stepper, err := trainStepper(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	var force plant.TrainForceModel = plant.FullTrainForce{}
	if cfg.ForceModel == "simplified" {
		force = plant.SimplifiedTrainForce{}
	}

	train, err := plant.NewTrain(plant.TrainConfig{
		Mass:         cfg.Train.Mass,
		Gravity:      cfg.Train.Gravity,
		InclineAngle: cfg.Train.InclineAngle * math.Pi / 180.0,
		DragCoeff:    cfg.Train.DragCoeff,
		MaxForce:     cfg.Train.MaxForce,
		MaxPosition:  cfg.Train.MaxPosition,
		Force:        force,
		Stepper:      stepper,
	}, cfg.Train.InitialX)
	if err != nil {
		return nil, err
	}
	train.SetSetpoint(cfg.Train.BallX / cfg.Train.MaxPosition * 100.0)
	return train, nil
}

// BuildLoop assembles the plant, controller and loop configuration for
// one run.
func BuildLoop(cfg *config.Config) (*sim.Loop, sim.Config, error) {
	ctrl, err := controller.New(cfg.Controller, controller.Params{
		Kp: cfg.Gains.Kp,
		Ki: cfg.Gains.Ki,
		Kd: cfg.Gains.Kd,
	})
	if err != nil {
		return nil, sim.Config{}, err
	}

	simCfg := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration}

	var p sim.Plant
	switch cfg.Model {
	case "tank":
		tank, err := NewTank(cfg)
		if err != nil {
			return nil, sim.Config{}, err
		}
		if cfg.Tank.Schedule {
			simCfg.Setpoint = TankSchedule
		}
		p = tank
	case "train":
		train, err := NewTrain(cfg)
		if err != nil {
			return nil, sim.Config{}, err
		}
		p = train
	default:
		return nil, sim.Config{}, fmt.Errorf("%w: unknown model %q", sim.ErrInvalidParameter, cfg.Model)
	}

	return sim.NewLoop(p, ctrl), simCfg, nil
}

// ballSink decorates a sink with the falling ball's height channel so
// the series carries both bodies. The trajectory is open loop; nothing
// recomputes plant or controller state here.
type ballSink struct {
	inner   sim.Sink
	sc      TrainScenario
	gravity float64
}

// WithBall wraps sink, appending the ball height percentage to each row.
func WithBall(sink sim.Sink, sc TrainScenario, gravity float64) sim.Sink {
	return &ballSink{inner: sink, sc: sc, gravity: gravity}
}

func (b *ballSink) Append(t, output, setpoint, control float64, aux []float64) error {
	return b.inner.Append(t, output, setpoint, control, append(aux, b.sc.BallHeightPct(b.gravity, t)))
}

func (b *ballSink) Close() error { return b.inner.Close() }

// BallAuxName is the header entry matching the WithBall channel.
const BallAuxName = "ball_height_pct"
