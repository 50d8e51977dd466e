// Package config loads and validates run configuration. Everything here
// is consumed by the orchestrator; the core loop only ever sees the
// resulting structs.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.04
	DefaultDuration = 50.0

	// Tank reference scenario: radius 5 m, 4.507 m at 100%.
	DefaultTankArea     = math.Pi * 25.0
	DefaultTankMaxLevel = 4.507
	DefaultOutflowCoeff = 0.1
	DefaultDensity      = 1000.0
	DefaultMaxInflow    = 50.0
	DefaultInitialLevel = 30.0

	// Train catch scenario.
	DefaultTrainMass = 100.0
	DefaultGravity   = 9.81
	DefaultDragCoeff = 0.5
	DefaultMaxForce  = 3000.0
	DefaultMaxPos    = 100.0
	DefaultTrainDt   = 0.02
	DefaultTrainTime = 40.0
)

type Config struct {
	Model      string  `yaml:"model"`       // "tank" or "train"
	Integrator string  `yaml:"integrator"`  // "euler" or "trapezoid"
	ForceModel string  `yaml:"force_model"` // "full" or "simplified"
	Controller string  `yaml:"controller"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`

	Gains GainsConfig `yaml:"gains"`
	Tank  TankConfig  `yaml:"tank"`
	Train TrainConfig `yaml:"train"`
}

type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

type TankConfig struct {
	Area         float64 `yaml:"area"`
	MaxLevel     float64 `yaml:"max_level"`
	OutflowCoeff float64 `yaml:"outflow_coeff"`
	Density      float64 `yaml:"density"`
	MaxInflow    float64 `yaml:"max_inflow"`
	InitialLevel float64 `yaml:"initial_level"` // percent
	Setpoint     float64 `yaml:"setpoint"`      // percent; schedule overrides when enabled
	Schedule     bool    `yaml:"schedule"`      // 70→20→90→50% reference profile
}

type TrainConfig struct {
	Mass         float64 `yaml:"mass"`
	Gravity      float64 `yaml:"gravity"`
	InclineAngle float64 `yaml:"incline_angle"` // degrees
	DragCoeff    float64 `yaml:"drag_coeff"`
	MaxForce     float64 `yaml:"max_force"`
	MaxPosition  float64 `yaml:"max_position"`
	InitialX     float64 `yaml:"initial_x"` // m
	BallX        float64 `yaml:"ball_x"`    // m, target landing position
	BallY        float64 `yaml:"ball_y"`    // m, initial drop height
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "tank",
		Integrator: "euler",
		ForceModel: "full",
		Controller: "p",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Gains:      GainsConfig{Kp: 1.0},
		Tank: TankConfig{
			Area:         DefaultTankArea,
			MaxLevel:     DefaultTankMaxLevel,
			OutflowCoeff: DefaultOutflowCoeff,
			Density:      DefaultDensity,
			MaxInflow:    DefaultMaxInflow,
			InitialLevel: DefaultInitialLevel,
			Setpoint:     70.0,
			Schedule:     true,
		},
		Train: TrainConfig{
			Mass:        DefaultTrainMass,
			Gravity:     DefaultGravity,
			DragCoeff:   DefaultDragCoeff,
			MaxForce:    DefaultMaxForce,
			MaxPosition: DefaultMaxPos,
			BallX:       60.0,
			BallY:       80.0,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model != "tank" && c.Model != "train" {
		return fmt.Errorf("unknown model %q", c.Model)
	}
	if c.Integrator != "euler" && c.Integrator != "trapezoid" {
		return fmt.Errorf("unknown integrator %q", c.Integrator)
	}
	if c.ForceModel != "full" && c.ForceModel != "simplified" {
		return fmt.Errorf("unknown force model %q", c.ForceModel)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	return nil
}
