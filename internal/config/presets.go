package config

// DefaultGains holds the per-controller tuning used by the batch
// comparison runs. The tank set assumes percentage-unit errors; the
// train set is scaled for a 100 kg mass with a 3000 N force budget.
var DefaultGains = map[string]map[string]GainsConfig{
	"tank": {
		"p":            {Kp: 1.0},
		"p_adaptive":   {Kp: 5.0},
		"pd":           {Kp: 0.40, Kd: 0.60},
		"pd_adaptive":  {Kp: 2.8, Kd: 0.45},
		"pi":           {Kp: 0.30, Ki: 0.08},
		"pi_adaptive":  {Kp: 0.80, Ki: 0.08},
		"pid":          {Kp: 0.35, Ki: 0.08, Kd: 0.50},
		"pid_adaptive": {Kp: 1.0, Ki: 0.08, Kd: 0.50},
	},
	"train": {
		"p":            {Kp: 500.0},
		"p_adaptive":   {Kp: 500.0},
		"pd":           {Kp: 500.0, Kd: 200.0},
		"pd_adaptive":  {Kp: 500.0, Kd: 200.0},
		"pi":           {Kp: 500.0, Ki: 50.0},
		"pi_adaptive":  {Kp: 500.0, Ki: 50.0},
		"pid":          {Kp: 500.0, Ki: 50.0, Kd: 200.0},
		"pid_adaptive": {Kp: 500.0, Ki: 50.0, Kd: 200.0},
	},
}

// Presets are the ready-made scenario configurations.
var Presets = map[string]map[string]*Config{
	"tank": {
		"reference": {
			Model: "tank", Integrator: "euler", ForceModel: "full",
			Controller: "p", Dt: 0.04, Duration: 50.0,
			Gains: GainsConfig{Kp: 1.0},
		},
		"trapezoid": {
			Model: "tank", Integrator: "trapezoid", ForceModel: "full",
			Controller: "pid", Dt: 0.04, Duration: 50.0,
			Gains: GainsConfig{Kp: 0.35, Ki: 0.08, Kd: 0.50},
		},
		"no-outflow": {
			Model: "tank", Integrator: "trapezoid", ForceModel: "simplified",
			Controller: "p", Dt: 0.04, Duration: 50.0,
			Gains: GainsConfig{Kp: 1.0},
		},
	},
	"train": {
		"catch": {
			Model: "train", Integrator: "euler", ForceModel: "full",
			Controller: "pid", Dt: 0.02, Duration: 40.0,
			Gains: GainsConfig{Kp: 500.0, Ki: 50.0, Kd: 200.0},
		},
		"frictionless": {
			Model: "train", Integrator: "trapezoid", ForceModel: "simplified",
			Controller: "pid", Dt: 0.02, Duration: 40.0,
			Gains: GainsConfig{Kp: 500.0, Ki: 50.0, Kd: 200.0},
		},
	},
}

// GetPreset looks up one preset, returning nil when absent. Plant
// physical parameters fall back to the defaults.
func GetPreset(model, name string) *Config {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := group[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Model = p.Model
	cfg.Integrator = p.Integrator
	cfg.ForceModel = p.ForceModel
	cfg.Controller = p.Controller
	cfg.Dt = p.Dt
	cfg.Duration = p.Duration
	cfg.Gains = p.Gains
	return cfg
}

// ListPresets names the presets available for a model.
func ListPresets(model string) []string {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
