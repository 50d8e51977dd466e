package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/controlkit/ctrlsim/internal/config"
	"github.com/controlkit/ctrlsim/internal/controller"
	"github.com/controlkit/ctrlsim/internal/optim"
	"github.com/controlkit/ctrlsim/internal/scenario"
	"github.com/controlkit/ctrlsim/internal/storage"
	"github.com/controlkit/ctrlsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	dt             float64
	duration       float64
	integrator     string
	controllerName string
	forceModel     string

	kp, ki, kd float64
	setpoint   float64
	seed       int64

	inclineAngle float64
	ballX        float64
	ballY        float64
	trainX       float64

	scenarios int
	frameRate int
	metric    string
)

func main() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	))

	rootCmd := &cobra.Command{
		Use:   "ctrlsim",
		Short: "closed-loop control co-simulation lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ctrlsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run one simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [model]",
		Short: "run the controller comparison (tank) or random scenarios (train) in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	addRunFlags(batchCmd)
	batchCmd.Flags().IntVar(&scenarios, "scenarios", 10, "number of random train scenarios")

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid search controller gains",
		Args:  cobra.ExactArgs(1),
		RunE:  runTune,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimize")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run one simulation with a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	rootCmd.AddCommand(runCmd, batchCmd, tuneCmd, listCmd, plotCmd, exportCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep (0 = model default)")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration (0 = model default)")
	cmd.Flags().StringVar(&integrator, "integrator", "euler", "integrator (euler|trapezoid)")
	cmd.Flags().StringVar(&controllerName, "controller", "pid", "controller variant")
	cmd.Flags().StringVar(&forceModel, "force-model", "full", "net force/flow model (full|simplified)")
	cmd.Flags().Float64Var(&kp, "kp", 0, "proportional gain (0 = tuned default)")
	cmd.Flags().Float64Var(&ki, "ki", 0, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain")
	cmd.Flags().Float64Var(&setpoint, "setpoint", 70.0, "tank setpoint %% (ignored when schedule active)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().Float64Var(&inclineAngle, "angle", 15.0, "incline angle (degrees, train)")
	cmd.Flags().Float64Var(&ballX, "ball-x", 60.0, "ball landing position (m, train)")
	cmd.Flags().Float64Var(&ballY, "ball-y", 80.0, "ball drop height (m, train)")
	cmd.Flags().Float64Var(&trainX, "train-x", 0.0, "train initial position (m)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
}

// buildConfig assembles the run configuration from preset, config file
// and flags, in increasing priority.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Model = model
	}

	if model == "train" && dt == 0 && cfg.Dt == config.DefaultDt {
		cfg.Dt = config.DefaultTrainDt
		cfg.Duration = config.DefaultTrainTime
	}

	if cmd.Flags().Changed("dt") && dt > 0 {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") && duration > 0 {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") || cfg.Integrator == "" {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("controller") || cfg.Controller == "" {
		cfg.Controller = controllerName
	}
	if cmd.Flags().Changed("force-model") {
		cfg.ForceModel = forceModel
	}
	if gains, ok := config.DefaultGains[model][cfg.Controller]; ok && cfg.Gains == (config.GainsConfig{}) {
		cfg.Gains = gains
	}
	if cmd.Flags().Changed("kp") {
		cfg.Gains.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.Gains.Ki = ki
	}
	if cmd.Flags().Changed("kd") {
		cfg.Gains.Kd = kd
	}
	if cmd.Flags().Changed("setpoint") {
		cfg.Tank.Setpoint = setpoint
		cfg.Tank.Schedule = false
	}
	if cmd.Flags().Changed("angle") {
		cfg.Train.InclineAngle = inclineAngle
	}
	if cmd.Flags().Changed("ball-x") {
		cfg.Train.BallX = ballX
	}
	if cmd.Flags().Changed("ball-y") {
		cfg.Train.BallY = ballY
	}
	if cmd.Flags().Changed("train-x") {
		cfg.Train.InitialX = trainX
	}
	cfg.Seed = seed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	loop, simCfg, err := scenario.BuildLoop(cfg)
	if err != nil {
		return err
	}

	runName := fmt.Sprintf("%s_%s_%s_%d", cfg.Model, cfg.Controller, cfg.Integrator, time.Now().Unix())
	runner := scenario.NewRunner(store, slog.Default())

	start := time.Now()
	reports := runner.RunAll(ctx, []scenario.Run{{
		Name:   runName,
		Cfg:    cfg,
		Loop:   loop,
		SimCfg: simCfg,
	}})
	report := reports[0]
	if report.Err != nil {
		return report.Err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", report.Name)
	fmt.Printf("steps: %d\n", report.Steps)
	fmt.Println("\nmetrics:")
	for name, val := range report.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	model := args[0]
	cfg, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var runs []scenario.Run
	switch model {
	case "tank":
		runs, err = scenario.TankComparison(cfg, controller.Names)
	case "train":
		runs, err = scenario.TrainScenarios(cfg, scenarios, cfg.Seed)
	default:
		return fmt.Errorf("unknown model %q", model)
	}
	if err != nil {
		return err
	}

	runner := scenario.NewRunner(store, slog.Default())
	reports := runner.RunAll(ctx, runs)

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("%d runs completed, %d failed\n", len(reports)-failed, failed)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	search := &optim.GridSearch{
		Kp: scale(cfg.Gains.Kp, 0.25, 0.5, 1.0, 2.0, 4.0),
		Ki: scale(cfg.Gains.Ki, 0.5, 1.0, 2.0),
		Kd: scale(cfg.Gains.Kd, 0.5, 1.0, 2.0),
	}

	fmt.Printf("searching %s gains minimizing %s...\n", cfg.Controller, metric)
	best, val, err := search.Search(ctx, cfg, metric)
	if err != nil {
		return err
	}

	fmt.Printf("best %s = %.6f\n", metric, val)
	fmt.Printf("kp = %.4f\nki = %.4f\nkd = %.4f\n", best.Kp, best.Ki, best.Kd)
	return nil
}

// scale spreads a base gain over relative factors; a zero base stays
// pinned at zero so P stays P.
func scale(base float64, factors ...float64) []float64 {
	if base == 0 {
		return []float64{0}
	}
	out := make([]float64, len(factors))
	for i, f := range factors {
		out[i] = base * f
	}
	return out
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCTRL\tINTEG\tTIME\tDT\tSTEPS\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Failed {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.4f\t%d\t%s\n",
			run.ID, run.Model, run.Controller, run.Integrator,
			run.Timestamp.Format("2006-01-02 15:04:05"), run.Dt, run.Steps, status)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	header, cols, err := store.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(cols) >= 3 {
		fmt.Println(viz.RenderComparison(args[0], cols[1], cols[2]))
	}
	fmt.Println(viz.RenderSeries(args[0], header, cols))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	loop, simCfg, err := scenario.BuildLoop(cfg)
	if err != nil {
		return err
	}

	model := viz.NewLiveModel(loop.Plant(), loop.Controller(), simCfg.Setpoint, simCfg.Dt, simCfg.Duration, frameRate)
	return viz.RunLive(model)
}
