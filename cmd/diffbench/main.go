package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/githubhash01/Honours-Project/internal/analysis"
	"github.com/githubhash01/Honours-Project/internal/compute"
	"github.com/githubhash01/Honours-Project/internal/config"
	"github.com/githubhash01/Honours-Project/internal/control"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/experiment"
	"github.com/githubhash01/Honours-Project/internal/integrators"
	"github.com/githubhash01/Honours-Project/internal/metrics"
	"github.com/githubhash01/Honours-Project/internal/optimize"
	"github.com/githubhash01/Honours-Project/internal/sim"
	"github.com/githubhash01/Honours-Project/internal/store"
	"github.com/githubhash01/Honours-Project/internal/task"
	"github.com/githubhash01/Honours-Project/internal/viz"
)

var settings config.Settings

var (
	dataDir string
	dbPath  string
	verbose bool
	noColor bool

	// run
	runController string
	runPolicy     string
	runIntegrator string
	runX0         string
	runSteps      int
	runSeed       int64
	runSave       bool
	runKp         float64
	runKi         float64
	runKd         float64

	// train
	trainConfig     string
	trainTask       string
	trainMethod     string
	trainIntegrator string
	trainSeed       int64
	trainEpochs     int
	trainBatch      int
	trainLR         float64
	trainDt         float64
	trainHorizon    int
	trainEpisodes   int
	trainLive       bool

	// eval
	evalEpisodes int
	evalSeed     int64

	// runs list
	runsLimit int

	// runs export
	exportFormat string

	// plot
	plotTraj bool

	// phase
	xAxis           int
	yAxis           int
	phaseIntegrator string
	phaseX0         string
	phaseSeed       int64
	phaseDuration   float64

	// sweep
	sweepMin      float64
	sweepMax      float64
	sweepPoints   int
	sweepEpisodes int

	// tune
	tuneIntegrator string
	tuneEpisodes   int
	tuneSeed       int64
)

func main() {
	var err error
	settings, err = config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "diffbench",
		Short: "differentiable control benchmark lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				viz.NoColor()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", settings.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", settings.DB, "database path (default <data-dir>/bench.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors")

	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "simulate a task under a controller",
		Args:  cobra.ExactArgs(1),
		RunE:  runTask,
	}
	runCmd.Flags().StringVar(&runController, "controller", "none", "controller (none, pid, lqr)")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "run id of a stored policy to use instead")
	runCmd.Flags().StringVar(&runIntegrator, "integrator", "rk4", "integrator")
	runCmd.Flags().StringVar(&runX0, "x0", "", "initial state, comma separated (default task sample)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "horizon override")
	runCmd.Flags().Int64Var(&runSeed, "seed", 42, "random seed")
	runCmd.Flags().Float64Var(&runKp, "kp", 10.0, "pid kp")
	runCmd.Flags().Float64Var(&runKi, "ki", 0.1, "pid ki")
	runCmd.Flags().Float64Var(&runKd, "kd", 5.0, "pid kd")
	runCmd.Flags().BoolVar(&runSave, "save", false, "record the rollout")

	trainCmd := &cobra.Command{
		Use:   "train [preset]",
		Short: "train a controller",
		Args:  cobra.MaximumNArgs(1),
		RunE:  trainRun,
	}
	trainCmd.Flags().StringVar(&trainConfig, "config", "", "yaml run config")
	trainCmd.Flags().StringVar(&trainTask, "task", "di", "task")
	trainCmd.Flags().StringVar(&trainMethod, "method", "policy", "training method")
	trainCmd.Flags().StringVar(&trainIntegrator, "integrator", "euler", "integrator")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "random seed")
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "epochs override")
	trainCmd.Flags().IntVar(&trainBatch, "batch", 0, "batch size override")
	trainCmd.Flags().Float64Var(&trainLR, "lr", 0, "learning rate override")
	trainCmd.Flags().Float64Var(&trainDt, "dt", 0, "step size override")
	trainCmd.Flags().IntVar(&trainHorizon, "horizon", 0, "horizon override")
	trainCmd.Flags().IntVar(&trainEpisodes, "episodes", 0, "evaluation episodes override")
	trainCmd.Flags().BoolVar(&trainLive, "live", false, "live training monitor")

	benchCmd := &cobra.Command{
		Use:   "bench [suite.yaml]",
		Short: "run a benchmark suite",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSuite,
	}

	evalCmd := &cobra.Command{
		Use:   "eval [run-id]",
		Short: "re-evaluate a stored policy on fresh episodes",
		Args:  cobra.ExactArgs(1),
		RunE:  evalRun,
	}
	evalCmd.Flags().IntVar(&evalEpisodes, "episodes", 20, "evaluation episodes")
	evalCmd.Flags().Int64Var(&evalSeed, "seed", 0, "evaluation seed (default run seed + 1)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list tasks, methods and integrators",
		RunE:  listCatalog,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "manage stored runs",
	}
	runsListCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runsList,
	}
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 0, "show at most this many runs (0 = all)")
	runsShowCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "show run details",
		Args:  cobra.ExactArgs(1),
		RunE:  runsShow,
	}
	runsExportCmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "export a run to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runsExport,
	}
	runsExportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json, csv, svg)")
	runsDeleteCmd := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "delete a run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE:  runsDelete,
	}
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsExportCmd, runsDeleteCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&plotTraj, "traj", false, "plot the trajectory instead of the learning curve")

	compareCmd := &cobra.Command{
		Use:   "compare [run-id] [run-id] ...",
		Short: "overlay learning curves of several runs",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareRuns,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run-id|task]",
		Short: "phase portrait of a stored run or a fresh rollout",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y")
	phaseCmd.Flags().StringVar(&phaseIntegrator, "integrator", "rk4", "integrator for fresh rollouts")
	phaseCmd.Flags().StringVar(&phaseX0, "x0", "", "initial state for fresh rollouts (default task sample)")
	phaseCmd.Flags().Int64Var(&phaseSeed, "seed", 42, "sampling seed for fresh rollouts")
	phaseCmd.Flags().Float64Var(&phaseDuration, "duration", 0, "fresh rollout length in seconds (default task horizon)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run-id]",
		Short: "energy, spectrum and stability analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [run-id] [param]",
		Short: "sweep a physical parameter under a stored policy",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  sweepParam,
	}
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep start (default 0.5x nominal)")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "sweep end (default 1.5x nominal)")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 9, "grid points")
	sweepCmd.Flags().IntVar(&sweepEpisodes, "episodes", 10, "episodes per point")

	tuneCmd := &cobra.Command{
		Use:   "tune [task]",
		Short: "grid-search pid gains on a task",
		Args:  cobra.ExactArgs(1),
		RunE:  tunePID,
	}
	tuneCmd.Flags().StringVar(&tuneIntegrator, "integrator", "rk4", "integrator")
	tuneCmd.Flags().IntVar(&tuneEpisodes, "episodes", 10, "episodes per candidate")
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", 0, "random seed")

	playCmd := &cobra.Command{
		Use:   "play [run-id]",
		Short: "animate a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  playRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list training presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTASK\tMETHOD\tINTEGRATOR")
			for _, name := range config.PresetNames() {
				run, err := config.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, run.Task, run.Method, run.Integrator)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, trainCmd, benchCmd, evalCmd, listCmd, runsCmd,
		plotCmd, compareCmd, phaseCmd, analyzeCmd, sweepCmd, tuneCmd, playCmd, presetsCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tk, err := task.New(args[0])
	if err != nil {
		return err
	}

	var st *store.Store
	if runPolicy != "" || runSave {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	runCfg := config.Default()
	runCfg.Task = tk.Name
	runCfg.Method = runController
	runCfg.Seed = runSeed
	runCfg.Kp, runCfg.Ki, runCfg.Kd = runKp, runKi, runKd

	var ctrl dynamics.Controller
	var policyRec *store.Run
	if runPolicy != "" {
		policyRec, err = findRun(ctx, st, runPolicy)
		if err != nil {
			return err
		}
		if policyRec.Task != tk.Name {
			return fmt.Errorf("policy %s was trained on %s, not %s",
				shortID(policyRec.ID), policyRec.Task, tk.Name)
		}
		runCfg, err = loadRunConfig(policyRec)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("integrator") {
			runIntegrator = policyRec.Integrator
		}
		ctrl, err = restoreController(ctx, st, policyRec, runCfg, tk)
		if err != nil {
			return err
		}
	} else {
		switch runController {
		case "none":
			ctrl = control.NewNone(tk.System.ControlDim())
		case "pid", "lqr":
			ctrl, err = experiment.RestoreController(runCfg, tk, nil)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown controller: %s (none, pid, lqr, or --policy)", runController)
		}
	}
	runCfg.Integrator = runIntegrator

	integ, err := integrators.New(runIntegrator)
	if err != nil {
		return err
	}

	horizon := tk.Horizon
	if runSteps > 0 {
		horizon = runSteps
	}

	var x0 dynamics.State
	if runX0 != "" {
		x0, err = parseState(runX0, tk.System.StateDim())
		if err != nil {
			return err
		}
	} else {
		x0 = tk.Init(rand.New(rand.NewSource(runSeed)))
	}

	s := sim.New(tk.System, integ, control.NewBounded(ctrl, tk.ControlLimit))
	for _, m := range metrics.Defaults(tk.System) {
		s.AddMetric(m)
	}
	s.AddMetric(metrics.NewCost(tk))

	cfg := dynamics.DefaultConfig()
	cfg.Dt = tk.Dt
	cfg.Duration = float64(horizon) * tk.Dt
	cfg.Seed = runSeed

	fmt.Printf("running %s for %d steps...\n", tk.Name, horizon)
	start := time.Now()
	result, err := s.Run(ctx, x0, cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("steps: %d\n", result.StepsTaken)

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	if runSave {
		data, err := yaml.Marshal(runCfg)
		if err != nil {
			return err
		}
		rec := &store.Run{
			Task:       tk.Name,
			Method:     runCfg.Method,
			Integrator: runIntegrator,
			Seed:       runSeed,
			Config:     string(data),
			Status:     store.StatusDone,
			FinalCost:  result.Metrics["cost"],
			Steps:      int64(result.StepsTaken),
			WallTime:   elapsed,
		}
		if err := st.SaveRun(ctx, rec); err != nil {
			return err
		}
		if err := st.SaveTrajectory(ctx, rec.ID, result); err != nil {
			return err
		}
		if policyRec != nil {
			if data, err := st.LoadPolicy(ctx, policyRec.ID); err == nil {
				if err := st.SavePolicy(ctx, rec.ID, data); err != nil {
					return err
				}
			}
		}
		fmt.Printf("\nrun id: %s\n", rec.ID)
	}
	return nil
}

func trainRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	run := config.Default()
	if len(args) > 0 {
		preset, err := config.Preset(args[0])
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(config.PresetNames(), ", "))
		}
		run = preset
	}
	if trainConfig != "" {
		loaded, err := config.Load(trainConfig)
		if err != nil {
			return err
		}
		run = loaded
	}
	if cmd.Flags().Changed("task") {
		run.Task = trainTask
	}
	if cmd.Flags().Changed("method") {
		run.Method = trainMethod
	}
	if cmd.Flags().Changed("integrator") {
		run.Integrator = trainIntegrator
	}
	if cmd.Flags().Changed("seed") {
		run.Seed = trainSeed
	}
	if cmd.Flags().Changed("epochs") {
		run.Epochs = trainEpochs
	}
	if cmd.Flags().Changed("batch") {
		run.Batch = trainBatch
	}
	if cmd.Flags().Changed("lr") {
		run.LR = trainLR
	}
	if cmd.Flags().Changed("dt") {
		run.Dt = trainDt
	}
	if cmd.Flags().Changed("horizon") {
		run.Horizon = trainHorizon
	}
	if cmd.Flags().Changed("episodes") {
		run.EvalEpisodes = trainEpisodes
	}
	if err := run.Validate(); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if trainLive {
		return trainLiveMonitor(ctx, run, st)
	}

	e := experiment.New(run, st, newLogger())

	fmt.Printf("training %s on %s...\n", run.Method, run.Task)
	sum, err := e.Run(ctx)
	if err != nil {
		return err
	}

	if len(sum.Curve) > 1 {
		fmt.Println(viz.Curve(sum.Curve, "training loss", 80, 12))
	}
	printSummary(sum)
	return nil
}

// trainLiveMonitor runs training in the background and shows progress
// in a bubbletea monitor. Quitting the monitor cancels an unfinished
// run.
func trainLiveMonitor(ctx context.Context, run *config.Run, st *store.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e := experiment.New(run, st, nil)
	events := make(chan viz.Event, 256)
	e.OnProgress(func(step int, value float64) {
		select {
		case events <- viz.Event{Step: step, Value: value}:
		default:
		}
	})

	var sum *experiment.Summary
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		sum, runErr = e.Run(ctx)
	}()

	title := strings.ToUpper(run.Task + " " + run.Method)
	p := tea.NewProgram(viz.NewMonitor(title, events))
	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return err
	}

	cancel()
	<-done
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, dynamics.ErrContextCanceled) {
			fmt.Println("training canceled")
			return nil
		}
		return runErr
	}
	printSummary(sum)
	return nil
}

func benchSuite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	suite := config.DefaultSuite()
	if len(args) > 0 {
		loaded, err := config.LoadSuite(args[0])
		if err != nil {
			return err
		}
		suite = loaded
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	bench := &experiment.Benchmark{
		Suite:   suite,
		Store:   st,
		Backend: compute.Auto(),
		Log:     newLogger(),
	}

	start := time.Now()
	cells, _, err := bench.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nsuite %s finished in %v\n\n", suite.Name, time.Since(start).Round(time.Millisecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, experiment.Header())
	for _, c := range cells {
		fmt.Fprintln(w, c.Row())
	}
	return w.Flush()
}

func evalRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	run, err := loadRunConfig(rec)
	if err != nil {
		return err
	}
	tk, err := experiment.TaskFor(run)
	if err != nil {
		return err
	}
	integ, err := integrators.New(run.Integrator)
	if err != nil {
		return err
	}
	ctrl, err := restoreController(ctx, st, rec, run, tk)
	if err != nil {
		return err
	}

	seed := evalSeed
	if !cmd.Flags().Changed("seed") {
		seed = rec.Seed + 1
	}

	fmt.Printf("evaluating %s (%s/%s) over %d episodes...\n",
		shortID(rec.ID), rec.Task, rec.Method, evalEpisodes)
	mean, std, diverged := analysis.Evaluate(tk, integ, ctrl, evalEpisodes, seed)
	fmt.Printf("cost: %.4f (std %.4f)\n", mean, std)
	if diverged > 0 {
		fmt.Printf("diverged: %d/%d\n", diverged, evalEpisodes)
	}
	if rec.Status == store.StatusDone {
		fmt.Printf("stored final cost: %.4f\n", rec.FinalCost)
	}
	return nil
}

func listCatalog(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTATES\tACTIONS\tDT\tHORIZON\tLIMIT")
	for _, name := range task.Names() {
		tk, err := task.New(name)
		if err != nil {
			return err
		}
		limit := "-"
		if tk.ControlLimit > 0 {
			limit = fmt.Sprintf("%.1f", tk.ControlLimit)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3f\t%d\t%s\n",
			name, tk.System.StateDim(), tk.System.ControlDim(), tk.Dt, tk.Horizon, limit)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nmethods: %s\n", strings.Join(experiment.MethodNames(), ", "))
	fmt.Printf("integrators: %s\n", strings.Join(integrators.Names(), ", "))
	fmt.Printf("presets: %s\n", strings.Join(config.PresetNames(), ", "))
	return nil
}

func runsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTASK\tMETHOD\tINTEG\tSEED\tSTATUS\tCOST\tSTEPS\tWALL")
	for _, r := range runs {
		cost := "-"
		if r.Status == store.StatusDone {
			cost = fmt.Sprintf("%.4f", r.FinalCost)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Task, r.Method, r.Integrator, r.Seed, r.Status,
			cost, r.Steps, r.WallTime.Round(time.Millisecond))
	}
	return w.Flush()
}

func runsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("id: %s\n", rec.ID)
	fmt.Printf("created: %s\n", rec.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("task: %s\n", rec.Task)
	fmt.Printf("method: %s\n", rec.Method)
	fmt.Printf("integrator: %s\n", rec.Integrator)
	fmt.Printf("seed: %d\n", rec.Seed)
	fmt.Printf("status: %s\n", rec.Status)
	fmt.Printf("final cost: %.4f\n", rec.FinalCost)
	fmt.Printf("steps: %d\n", rec.Steps)
	fmt.Printf("wall time: %v\n", rec.WallTime.Round(time.Millisecond))
	if rec.Notes != "" {
		fmt.Printf("notes: %s\n", rec.Notes)
	}

	if curve, err := st.Curve(ctx, rec.ID, store.CurveTrain); err == nil && len(curve) > 0 {
		stats := analysis.Summarize(curve, 10)
		fmt.Printf("curve: %d points, best %.4f, final %.4f\n", stats.Points, stats.Best, stats.Final)
	}
	if _, err := st.LoadPolicy(ctx, rec.ID); err == nil {
		fmt.Println("policy: stored")
	}
	if traj, err := st.Trajectory(ctx, rec.ID); err == nil {
		fmt.Printf("trajectory: %d states\n", len(traj.States))
	}
	if rec.Config != "" {
		fmt.Println("\nconfig:")
		for _, line := range strings.Split(strings.TrimRight(rec.Config, "\n"), "\n") {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func runsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		curves := map[string][]float64{}
		if curve, err := st.Curve(ctx, rec.ID, store.CurveTrain); err == nil && len(curve) > 0 {
			curves[store.CurveTrain] = curve
		}
		var result *dynamics.Result
		if traj, err := st.Trajectory(ctx, rec.ID); err == nil {
			result = traj
		}
		return store.ExportJSON(os.Stdout, rec, curves, result)
	case "csv":
		traj, err := st.Trajectory(ctx, rec.ID)
		if err != nil {
			return err
		}
		return store.ExportCSV(os.Stdout, traj)
	case "svg":
		traj, err := st.Trajectory(ctx, rec.ID)
		if err != nil {
			return err
		}
		return store.ExportSVG(os.Stdout, traj, 800, 400)
	default:
		return fmt.Errorf("unknown format: %s (json, csv, svg)", exportFormat)
	}
}

func runsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	if err := st.DeleteRun(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", shortID(rec.ID))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}

	if plotTraj {
		traj, err := st.Trajectory(ctx, rec.ID)
		if err != nil {
			return err
		}
		dim := 0
		if len(traj.States) > 0 {
			dim = len(traj.States[0])
		}
		if dim > 4 {
			dim = 4
		}
		indices := make([]int, dim)
		for i := range indices {
			indices[i] = i
		}
		fmt.Printf("trajectory %s (%s/%s)\n\n", shortID(rec.ID), rec.Task, rec.Method)
		fmt.Println(viz.Components(traj, indices, 80, 10))
		if len(traj.Controls) > 0 {
			fmt.Println(viz.Actuation(traj, 80, 8))
		}
		return nil
	}

	curve, err := st.Curve(ctx, rec.ID, store.CurveTrain)
	if err != nil {
		return err
	}
	if len(curve) < 2 {
		return fmt.Errorf("run %s has no training curve, try --traj", shortID(rec.ID))
	}
	fmt.Printf("training curve %s (%s/%s)\n\n", shortID(rec.ID), rec.Task, rec.Method)
	fmt.Println(viz.Curve(curve, "training loss", 80, 12))
	stats := analysis.Summarize(curve, 10)
	fmt.Printf("points: %d  best: %.4f  final: %.4f  auc: %.4f\n",
		stats.Points, stats.Best, stats.Final, stats.AUC)
	return nil
}

func compareRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	series := make(map[string][]float64, len(args))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tMETHOD\tSTATUS\tCOST\tSTEPS")
	for _, id := range args {
		rec, err := findRun(ctx, st, id)
		if err != nil {
			return err
		}
		curve, err := st.Curve(ctx, rec.ID, store.CurveTrain)
		if err != nil {
			return err
		}
		series[rec.Task+"/"+rec.Method+" "+shortID(rec.ID)] = curve
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%d\n",
			shortID(rec.ID), rec.Task, rec.Method, rec.Status, rec.FinalCost, rec.Steps)
	}

	fmt.Println(viz.Compare(series, "training loss", 80, 14))
	fmt.Println()
	return w.Flush()
}

func phasePlot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// A task name plots a fresh unforced rollout; anything else is
	// resolved as a stored run id.
	if tk, err := task.New(args[0]); err == nil {
		return phaseFresh(tk)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	traj, err := st.Trajectory(ctx, rec.ID)
	if err != nil {
		return err
	}

	portrait, err := analysis.PortraitFromStates(traj.States, xAxis, yAxis)
	if err != nil {
		return err
	}
	fmt.Printf("phase portrait %s (%s/%s)\n\n", shortID(rec.ID), rec.Task, rec.Method)
	fmt.Println(viz.Portrait(portrait, 70, 22))
	return nil
}

func phaseFresh(tk *task.Task) error {
	integ, err := integrators.New(phaseIntegrator)
	if err != nil {
		return err
	}

	var x0 dynamics.State
	if phaseX0 != "" {
		x0, err = parseState(phaseX0, tk.System.StateDim())
		if err != nil {
			return err
		}
	} else {
		x0 = tk.Init(rand.New(rand.NewSource(phaseSeed)))
	}

	duration := phaseDuration
	if duration <= 0 {
		duration = float64(tk.Horizon) * tk.Dt
	}

	portrait, err := analysis.PhasePortrait(tk.System, integ, nil, x0, xAxis, yAxis, tk.Dt, duration)
	if err != nil {
		return err
	}
	fmt.Printf("phase portrait %s (unforced, %.1fs)\n\n", tk.Name, duration)
	fmt.Println(viz.Portrait(portrait, 70, 22))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	traj, err := st.Trajectory(ctx, rec.ID)
	if err != nil {
		return err
	}
	run, err := loadRunConfig(rec)
	if err != nil {
		return err
	}
	tk, err := experiment.TaskFor(run)
	if err != nil {
		return err
	}

	fmt.Printf("analysis %s (%s/%s)\n\n", shortID(rec.ID), rec.Task, rec.Method)

	drift := metrics.NewEnergyDrift(tk.System)
	for i, x := range traj.States {
		var u dynamics.Control
		if i < len(traj.Controls) {
			u = traj.Controls[i]
		}
		drift.Observe(x, u, traj.Times[i])
	}
	fmt.Printf("energy drift: %.3g\n", drift.Value())

	if len(traj.Controls) > 0 {
		for j := 0; j < len(traj.Controls[0]); j++ {
			sig := channel(traj.Controls, j)
			fmt.Printf("u%d spectral entropy: %.4f  smoothness: %.4f\n",
				j, analysis.SpectralEntropy(sig), analysis.Smoothness(sig))
		}
		ps := analysis.PowerSpectrum(channel(traj.Controls, 0))
		if len(ps) >= 8 {
			fmt.Println()
			fmt.Println(viz.Curve(ps[:len(ps)/4], "power spectrum (u0)", 80, 12))
		}
	}

	ctrl, err := restoreController(ctx, st, rec, run, tk)
	if err != nil {
		fmt.Printf("\nlyapunov: skipped (%v)\n", err)
		return nil
	}
	integ, err := integrators.New(run.Integrator)
	if err != nil {
		return err
	}
	lam := analysis.LyapunovExponent(tk.System, integ,
		analysis.Closed(control.NewBounded(ctrl, tk.ControlLimit)),
		traj.States[0], tk.Dt, float64(tk.Horizon)*tk.Dt, 1e-8)
	fmt.Printf("\nlyapunov exponent: %.4f\n", lam)
	return nil
}

func sweepParam(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	run, err := loadRunConfig(rec)
	if err != nil {
		return err
	}
	tk, err := experiment.TaskFor(run)
	if err != nil {
		return err
	}

	tunable, ok := tk.System.(dynamics.Configurable)
	if !ok {
		return fmt.Errorf("%s system has no tunable parameters", tk.Name)
	}
	params := tunable.GetParams()

	if len(args) == 1 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("tunable parameters for %s:\n", tk.Name)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PARAM\tNOMINAL")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%.4f\n", name, params[name])
		}
		return w.Flush()
	}

	param := args[1]
	nominal, ok := params[param]
	if !ok {
		return fmt.Errorf("unknown param: %s", param)
	}

	lo, hi := sweepMin, sweepMax
	if !cmd.Flags().Changed("min") {
		lo = 0.5 * nominal
	}
	if !cmd.Flags().Changed("max") {
		hi = 1.5 * nominal
	}

	ctrl, err := restoreController(ctx, st, rec, run, tk)
	if err != nil {
		return err
	}
	integ, err := integrators.New(run.Integrator)
	if err != nil {
		return err
	}

	values := linspace(lo, hi, sweepPoints)
	fmt.Printf("sweeping %s from %.4f to %.4f (%d points, %d episodes each)...\n",
		param, lo, hi, sweepPoints, sweepEpisodes)
	points, err := analysis.ParamSweep(ctx, tk, integ, ctrl, param, values, sweepEpisodes, rec.Seed+1)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(param)+"\tCOST\tDIVERGED")
	costs := make([]float64, len(points))
	for i, p := range points {
		costs[i] = p.Cost
		div := "-"
		if p.Diverged {
			div = "yes"
		}
		fmt.Fprintf(w, "%.4f\t%.4f\t%s\n", p.Value, p.Cost, div)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.Curve(costs, "cost vs "+param, 70, 10))
	return nil
}

func tunePID(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tk, err := task.New(args[0])
	if err != nil {
		return err
	}
	integ, err := integrators.New(tuneIntegrator)
	if err != nil {
		return err
	}

	grid := optimize.NewGrid().
		Add("kp", 1, 2, 5, 10, 20, 50).
		Add("ki", 0, 0.1, 1).
		Add("kd", 0, 1, 5, 10)

	fmt.Printf("searching %d gain combinations on %s...\n", grid.Size(), tk.Name)
	start := time.Now()
	best, cost, err := grid.Search(ctx, func(params map[string]float64) (float64, error) {
		ctrl := control.NewPID(params["kp"], params["ki"], params["kd"], 0)
		mean, _, diverged := analysis.Evaluate(tk, integ, ctrl, tuneEpisodes, tuneSeed)
		if diverged == tuneEpisodes {
			return math.NaN(), nil
		}
		return mean, nil
	})
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("every gain combination diverged on %s", tk.Name)
	}

	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("best gains: kp=%g ki=%g kd=%g\n", best["kp"], best["ki"], best["kd"])
	fmt.Printf("cost: %.4f over %d episodes\n", cost, tuneEpisodes)
	fmt.Printf("\nreplay: diffbench run %s --controller pid --kp %g --ki %g --kd %g\n",
		tk.Name, best["kp"], best["ki"], best["kd"])
	return nil
}

func playRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := findRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	traj, err := st.Trajectory(ctx, rec.ID)
	if err != nil {
		return err
	}
	run, err := loadRunConfig(rec)
	if err != nil {
		return err
	}
	tk, err := experiment.TaskFor(run)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewPlay(tk, traj))
	_, err = p.Run()
	return err
}

func openStore() (*store.Store, error) {
	s := config.Settings{DataDir: dataDir, DB: dbPath}
	path := s.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(path)
}

func newLogger() *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(settings.LogLevel); err == nil {
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

// findRun resolves an exact run id or a unique prefix of one.
func findRun(ctx context.Context, st *store.Store, id string) (*store.Run, error) {
	rec, err := st.GetRun(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *store.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous run id %s", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: run %s", store.ErrNotFound, id)
	}
	return match, nil
}

// loadRunConfig rebuilds the run config a record was trained with. The
// record columns are authoritative over the stored yaml.
func loadRunConfig(rec *store.Run) (*config.Run, error) {
	run := config.Default()
	if rec.Config != "" {
		if err := yaml.Unmarshal([]byte(rec.Config), run); err != nil {
			return nil, fmt.Errorf("decode stored config: %w", err)
		}
	}
	run.Task = rec.Task
	run.Method = rec.Method
	run.Integrator = rec.Integrator
	run.Seed = rec.Seed
	return run, nil
}

// restoreController rebuilds the controller a stored run trained.
// Trajectory optimization has no policy to reload, so its recorded
// control sequence is replayed instead.
func restoreController(ctx context.Context, st *store.Store, rec *store.Run, run *config.Run, tk *task.Task) (dynamics.Controller, error) {
	if run.Method == "trajopt" {
		traj, err := st.Trajectory(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if len(traj.Controls) == 0 {
			return nil, fmt.Errorf("run %s stored no controls", shortID(rec.ID))
		}
		return control.NewManual(traj.Controls, tk.Dt), nil
	}

	data, err := st.LoadPolicy(ctx, rec.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return experiment.RestoreController(run, tk, data)
}

func printSummary(sum *experiment.Summary) {
	fmt.Printf("run id: %s\n", sum.RunID)
	fmt.Printf("final cost: %.4f (std %.4f)\n", sum.FinalCost, sum.EvalStd)
	if sum.Diverged > 0 {
		fmt.Printf("diverged episodes: %d\n", sum.Diverged)
	}
	fmt.Printf("control effort: %.4f\n", sum.Effort)
	fmt.Printf("smoothness: %.4f\n", sum.Smoothness)
	fmt.Printf("steps: %d\n", sum.Steps)
	fmt.Printf("wall time: %v\n", sum.WallTime.Round(time.Millisecond))
}

func channel(controls []dynamics.Control, j int) []float64 {
	out := make([]float64, len(controls))
	for i, u := range controls {
		if j < len(u) {
			out[i] = u[j]
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseState(s string, dim int) (dynamics.State, error) {
	parts := strings.Split(s, ",")
	out := make(dynamics.State, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad state component %q", p)
		}
		out = append(out, v)
	}
	if dim > 0 && len(out) != dim {
		return nil, fmt.Errorf("state needs %d components, got %d", dim, len(out))
	}
	return out, nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
