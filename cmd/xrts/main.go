package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/xrts/internal/config"
	"github.com/san-kum/xrts/internal/experiment"
	"github.com/san-kum/xrts/internal/potential"
	"github.com/san-kum/xrts/internal/storage"
	"github.com/san-kum/xrts/internal/units"
	"github.com/san-kum/xrts/internal/viz"
)

var (
	dataDir  string
	logLevel string

	configFile string
	saveConfig string
	points     int
	rMax       float64
	mixing     float64
	maxIter    int
	tolerance  float64
	energy     float64
	angle      float64
	noSave     bool

	tiRatios []float64
	workers  int

	series  string
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "xrts",
		Short:         "HNC static structure factors for warm dense matter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			logrus.SetOutput(os.Stderr)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".xrts", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "solve one configuration and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOne,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective configuration to this .yaml or .toml file")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "solve one configuration for several T_e/T_i ratios in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&tiRatios, "ti-ratios", []float64{1, 2, 4}, "T_e/T_i ratios")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel solves (0 = GOMAXPROCS)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "solve with a live convergence view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot g(r) and S(k) of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "", "plot only this series (pair_distribution, structure_factor, residuals)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export one series of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&series, "series", string(storage.StructureFactor), "series to export")
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in configurations",
		RunE:  listPresets,
	}

	potentialsCmd := &cobra.Command{
		Use:   "potentials [preset]",
		Short: "check the short/long split of a configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  diagnosePotentials,
	}
	potentialsCmd.Flags().StringVar(&configFile, "config", "", "config file (.yaml or .toml)")

	rootCmd.AddCommand(runCmd, sweepCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd, potentialsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file (.yaml or .toml); overrides the preset")
	cmd.Flags().IntVar(&points, "points", config.DefaultPoints, "grid points")
	cmd.Flags().Float64Var(&rMax, "r-max", config.DefaultRMax, "grid extent in Å")
	cmd.Flags().Float64Var(&mixing, "mixing", 0.5, "mixing weight of the new iterate")
	cmd.Flags().IntVar(&maxIter, "max-iter", 1000, "iteration cap")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "convergence tolerance")
	cmd.Flags().Float64Var(&energy, "energy", config.DefaultEnergyEV, "probe photon energy in eV")
	cmd.Flags().Float64Var(&angle, "angle", config.DefaultAngleDeg, "scattering angle in degrees")
}

// loadConfig resolves the preset or config file, then applies the flags
// the user actually set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		name := "default"
		if len(args) > 0 {
			name = args[0]
		}
		c, err := experiment.NewRegistry().Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(experiment.NewRegistry().List(), ", "))
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("points") {
		cfg.Grid.Points = points
	}
	if flags.Changed("r-max") {
		cfg.Grid.RMax, cfg.Grid.RMaxWignerSeitz = rMax, 0
	}
	if flags.Changed("mixing") {
		cfg.Solver.Mixing = mixing
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIter
	}
	if flags.Changed("tolerance") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("energy") {
		cfg.Scattering.EnergyEV = energy
	}
	if flags.Changed("angle") {
		cfg.Scattering.AngleDeg = angle
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	return st, st.Init()
}

func runOne(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := experiment.New(cfg).Run(ctx)
	if err != nil {
		return err
	}
	printOutcome(out)

	if err := plotOutcome(out); err != nil {
		logrus.WithError(err).Warn("cannot plot")
	}

	if noSave {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Save(out)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	runs, err := experiment.IonTemperatureSweep(base, tiRatios)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outs, err := experiment.Sweep(ctx, runs, workers, logrus.StandardLogger())
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tT_e/T_i\tITER\tRESIDUAL\tCONVERGED\tS_11(k)")
	for i, out := range outs {
		runID, err := st.Save(out)
		if err != nil {
			return err
		}
		s := "-"
		if out.SAtK != nil {
			s = fmt.Sprintf("%.5f", out.SAtK[0][0])
		}
		fmt.Fprintf(w, "%s\t%g\t%d\t%.2e\t%v\t%s\n",
			runID, tiRatios[i], out.Result.Iterations, out.Result.Residual, out.Result.Converged, s)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	// keep log lines out of the terminal UI
	logrus.SetOutput(os.Stderr)
	if logrus.GetLevel() > logrus.WarnLevel {
		logrus.SetLevel(logrus.WarnLevel)
	}

	feed := viz.NewFeed()
	e := experiment.New(cfg)
	e.AddObserver(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		out, err := e.Run(ctx)
		feed.Finish(out, err)
	}()

	p := tea.NewProgram(viz.NewProgress(cfg.Name, cfg.Solver.MaxIterations, cfg.Solver.Tolerance, feed))
	final, err := p.Run()
	feed.Close()
	if err != nil {
		return err
	}

	out, runErr := final.(viz.Progress).Outcome()
	if runErr != nil || out == nil {
		return runErr
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Save(out)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", runID)
	return nil
}

func printOutcome(out *experiment.Outcome) {
	res := out.Result
	fmt.Printf("run:        %s\n", out.Name())
	fmt.Printf("species:    %s\n", strings.Join(out.SpeciesNames(), ", "))
	fmt.Printf("grid:       %d points, r_max = %.4g Å\n", out.Grid.Len(), out.Grid.RMax()/units.Angstrom)
	fmt.Printf("iterations: %d\n", res.Iterations)
	fmt.Printf("residual:   %.3e\n", res.Residual)
	fmt.Printf("converged:  %v\n", res.Converged)
	fmt.Printf("elapsed:    %s\n", out.Elapsed)
	if out.SAtK == nil {
		return
	}
	fmt.Printf("\nk = %.5g Å⁻¹\n", out.K*units.Angstrom)
	names := out.SpeciesNames()
	for a := range names {
		for b := a; b < len(names); b++ {
			fmt.Printf("  S_%s%s = %.6f\n", names[a], names[b], out.SAtK[a][b])
		}
	}
}

func plotOutcome(out *experiment.Outcome) error {
	n := out.S.N
	r := make([]float64, out.Grid.Len())
	k := make([]float64, out.Grid.Len())
	for i := range r {
		r[i] = out.Grid.R[i] / units.Angstrom
		k[i] = out.Grid.K[i] * units.Angstrom
	}
	var gs, ss [][]float64
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			gs = append(gs, out.Result.G.Slice(a, b))
			ss = append(ss, out.S.Slice(a, b))
		}
	}
	g, err := viz.PlotMany(r, gs, "g(r), r in Å")
	if err != nil {
		return err
	}
	s, err := viz.PlotMany(k, ss, "S(k), k in Å⁻¹")
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n\n%s\n", g, s)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSPECIES\tPOINTS\tITER\tRESIDUAL\tCONVERGED")
	for _, run := range runs {
		names := make([]string, len(run.Species))
		for i, s := range run.Species {
			names[i] = s.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2e\t%v\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strings.Join(names, ","),
			run.Grid.Points,
			run.Iterations,
			run.Residual,
			run.Converged,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	wanted := []storage.Series{storage.PairDistribution, storage.StructureFactor}
	if series != "" {
		s, err := storage.ParseSeries(series)
		if err != nil {
			return err
		}
		wanted = []storage.Series{s}
	}

	fmt.Printf("run: %s (%d iterations, converged %v)\n\n", meta.ID, meta.Iterations, meta.Converged)
	for _, s := range wanted {
		t, err := st.LoadSeries(runID, s)
		if err != nil {
			return err
		}
		if len(t.X) == 0 {
			continue
		}
		graph, err := viz.PlotMany(t.X, t.Columns, fmt.Sprintf("%s: %s", s, strings.Join(t.Header[1:], " ")))
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func output() (*os.File, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	f, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(f, args[0]); err != nil {
		done()
		return err
	}
	return done()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	s, err := storage.ParseSeries(series)
	if err != nil {
		return err
	}
	f, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(f, args[0], s); err != nil {
		done()
		return err
	}
	return done()
}

func listPresets(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tIONS\tT_e [eV]\tPOTENTIALS\tELECTRONS\tPOINTS")
	for _, name := range reg.List() {
		cfg, err := reg.Get(name)
		if err != nil {
			return err
		}
		ions := make([]string, len(cfg.Plasma.Ions))
		for i, ion := range cfg.Plasma.Ions {
			ions[i] = fmt.Sprintf("%s(Z=%g)", ion.Element, ion.Charge)
		}
		p := cfg.Potentials
		fmt.Fprintf(w, "%s\t%s\t%g\t%s/%s/%s + %s\t%s\t%d\n",
			name, strings.Join(ions, ","), cfg.Plasma.ElectronTemperatureEV,
			p.IonIon, p.ElectronIon, p.ElectronElectron, p.LongRange, p.Electrons, cfg.Grid.Points)
	}
	fmt.Fprintf(w, "\npotential kinds: %s\n", strings.Join(reg.ListPotentials(), ", "))
	return w.Flush()
}

func diagnosePotentials(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	st, err := cfg.State()
	if err != nil {
		return err
	}
	g, err := cfg.GridFor(st)
	if err != nil {
		return err
	}
	asm, err := cfg.Potentials.Assembly()
	if err != nil {
		return err
	}
	m, err := asm.Assemble(st, g)
	if err != nil {
		return err
	}
	diags, err := potential.Diagnose(m, g)
	if err != nil {
		return err
	}

	fmt.Printf("alpha = %.4g Å⁻¹, %d points, r_max = %.4g Å\n\n", asm.Alpha*units.Angstrom, g.Len(), g.RMax()/units.Angstrom)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tKIND\t|V_s/V| AT r_max\tV_l(r_0) [eV]\tLONG_K TAIL DEV")
	for _, d := range diags {
		a, b := m.Species[d.A], m.Species[d.B]
		kind := asm.IonIon
		switch {
		case a.IsElectron() && b.IsElectron():
			kind = asm.ElectronElectron
		case a.IsElectron() || b.IsElectron():
			kind = asm.ElectronIon
		}
		fmt.Fprintf(w, "%s-%s\t%s\t%.2e\t%.4g\t%.2e\n",
			a.Name, b.Name, kind, d.ShortAtEdge, d.LongAtOrigin/units.ElectronVolt, d.TailDeviation)
	}
	return w.Flush()
}
