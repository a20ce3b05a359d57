package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/integrators"
	"github.com/san-kum/teleop/internal/log"
	"github.com/san-kum/teleop/internal/scenario"
	"github.com/san-kum/teleop/internal/sim"
	"github.com/san-kum/teleop/internal/tui"
)

const defaultScenario = "polish"

var (
	configFile  string
	preset      string
	scenarioRef string
	duration    float64
	integrator  string
	logLevel    string
	logFile     string
	realtime    bool
	outFile     string
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "teleop",
		Short:        "haptic teleoperation with workspace drift",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless session against the virtual device",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSessionFlags(runCmd)
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace the loop to the device sample rate")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a session with the live dashboard",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSessionFlags(liveCmd)
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs here instead of discarding them")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets and builtin scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "presets:")
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "  %-10s %s\n", name, config.Presets[name].Description)
			}
			fmt.Fprintln(w, "scenarios:")
			for _, name := range scenario.Names() {
				s, _ := scenario.Builtin(name)
				fmt.Fprintf(w, "  %-10s %s (%.1fs)\n", name, s.Description, s.Duration())
			}
			fmt.Fprintf(w, "integrators: %s\n", strings.Join(integrators.Names(), ", "))
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if outFile != "" {
				return config.Save(outFile, cfg)
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addSessionFlags(configCmd)
	configCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")

	rootCmd.AddCommand(runCmd, liveCmd, presetsCmd, configCmd)
	return rootCmd
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset configuration")
	cmd.Flags().StringVar(&scenarioRef, "scenario", "", "builtin scenario name or yaml script")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "session length in seconds, 0 runs until interrupted")
	cmd.Flags().StringVar(&integrator, "integrator", "", "tool integrator ("+strings.Join(integrators.Names(), ", ")+")")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

// loadConfig layers defaults, preset, config file and flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Physics.Integrator = integrator
	}
	if flags.Changed("scenario") {
		cfg.Scenario = scenarioRef
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel, cmd.ErrOrStderr())

	var clock sim.Clock = sim.RealClock{}
	if realtime {
		cfg.Loop.Pace = true
	} else {
		// Flat out, with simulated time advancing one sample period per cycle.
		period := time.Duration(float64(time.Second) / cfg.Device.SampleRateHz)
		clock = sim.NewTickingClock(time.Unix(0, 0), period)
	}

	r, err := newRig(cfg, clock)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "running %q on %s (%s)...\n", r.script.Name, cfg.Device.Name, cfg.Physics.Integrator)
	start := time.Now()
	runErr := r.session.Run(ctx)
	wall := time.Since(start)
	r.flush()
	printSummary(w, r, wall)
	return sessionError(runErr)
}

func runLive(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("time") {
		if err := cmd.Flags().Set("time", "0"); err != nil {
			return err
		}
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Loop.Pace = true

	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log.Init(cfg.LogLevel, logOut)

	r, err := newRig(cfg, sim.RealClock{})
	if err != nil {
		return err
	}

	go func() { _ = r.session.Run(cmd.Context()) }()

	m := tui.New(r.session, r.store, tui.Options{
		WorkspaceRadius: cfg.Physics.WorkspaceRadius,
		Tilt:            r.tiltPlot,
		Avatar:          r.avatarPlot,
		Force:           r.forcePlot,
	})
	uiErr := tui.Run(m)
	r.session.Stop()
	runErr := r.session.Wait()
	r.flush()

	printSummary(cmd.OutOrStdout(), r, 0)
	if uiErr != nil {
		return uiErr
	}
	return sessionError(runErr)
}

// sessionError drops the cancellation an interrupt causes.
func sessionError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
