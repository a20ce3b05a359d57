package main

import (
	"github.com/san-kum/teleop/internal/analysis"
	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/log"
	"github.com/san-kum/teleop/internal/metrics"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/physics"
	"github.com/san-kum/teleop/internal/scenario"
	"github.com/san-kum/teleop/internal/sim"
)

const (
	// plotEvery thins the plotted signals to about 100 Hz at 4 kHz.
	plotEvery = 40
	plotLen   = 600
	// chatterLen is about one second of force at the device rate.
	chatterLen = 4096
	// chatterPublish keeps the long window's copies to about 16 a second.
	chatterPublish = 256
)

// rig is one session and everything watching it.
type rig struct {
	cfg     *config.Config
	script  *scenario.Scenario
	store   *params.Store
	dev     *device.Virtual
	world   *physics.World
	session *sim.Session
	metrics []sim.Metric

	tiltPlot   *analysis.Recorder
	avatarPlot *analysis.Recorder
	forcePlot  *analysis.Recorder
	forceHF    *analysis.Recorder
}

func newRig(cfg *config.Config, clock sim.Clock) (*rig, error) {
	ref := cfg.Scenario
	if ref == "" {
		ref = defaultScenario
	}
	script, err := scenario.Resolve(ref)
	if err != nil {
		return nil, err
	}

	store, err := params.NewStore(cfg.Params)
	if err != nil {
		return nil, err
	}
	world, err := physics.NewWorld(cfg.Physics)
	if err != nil {
		return nil, err
	}

	r := &rig{
		cfg:       cfg,
		script:    script,
		store:     store,
		dev:       device.NewVirtual(cfg.Device, script.DeviceOptions()...),
		world:     world,
		metrics:   metrics.Default(),
		tiltPlot:   analysis.NewRecorder("tilt (deg)", plotLen, plotEvery, analysis.TiltDegrees),
		avatarPlot: analysis.NewRecorder("avatar (deg)", plotLen, plotEvery, analysis.AvatarDegrees),
		forcePlot:  analysis.NewRecorder("force (N)", plotLen, plotEvery, analysis.ForceMagnitude),
		forceHF: analysis.NewRecorder("force", chatterLen, 1, analysis.ForceMagnitude,
			analysis.WithPublishEvery(chatterPublish)),
	}

	r.session, err = sim.New(cfg.Session(), r.dev, world, store,
		sim.WithClock(clock),
		sim.WithMetrics(r.metrics...),
		sim.WithObserver(r.tiltPlot),
		sim.WithObserver(r.avatarPlot),
		sim.WithObserver(r.forcePlot),
		sim.WithObserver(r.forceHF),
		sim.WithLogger(log.With("scenario", script.Name)),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// flush publishes every recorder's tail. Call it once the session is done.
func (r *rig) flush() {
	for _, rec := range []*analysis.Recorder{r.tiltPlot, r.avatarPlot, r.forcePlot, r.forceHF} {
		rec.Flush()
	}
}
