package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MariosKokmo/go-qg/internal/config"
	"github.com/MariosKokmo/go-qg/internal/forcing"
	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/initial"
	"github.com/MariosKokmo/go-qg/internal/monitor"
	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/plotting"
	"github.com/MariosKokmo/go-qg/internal/simulation"
	"github.com/MariosKokmo/go-qg/internal/spectral"
	"github.com/MariosKokmo/go-qg/internal/store"
)

// configDir holds run files named RunNNNNN.ini, looked up by -run.
const configDir = "Config"

// main is the entry point of the application.
func main() {
	configPath := flag.String("config", "", "run file; defaults to "+configDir+"/RunNNNNN.ini when -run is given")
	runNumber := flag.Int("run", -1, "run number, overrides [run] number")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := start(*configPath, *runNumber); err != nil {
		log.WithError(err).Error("application failed")
		os.Exit(1)
	}
	log.Info("application finished")
}

// start loads the configuration and runs it under a context cancelled by an
// interrupt or the configured timeout. Deferred cleanup completes before
// main decides the exit status.
func start(configPath string, runNumber int) error {
	cfg, path, err := loadConfig(configPath, runNumber)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	log.SetLevel(cfg.Level())
	if path != "" {
		log.WithField("path", path).Info("configuration loaded")
	} else {
		log.Info("no run file, using defaults")
	}
	cfg.Print()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	if err := run(ctx, cfg); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// loadConfig resolves the run file to use: an explicit path, the file of the
// requested run number, or the defaults.
func loadConfig(path string, number int) (config.Config, string, error) {
	if path == "" && number >= 0 {
		path = filepath.Join(configDir, store.Name(number)+".ini")
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, path, err
		}
	}
	if number >= 0 {
		cfg.Run.Number = number
	}
	return cfg, path, nil
}

// run builds the solver, marches it and writes the results. A cancelled run
// still saves the snapshots reached so far before returning the error.
func run(ctx context.Context, cfg config.Config) error {
	start := time.Now()

	log.Info("creating grid and spectral operators...")
	g, err := grid.New(cfg.Grid.Lx, cfg.Grid.Ly, cfg.Grid.Nx, cfg.Grid.Ny)
	if err != nil {
		return err
	}
	d := spectral.NewDerivatives(g)
	tr := spectral.NewTransform(g.Nx, g.Ny)
	lin, err := operators.NewLinearOperator(d, cfg.PDE)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"grid": g, "derivatives": d, "linear": lin}).Info("derivatives and operators ready")

	log.WithField("option", cfg.IC.Option).Info("creating initial condition...")
	ic, err := initial.Generate(cfg.IC, g, d, tr)
	if err != nil {
		return err
	}
	f, err := forcing.Resolve(cfg.Forcing, g, d, tr)
	if err != nil {
		return err
	}
	log.WithField("option", cfg.Forcing.Option).Info("forcing ready")

	var (
		updates chan simulation.Progress
		wg      sync.WaitGroup
		srv     *monitor.Server
	)
	if cfg.Monitor.Addr != "" {
		updates = make(chan simulation.Progress, 100)
		hub := monitor.NewHub()
		srv = monitor.NewServer(cfg.Monitor.Addr, hub)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := srv.Serve(); err != nil {
				log.WithError(err).Error("monitor stopped")
			}
		}()
		go func() {
			defer wg.Done()
			hub.Run(ctx, updates)
		}()
	}

	sim, err := simulation.New(simulation.Components{
		Grid:        g,
		Derivatives: d,
		Transform:   tr,
		Linear:      lin,
		Nonlinear:   operators.NewNonlinearOperator(d, tr),
		Forcing:     f,
	}, ic, cfg.Time, updates)
	if err != nil {
		return err
	}

	log.Info("simulation started")
	runErr := sim.Run(ctx)
	if updates != nil {
		close(updates)
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := srv.Shutdown(shutdown); err != nil {
			log.WithError(err).Warn("monitor shutdown")
		}
		cancel()
		wg.Wait()
	}
	entry := log.WithFields(log.Fields{"iterations": sim.Iterations(), "elapsed": time.Since(start).Round(time.Millisecond)})
	if runErr != nil {
		entry.WithError(runErr).Warn("simulation stopped early")
	} else {
		entry.Info("simulation completed successfully")
	}

	if err := save(cfg, sim, g, d, tr); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// save writes the fields array, the resolved run file and, if enabled, the
// plots of every saved snapshot.
func save(cfg config.Config, sim *simulation.Simulation, g *grid.Grid, d *spectral.Derivatives, tr *spectral.Transform) error {
	r, err := store.NewRun(cfg.Run.Output, cfg.Run.Number)
	if err != nil {
		return err
	}
	if err := r.SaveConfig(cfg.File()); err != nil {
		return err
	}
	if err := r.SaveFields(sim.Snapshots()); err != nil {
		return err
	}
	if !cfg.Run.Plots {
		return nil
	}

	pal, err := plotting.Colormap(cfg.Run.Colormap)
	if err != nil {
		return err
	}
	p := &plotting.Plotter{
		Grid:         g,
		Derivatives:  d,
		Transform:    tr,
		Palette:      pal,
		Run:          cfg.Run.Number,
		SaveInterval: cfg.Time.SaveInterval,
		PlotsDir:     r.Path(store.PlotsDir),
		SpectrumDir:  r.Path(store.SpectrumDir),
	}
	return p.Snapshots(sim.Snapshots())
}
