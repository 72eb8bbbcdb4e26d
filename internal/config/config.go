// Package config reads run files in ini format into the parameter bundles of
// the solver.
//
// A run file looks like
//
//	[run]
//	number    = 2721
//	output    = Results
//	log_level = info
//	colormap  = seismic
//
//	[grid]
//	Nx = 512
//	Ny = 512
//
//	[time]
//	dt       = 5e-4
//	T        = 100.0005
//	save_int = 1024
//
//	[pde]
//	mu = 2e-2
//	nu = 1.025e-4
//	B  = 2.5
//	nv = 1
//
//	[ic]
//	option      = 1
//	energy      = 0.01
//	wavenumbers = 3.0, 5.0
//	seed        = 495
//
//	[forcing]
//	option = 1
//	A = -0.1
//	B = 2
//
//	[monitor]
//	addr = :8080
//
// Missing keys take the defaults listed in Default.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/MariosKokmo/go-qg/internal/forcing"
	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/initial"
	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/plotting"
	"github.com/MariosKokmo/go-qg/internal/simulation"
)

var (
	// ErrRead is returned when the run file cannot be opened or parsed.
	ErrRead = errors.New("config: cannot read run file")
	// ErrInvalid wraps every semantic error found in a run file.
	ErrInvalid = errors.New("config: invalid run file")
)

// RunParams controls bookkeeping around a simulation.
type RunParams struct {
	Number   int           // Run number, used in output names
	Output   string        // Results base directory
	LogLevel string        // logrus level name
	Plots    bool          // Write vorticity and spectrum PNGs
	Colormap string        // Vorticity colormap name
	Timeout  time.Duration // Wall-clock limit, 0 for none
}

// GridParams is the physical domain and its resolution.
type GridParams struct {
	Lx, Ly float64
	Nx, Ny int
}

// MonitorParams configures the optional websocket progress stream.
type MonitorParams struct {
	Addr string // Listen address, empty to disable
}

// Config is one fully resolved run description.
type Config struct {
	Run     RunParams
	Grid    GridParams
	Time    simulation.TimeParams
	PDE     operators.PDEParams
	IC      initial.Params
	Forcing forcing.Params
	Monitor MonitorParams
}

// Default returns the reference configuration of run 2721.
func Default() Config {
	dt := 5e-4
	return Config{
		Run:  RunParams{Number: 2721, Output: "Results", LogLevel: "info", Plots: true, Colormap: "seismic"},
		Grid: GridParams{Lx: 2 * math.Pi, Ly: 2 * math.Pi, Nx: 512, Ny: 512},
		Time: simulation.TimeParams{Dt: dt, T: 200001 * dt, SaveInterval: 1024},
		PDE:  operators.PDEParams{Mu: 2e-2, Nu: 1.025e-4, Beta: 2.5, Nv: 1},
		IC: initial.Params{
			Option:      initial.BandedRandom,
			Energy:      0.01,
			Wavenumbers: [2]float64{3, 5},
			Seed:        495,
		},
		Forcing: forcing.Params{Option: forcing.Cosine, A: -0.1, B: 2, C: 0, D: 0.1, E: 2, F: 0},
	}
}

// Load reads and validates the run file at path.
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %v", ErrRead, path, err)
	}
	return Parse(file)
}

// Parse resolves a loaded ini file against Default and validates the result.
// A present key whose value does not parse is an error, never a default.
func Parse(file *ini.File) (Config, error) {
	def := Default()
	var c Config
	r := &reader{file: file}

	c.Run = RunParams{
		Number:   r.integer("run", "number", def.Run.Number),
		Output:   r.str("run", "output", def.Run.Output),
		LogLevel: r.str("run", "log_level", def.Run.LogLevel),
		Plots:    r.boolean("run", "plots", def.Run.Plots),
		Colormap: r.str("run", "colormap", def.Run.Colormap),
		Timeout:  r.duration("run", "timeout", def.Run.Timeout),
	}

	c.Grid = GridParams{
		Lx: r.float("grid", "Lx", def.Grid.Lx),
		Ly: r.float("grid", "Ly", def.Grid.Ly),
		Nx: r.integer("grid", "Nx", def.Grid.Nx),
		Ny: r.integer("grid", "Ny", def.Grid.Ny),
	}

	c.Time = simulation.TimeParams{
		Dt:           r.float("time", "dt", def.Time.Dt),
		T:            r.float("time", "T", def.Time.T),
		SaveInterval: r.integer("time", "save_int", def.Time.SaveInterval),
		CheckFinite:  r.boolean("time", "check_finite", def.Time.CheckFinite),
	}

	c.PDE = operators.PDEParams{
		Mu:   r.float("pde", "mu", def.PDE.Mu),
		Nu:   r.float("pde", "nu", def.PDE.Nu),
		Beta: r.float("pde", "B", def.PDE.Beta),
		Nv:   r.integer("pde", "nv", def.PDE.Nv),
	}

	c.IC = initial.Params{
		Option:      initial.Option(r.option("ic", initial.ErrUnknownOption, int(def.IC.Option))),
		Energy:      r.float("ic", "energy", def.IC.Energy),
		Wavenumbers: def.IC.Wavenumbers,
		Seed:        r.integer64("ic", "seed", def.IC.Seed),
	}
	if ic := file.Section("ic"); ic.HasKey("wavenumbers") {
		band, err := ic.Key("wavenumbers").StrictFloat64s(",")
		if err != nil {
			return Config{}, fmt.Errorf("%w: ic.wavenumbers: %v", ErrInvalid, err)
		}
		if len(band) != 2 {
			return Config{}, fmt.Errorf("%w: ic.wavenumbers needs two values, got %d", ErrInvalid, len(band))
		}
		c.IC.Wavenumbers = [2]float64{band[0], band[1]}
	}

	c.Forcing = forcing.Params{
		Option: forcing.Option(r.option("forcing", forcing.ErrUnknownOption, int(def.Forcing.Option))),
		A:      r.float("forcing", "A", def.Forcing.A),
		B:      r.float("forcing", "B", def.Forcing.B),
		C:      r.float("forcing", "C", def.Forcing.C),
		D:      r.float("forcing", "D", def.Forcing.D),
		E:      r.float("forcing", "E", def.Forcing.E),
		F:      r.float("forcing", "F", def.Forcing.F),
	}

	c.Monitor = MonitorParams{Addr: r.str("monitor", "addr", def.Monitor.Addr)}

	if r.err != nil {
		return Config{}, r.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// reader reads typed keys. Absent keys yield the default; the first value
// that fails to parse is kept in err.
type reader struct {
	file *ini.File
	err  error
}

// key returns the key if present and no earlier read has failed.
func (r *reader) key(section, name string) *ini.Key {
	if r.err != nil {
		return nil
	}
	sec, err := r.file.GetSection(section)
	if err != nil || !sec.HasKey(name) {
		return nil
	}
	return sec.Key(name)
}

func (r *reader) fail(section, name string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %s.%s: %v", ErrInvalid, section, name, err)
	}
}

func (r *reader) str(section, name, def string) string {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	return k.String()
}

func (r *reader) integer(section, name string, def int) int {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Int()
	r.fail(section, name, err)
	return v
}

func (r *reader) integer64(section, name string, def int64) int64 {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Int64()
	r.fail(section, name, err)
	return v
}

func (r *reader) float(section, name string, def float64) float64 {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Float64()
	r.fail(section, name, err)
	return v
}

func (r *reader) boolean(section, name string, def bool) bool {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Bool()
	r.fail(section, name, err)
	return v
}

func (r *reader) duration(section, name string, def time.Duration) time.Duration {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Duration()
	r.fail(section, name, err)
	return v
}

// option reads section.option as an integer identifier. A non-numeric value
// is reported with the owning package's unknown option error.
func (r *reader) option(section string, unknown error, def int) int {
	k := r.key(section, "option")
	if k == nil {
		return def
	}
	v, err := k.Int()
	if err != nil {
		r.err = errors.Join(ErrInvalid, fmt.Errorf("%s.option: %w: %q", section, unknown, k.String()))
	}
	return v
}

// Validate checks every section. Errors wrap both ErrInvalid and the
// sentinel of the package owning the offending parameter.
func (c Config) Validate() error {
	if c.Run.Number < 0 {
		return fmt.Errorf("%w: run.number=%d", ErrInvalid, c.Run.Number)
	}
	if _, err := log.ParseLevel(c.Run.LogLevel); err != nil {
		return fmt.Errorf("%w: run.log_level: %v", ErrInvalid, err)
	}
	if _, err := plotting.Colormap(c.Run.Colormap); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	if c.Run.Timeout < 0 {
		return fmt.Errorf("%w: run.timeout=%s", ErrInvalid, c.Run.Timeout)
	}
	if _, err := grid.New(c.Grid.Lx, c.Grid.Ly, c.Grid.Nx, c.Grid.Ny); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	checks := []error{
		c.Time.Validate(),
		c.PDE.Validate(),
		c.IC.Validate(),
		c.Forcing.Validate(),
	}
	for _, err := range checks {
		if err != nil {
			return errors.Join(ErrInvalid, err)
		}
	}
	return nil
}

// Level returns the configured log level, falling back to Info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.Run.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Print logs every resolved parameter, one line per section.
func (c Config) Print() {
	log.WithFields(log.Fields{
		"number": c.Run.Number, "output": c.Run.Output, "plots": c.Run.Plots, "colormap": c.Run.Colormap, "timeout": c.Run.Timeout,
	}).Info("run")
	log.WithFields(log.Fields{
		"Lx": c.Grid.Lx, "Ly": c.Grid.Ly, "Nx": c.Grid.Nx, "Ny": c.Grid.Ny,
	}).Info("grid")
	log.WithFields(log.Fields{
		"dt": c.Time.Dt, "T": c.Time.T, "save_int": c.Time.SaveInterval,
		"steps": c.Time.Steps(), "check_finite": c.Time.CheckFinite,
	}).Info("time")
	log.WithFields(log.Fields{
		"mu": c.PDE.Mu, "nu": c.PDE.Nu, "B": c.PDE.Beta, "nv": c.PDE.Nv,
	}).Info("pde")
	log.WithFields(log.Fields{
		"option": c.IC.Option, "energy": c.IC.Energy, "wavenumbers": c.IC.Wavenumbers, "seed": c.IC.Seed,
	}).Info("ic")
	log.WithFields(log.Fields{
		"option": c.Forcing.Option,
		"A":      c.Forcing.A, "B": c.Forcing.B, "C": c.Forcing.C,
		"D": c.Forcing.D, "E": c.Forcing.E, "F": c.Forcing.F,
	}).Info("forcing")
	if c.Monitor.Addr != "" {
		log.WithField("addr", c.Monitor.Addr).Info("monitor")
	}
}

// File renders the resolved configuration, defaults included, as an ini
// file that Parse reads back to the same values.
func (c Config) File() *ini.File {
	file := ini.Empty()
	set := func(section, key string, v interface{}) {
		file.Section(section).Key(key).SetValue(fmt.Sprint(v))
	}
	set("run", "number", c.Run.Number)
	set("run", "output", c.Run.Output)
	set("run", "log_level", c.Run.LogLevel)
	set("run", "plots", c.Run.Plots)
	set("run", "colormap", c.Run.Colormap)
	set("run", "timeout", c.Run.Timeout)

	set("grid", "Lx", formatFloat(c.Grid.Lx))
	set("grid", "Ly", formatFloat(c.Grid.Ly))
	set("grid", "Nx", c.Grid.Nx)
	set("grid", "Ny", c.Grid.Ny)

	set("time", "dt", formatFloat(c.Time.Dt))
	set("time", "T", formatFloat(c.Time.T))
	set("time", "save_int", c.Time.SaveInterval)
	set("time", "check_finite", c.Time.CheckFinite)

	set("pde", "mu", formatFloat(c.PDE.Mu))
	set("pde", "nu", formatFloat(c.PDE.Nu))
	set("pde", "B", formatFloat(c.PDE.Beta))
	set("pde", "nv", c.PDE.Nv)

	set("ic", "option", int(c.IC.Option))
	set("ic", "energy", formatFloat(c.IC.Energy))
	set("ic", "wavenumbers", formatFloat(c.IC.Wavenumbers[0])+", "+formatFloat(c.IC.Wavenumbers[1]))
	set("ic", "seed", c.IC.Seed)

	set("forcing", "option", int(c.Forcing.Option))
	for _, kv := range []struct {
		k string
		v float64
	}{{"A", c.Forcing.A}, {"B", c.Forcing.B}, {"C", c.Forcing.C}, {"D", c.Forcing.D}, {"E", c.Forcing.E}, {"F", c.Forcing.F}} {
		set("forcing", kv.k, formatFloat(kv.v))
	}

	set("monitor", "addr", c.Monitor.Addr)
	return file
}

// formatFloat prints the shortest representation that parses back exactly.
func formatFloat(v float64) string { return fmt.Sprintf("%v", v) }
