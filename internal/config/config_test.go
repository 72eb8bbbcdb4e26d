package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/ini.v1"

	"github.com/MariosKokmo/go-qg/internal/forcing"
	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/initial"
	"github.com/MariosKokmo/go-qg/internal/plotting"
	"github.com/MariosKokmo/go-qg/internal/simulation"
)

func parse(t *testing.T, src string) (Config, error) {
	t.Helper()
	file, err := ini.Load([]byte(src))
	if err != nil {
		t.Fatalf("ini.Load: %v", err)
	}
	return Parse(file)
}

func TestEmptyFileGivesDefaults(t *testing.T) {
	c, err := parse(t, "")
	if err != nil {
		t.Fatal(err)
	}
	if c != Default() {
		t.Errorf("Parse(\"\") = %+v, want %+v", c, Default())
	}
	if c.Time.Steps() != 200001 {
		t.Errorf("default steps = %d, want 200001", c.Time.Steps())
	}
}

func TestParseOverrides(t *testing.T) {
	c, err := parse(t, `
[run]
number = 7
output = /tmp/qg
log_level = debug
plots = false
colormap = viridis
timeout = 90s

[grid]
Nx = 64
Ny = 32
Lx = 6.0

[time]
dt = 5e-4
T = 0.05
save_int = 50
check_finite = true

[pde]
nu = 1e-3
mu = 0
B = 0
nv = 2

[ic]
option = 2
energy = 0.5
wavenumbers = 2.0, 6.5
seed = 42

[forcing]
option = 0

[monitor]
addr = :9000
`)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Run:     RunParams{Number: 7, Output: "/tmp/qg", LogLevel: "debug", Plots: false, Colormap: "viridis", Timeout: 90 * time.Second},
		Grid:    GridParams{Lx: 6, Ly: Default().Grid.Ly, Nx: 64, Ny: 32},
		Time:    simulation.TimeParams{Dt: 5e-4, T: 0.05, SaveInterval: 50, CheckFinite: true},
		IC:      initial.Params{Option: initial.PerlinNoise, Energy: 0.5, Wavenumbers: [2]float64{2, 6.5}, Seed: 42},
		Monitor: MonitorParams{Addr: ":9000"},
	}
	want.PDE.Nu, want.PDE.Nv = 1e-3, 2
	want.Forcing = Default().Forcing
	want.Forcing.Option = forcing.None
	if c != want {
		t.Errorf("got  %+v\nwant %+v", c, want)
	}
	if c.Level().String() != "debug" {
		t.Errorf("Level = %s", c.Level())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"grid", "[grid]\nNx = 0", grid.ErrInvalidGrid},
		{"dt", "[time]\ndt = -1", simulation.ErrInvalidTime},
		{"save interval", "[time]\nsave_int = 0", simulation.ErrInvalidTime},
		{"band order", "[ic]\nwavenumbers = 5, 3", initial.ErrInvalidBand},
		{"band arity", "[ic]\nwavenumbers = 3", ErrInvalid},
		{"band syntax", "[ic]\nwavenumbers = 3, five", ErrInvalid},
		{"ic option", "[ic]\noption = 3", initial.ErrUnknownOption},
		{"forcing option", "[forcing]\noption = 2", forcing.ErrUnknownOption},
		{"log level", "[run]\nlog_level = loud", ErrInvalid},
		{"colormap", "[run]\ncolormap = jet", plotting.ErrUnknownColormap},
		{"malformed float", "[pde]\nnu = abc", ErrInvalid},
		{"malformed int", "[grid]\nNx = sixty-four", ErrInvalid},
		{"trailing junk", "[time]\ndt = 1e-3x", ErrInvalid},
		{"malformed bool", "[run]\nplots = maybe", ErrInvalid},
		{"malformed duration", "[run]\ntimeout = soon", ErrInvalid},
		{"malformed seed", "[ic]\nseed = 4.5", ErrInvalid},
		{"ic option by name", "[ic]\noption = perlin", initial.ErrUnknownOption},
		{"forcing option by name", "[forcing]\noption = cosine", forcing.ErrUnknownOption},
		{"infinite extent", "[grid]\nLx = +Inf", grid.ErrInvalidGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.src)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("error %v does not wrap %v", err, tt.is)
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	c := Default()
	c.Run.Number = 12
	c.Run.Timeout = 3 * time.Minute
	c.Time.Dt = 1e-3
	c.IC.Wavenumbers = [2]float64{1.5, 4.25}
	c.Forcing.Option = forcing.None
	c.Monitor.Addr = "localhost:8080"

	path := filepath.Join(t.TempDir(), "Run00012.ini")
	if err := c.File().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("round trip changed the config:\n got  %+v\n want %+v", got, c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	if !errors.Is(err, ErrRead) {
		t.Errorf("Load(missing) = %v, want ErrRead", err)
	}
}
