// Package plotting renders saved snapshots to PNG: vorticity heat maps and
// log-log energy and enstrophy spectra.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/MariosKokmo/go-qg/internal/diagnostics"
	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/simulation"
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// VorticityRange fixes the colour scale of vorticity plots to [-10, 10].
const VorticityRange = 10.0

// Spectrum axes limits.
const (
	spectrumYMin = 1e-12
	spectrumXMin = 1.0
)

var spectrumYMax = math.Pow(10, -0.5)

// VorticityName is the file name of the vorticity plot of a time step.
func VorticityName(run, step int) string {
	return fmt.Sprintf("vorticity_Run%05d_t_%06d.png", run, step)
}

// SpectrumName is the file name of the spectrum plot of a time step.
func SpectrumName(run, step int) string {
	return fmt.Sprintf("spectrum_Run%05d_t_%06d.png", run, step)
}

// fieldGrid presents a Ny x Nx physical field as cell-centred heat map data
// over [0, Lx] x [0, Ly], row 0 at the bottom.
type fieldGrid struct {
	m      mat.Matrix
	dx, dy float64
}

func (f fieldGrid) Dims() (c, r int) {
	r, c = f.m.Dims()
	return c, r
}

func (f fieldGrid) Z(c, r int) float64 { return f.m.At(r, c) }
func (f fieldGrid) X(c int) float64    { return (float64(c) + 0.5) * f.dx }
func (f fieldGrid) Y(r int) float64    { return (float64(r) + 0.5) * f.dy }

// Vorticity writes a heat map of q to path. Values beyond ±VorticityRange
// take the end colours of pal.
func Vorticity(path string, q mat.Matrix, g *grid.Grid, pal palette.Palette, title string) error {
	r, c := q.Dims()
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	hm := plotter.NewHeatMap(fieldGrid{m: q, dx: g.Lx / float64(c), dy: g.Ly / float64(r)}, pal)
	hm.Min, hm.Max = -VorticityRange, VorticityRange
	cs := pal.Colors()
	hm.Underflow, hm.Overflow = cs[0], cs[len(cs)-1]
	hm.NaN = color.Black
	p.Add(hm)

	p.X.Min, p.X.Max = 0, g.Lx
	p.Y.Min, p.Y.Max = 0, g.Ly
	p.X.Tick.Marker = thirds(g.Lx)
	p.Y.Tick.Marker = thirds(g.Ly)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("plotting: %w", err)
	}
	return nil
}

// thirds puts labelled ticks at 0, L/2 and L.
func thirds(l float64) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 3)
	for i := range ticks {
		v := l * float64(i) / 2
		ticks[i] = plot.Tick{Value: v, Label: fmt.Sprintf("%.2f", v)}
	}
	return ticks
}

// Spectrum writes the energy (left) and enstrophy (right) spectra of s to
// path on log-log axes.
func Spectrum(path string, s diagnostics.Spectrum, title string) error {
	left, err := loglog(s.K, s.Energy, "Energy Spectrum "+title, "Energy Spectrum E(k)")
	if err != nil {
		return err
	}
	right, err := loglog(s.K, s.Enstrophy, "Enstrophy Spectrum "+title, "Enstrophy Spectrum Z(k)")
	if err != nil {
		return err
	}

	img := vgimg.New(12*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: 5 * vg.Millimeter, PadLeft: vg.Millimeter, PadRight: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{{left, right}}, tiles, dc)
	left.Draw(canvases[0][0])
	right.Draw(canvases[0][1])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plotting: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("plotting: %w", err)
	}
	return f.Close()
}

// loglog plots the strictly positive, finite points of (k, y).
func loglog(k, y []float64, title, ylabel string) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(k))
	for i := range k {
		if k[i] > 0 && y[i] > 0 && !math.IsInf(y[i], 0) {
			pts = append(pts, plotter.XY{X: k[i], Y: y[i]})
		}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plotting: %w", err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Wavenumber k"
	p.Y.Label.Text = ylabel
	p.Add(line)

	p.X.Scale, p.Y.Scale = plot.LogScale{}, plot.LogScale{}
	p.X.Tick.Marker, p.Y.Tick.Marker = plot.LogTicks{Prec: -1}, plot.LogTicks{Prec: -1}
	p.X.Min, p.X.Max = spectrumXMin, 2*spectrumXMin
	if len(k) > 0 {
		p.X.Max = math.Max(0.75*floats.Max(k), p.X.Max)
	}
	p.Y.Min, p.Y.Max = spectrumYMin, spectrumYMax
	return p, nil
}

// Plotter renders every saved snapshot of a run.
type Plotter struct {
	Grid        *grid.Grid
	Derivatives *spectral.Derivatives
	Transform   *spectral.Transform
	Palette     palette.Palette

	Run          int
	SaveInterval int
	PlotsDir     string // Vorticity maps
	SpectrumDir  string // Spectra
}

// Snapshots plots each snapshot with Saved set, skipping the rest.
func (p *Plotter) Snapshots(snaps []simulation.Snapshot) error {
	n := 0
	for _, s := range snaps {
		if !s.Saved {
			continue
		}
		title := fmt.Sprintf("at T= %d x%d dt", s.Index, p.SaveInterval)

		path := filepath.Join(p.PlotsDir, VorticityName(p.Run, s.Step))
		if err := Vorticity(path, s.Q, p.Grid, p.Palette, "ω "+title); err != nil {
			return err
		}

		spec := diagnostics.FromPhysical(p.Derivatives, p.Transform, s.Q)
		path = filepath.Join(p.SpectrumDir, SpectrumName(p.Run, s.Step))
		if err := Spectrum(path, spec, title); err != nil {
			return err
		}
		n++
		log.WithFields(log.Fields{"step": s.Step, "energy": spec.TotalEnergy()}).Debug("snapshot plotted")
	}
	log.WithField("snapshots", n).Info("plots written")
	return nil
}
