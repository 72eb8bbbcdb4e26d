// Package initial builds band-limited vorticity fields with a prescribed
// kinetic energy.
package initial

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	perlin "github.com/aquilax/go-perlin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

var (
	// ErrInvalidBand is returned unless 0 <= k_lo < k_hi < +Inf.
	ErrInvalidBand = errors.New("initial: invalid wavenumber band")
	// ErrInvalidEnergy is returned for a non-positive or infinite target energy.
	ErrInvalidEnergy = errors.New("initial: target energy must be positive")
	// ErrEmptyBand is returned when no resolved mode falls inside the band.
	ErrEmptyBand = errors.New("initial: no resolved modes inside the wavenumber band")
	// ErrUnknownOption is returned for an unsupported initial-condition option.
	ErrUnknownOption = errors.New("initial: unknown initial-condition option")
)

// Option selects how the raw field is drawn before filtering.
type Option int

const (
	// BandedRandom draws a complex Gaussian spectrum.
	BandedRandom Option = 1
	// PerlinNoise transforms a perlin-noise vorticity map.
	PerlinNoise Option = 2
)

func (o Option) String() string {
	switch o {
	case BandedRandom:
		return "banded-random"
	case PerlinNoise:
		return "perlin"
	default:
		return fmt.Sprintf("Option(%d)", int(o))
	}
}

// Perlin noise shape. The octave count stays an untyped constant.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 3
	perlinScale   = 4.0 // noise periods across the domain
)

// Params configures the initial condition.
type Params struct {
	Option      Option
	Energy      float64    // Target kinetic energy E0
	Wavenumbers [2]float64 // Closed band [k_lo, k_hi] on |k|
	Seed        int64
}

// Validate reports configuration errors before anything is generated.
func (p Params) Validate() error {
	if p.Option != BandedRandom && p.Option != PerlinNoise {
		return fmt.Errorf("%w: %d", ErrUnknownOption, int(p.Option))
	}
	if !(p.Energy > 0) || math.IsInf(p.Energy, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidEnergy, p.Energy)
	}
	lo, hi := p.Wavenumbers[0], p.Wavenumbers[1]
	if !(lo >= 0) || !(lo < hi) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidBand, lo, hi)
	}
	return nil
}

// Generate returns the initial state: vorticity normalized to p.Energy plus
// the streamfunction and velocities derived from it. Identical parameters
// reproduce bit-identical output.
func Generate(p Params, g *grid.Grid, d *spectral.Derivatives, tr *spectral.Transform) (operators.State, error) {
	if err := p.Validate(); err != nil {
		return operators.State{}, err
	}

	var q *spectral.Field
	switch p.Option {
	case BandedRandom:
		q = randomSpectrum(d, p.Seed)
	case PerlinNoise:
		q = tr.Forward(perlinField(g, p.Seed))
	}

	bandPass(d, q, p.Wavenumbers[0], p.Wavenumbers[1])
	hermitian(q, d.Nx)

	ei := KineticEnergy(d, q)
	if ei == 0 {
		return operators.State{}, fmt.Errorf("%w: [%g, %g]", ErrEmptyBand, p.Wavenumbers[0], p.Wavenumbers[1])
	}
	q.Scale(complex(math.Sqrt(p.Energy/ei), 0))

	log.WithFields(log.Fields{
		"option": p.Option,
		"seed":   p.Seed,
		"E_raw":  ei,
		"E0":     p.Energy,
	}).Debug("initial condition normalized")

	return operators.Invert(d, q), nil
}

// randomSpectrum draws a complex standard normal per stored mode: real and
// imaginary parts are independent with variance 1/2 each.
func randomSpectrum(d *spectral.Derivatives, seed int64) *spectral.Field {
	src := rand.NewSource(uint64(seed))
	normal := distuv.Normal{Mu: 0, Sigma: math.Sqrt(0.5), Src: src}
	q := d.NewField()
	for k := range q.Data {
		re := normal.Rand()
		im := normal.Rand()
		q.Data[k] = complex(re, im)
	}
	return q
}

func perlinField(g *grid.Grid, seed int64) *mat.Dense {
	noise := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)
	xs, ys := g.X(), g.Y()
	m := mat.NewDense(g.Ny, g.Nx, nil)
	for i, y := range ys {
		for j, x := range xs {
			m.Set(i, j, noise.Noise2D(perlinScale*(x/g.Lx+0.5), perlinScale*(y/g.Ly+0.5)))
		}
	}
	return m
}

// bandPass zeroes every mode with |k| outside [lo, hi] and the mean mode.
func bandPass(d *spectral.Derivatives, q *spectral.Field, lo, hi float64) {
	for i := 0; i < d.Ny; i++ {
		for j := 0; j < d.Dk; j++ {
			if k := d.K(i, j); k < lo || k > hi {
				q.Set(i, j, 0)
			}
		}
	}
	q.Set(0, 0, 0)
}

// hermitian makes the self-conjugate columns (kr=0 and, for even nx, the
// Nyquist column) conjugate symmetric in ky so q is exactly the spectrum of a
// real field: q[-ky] = conj(q[ky]), with the self-paired rows made real.
func hermitian(q *spectral.Field, nx int) {
	cols := []int{0}
	if nx%2 == 0 && q.Cols > 1 {
		cols = append(cols, q.Cols-1)
	}
	ny := q.Rows
	for _, j := range cols {
		q.Set(0, j, complex(real(q.At(0, j)), 0))
		for i := 1; i < ny-i; i++ {
			q.Set(ny-i, j, cmplx.Conj(q.At(i, j)))
		}
		if ny%2 == 0 {
			q.Set(ny/2, j, complex(real(q.At(ny/2, j)), 0))
		}
	}
}
