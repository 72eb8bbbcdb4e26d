package spectral

import (
	"fmt"
	"math"

	"github.com/MariosKokmo/go-qg/internal/grid"
)

// Derivatives holds the wavenumber arrays of a grid.
// Conventions: first derivative is +i*k, second derivative is -k^2.
type Derivatives struct {
	Nx, Ny int
	Dk     int // Nx/2+1, columns kept by the real-input transform

	Kr []float64 // len Dk, wavenumber along the halved x axis
	Ky []float64 // len Ny, wavenumber along y in fftfreq order

	// Krsq = Kr^2 + Ky^2 and Irsq = 1/Krsq, both row-major Ny x Dk.
	// Irsq[0] is exactly 0: the mean mode has no inverse.
	Krsq []float64
	Irsq []float64

	dealiasMask []bool // true where the default 2/3 rule zeroes a mode
}

// NewDerivatives computes the wavenumbers of g.
func NewDerivatives(g *grid.Grid) *Derivatives {
	d := &Derivatives{
		Nx: g.Nx,
		Ny: g.Ny,
		Dk: g.Nx/2 + 1,
	}

	// k = 2*pi*freq where freq follows the FFT output ordering:
	// [0, 1, ..., n/2-1, -n/2, ..., -1] / (d*n).
	d.Kr = make([]float64, d.Dk)
	for j := range d.Kr {
		d.Kr[j] = 2 * math.Pi * float64(j) / g.Lx
	}
	d.Ky = make([]float64, d.Ny)
	for i := range d.Ky {
		freq := i
		if i >= (d.Ny+1)/2 {
			freq = i - d.Ny
		}
		d.Ky[i] = 2 * math.Pi * float64(freq) / g.Ly
	}

	d.Krsq = make([]float64, d.Ny*d.Dk)
	d.Irsq = make([]float64, d.Ny*d.Dk)
	for i, ky := range d.Ky {
		for j, kr := range d.Kr {
			k2 := kr*kr + ky*ky
			d.Krsq[i*d.Dk+j] = k2
			d.Irsq[i*d.Dk+j] = 1 / k2
		}
	}
	d.Irsq[0] = 0

	d.dealiasMask = d.mask(DefaultDealiasFraction)
	return d
}

// NewField allocates a zeroed field with this operator's spectral shape.
func (d *Derivatives) NewField() *Field { return NewField(d.Ny, d.Dk) }

// K returns the radial wavenumber |k| of mode (i, j).
func (d *Derivatives) K(i, j int) float64 { return math.Sqrt(d.Krsq[i*d.Dk+j]) }

// MaxK returns the largest radial wavenumber on the spectral grid.
func (d *Derivatives) MaxK() float64 {
	var m float64
	for _, k2 := range d.Krsq {
		m = math.Max(m, k2)
	}
	return math.Sqrt(m)
}

func (d *Derivatives) String() string {
	return fmt.Sprintf("Derivatives(Nx=%d, Ny=%d, dk=%d)", d.Nx, d.Ny, d.Dk)
}
