// Package diagnostics computes isotropic energy and enstrophy spectra of
// saved vorticity fields.
package diagnostics

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// shellHalfWidth is the half-width of each wavenumber shell.
const shellHalfWidth = 0.5

// Spectrum holds shell sums on integer wavenumbers K[n] = n+1.
type Spectrum struct {
	K         []float64
	Energy    []float64 // |uh|^2 + |vh|^2
	Enstrophy []float64 // |qh|^2
	Modes     []int     // Modes falling in each shell
}

// Len returns the number of shells.
func (s Spectrum) Len() int { return len(s.K) }

// TotalEnergy sums the energy spectrum.
func (s Spectrum) TotalEnergy() float64 { return floats.Sum(s.Energy) }

// Shells returns the number of shells resolved by d: the integer part of the
// wavenumber magnitude of the last stored mode, minus two.
func Shells(d *spectral.Derivatives) int {
	n := int(d.K(d.Ny-1, d.Dk-1)) - 2
	if n < 0 {
		return 0
	}
	return n
}

// Compute bins the spectral vorticity qh into shells |K - k| < 1/2 and
// scales each shell sum by k*pi/(m - 1/2), m being the shell's mode count.
// Only the stored half plane is summed.
func Compute(d *spectral.Derivatives, qh *spectral.Field) Spectrum {
	n := Shells(d)
	s := Spectrum{
		K:         make([]float64, n),
		Energy:    make([]float64, n),
		Enstrophy: make([]float64, n),
		Modes:     make([]int, n),
	}
	for ik := range s.K {
		s.K[ik] = float64(ik + 1)
	}
	if n == 0 {
		return s
	}

	st := operators.Invert(d, qh)
	for i := 0; i < d.Ny; i++ {
		for j := 0; j < d.Dk; j++ {
			k := d.K(i, j)
			shell := math.Round(k)
			if math.Abs(k-shell) >= shellHalfWidth || shell < 1 || int(shell) > n {
				continue
			}
			ik := int(shell) - 1
			u, v, q := st.U.At(i, j), st.V.At(i, j), qh.At(i, j)
			s.Energy[ik] += sq(u) + sq(v)
			s.Enstrophy[ik] += sq(q)
			s.Modes[ik]++
		}
	}

	for ik, m := range s.Modes {
		w := s.K[ik] * math.Pi / (float64(m) - shellHalfWidth)
		s.Energy[ik] *= w
		s.Enstrophy[ik] *= w
	}
	return s
}

// FromPhysical transforms a physical vorticity field and computes its
// spectrum.
func FromPhysical(d *spectral.Derivatives, tr *spectral.Transform, q mat.Matrix) Spectrum {
	return Compute(d, tr.Forward(q))
}

func sq(z complex128) float64 {
	a := cmplx.Abs(z)
	return a * a
}
