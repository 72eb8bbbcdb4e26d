package initial

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// OneSidedSum adds |f|^2 over the stored half spectrum, counting the kr=0
// column once and every other column twice for its implicit conjugate.
func OneSidedSum(f *spectral.Field) float64 {
	col0 := make([]float64, 0, f.Rows)
	rest := make([]float64, 0, len(f.Data)-f.Rows)
	for i := 0; i < f.Rows; i++ {
		for j := 0; j < f.Cols; j++ {
			a := cmplx.Abs(f.At(i, j))
			if j == 0 {
				col0 = append(col0, a*a)
			} else {
				rest = append(rest, a*a)
			}
		}
	}
	return floats.Sum(col0) + 2*floats.Sum(rest)
}

// KineticEnergy returns the domain-averaged kinetic energy of the vorticity q:
// 0.5*(|kr*irsq*q|^2 + |ky*irsq*q|^2) summed one-sided. The Lx*Ly of the
// integral cancels against the averaging over the domain area.
func KineticEnergy(d *spectral.Derivatives, q *spectral.Field) float64 {
	ux := d.NewField()
	uy := d.NewField()
	for i, ky := range d.Ky {
		for j, kr := range d.Kr {
			k := i*d.Dk + j
			ux.Data[k] = complex(kr*d.Irsq[k], 0) * q.Data[k]
			uy.Data[k] = complex(ky*d.Irsq[k], 0) * q.Data[k]
		}
	}
	return 0.5 * (OneSidedSum(ux) + OneSidedSum(uy))
}

// Enstrophy returns the domain-averaged enstrophy 0.5*<q^2>.
func Enstrophy(q *spectral.Field) float64 {
	return 0.5 * OneSidedSum(q)
}
