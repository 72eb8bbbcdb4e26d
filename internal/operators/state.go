package operators

import (
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// State is the spectral quadruple of the flow. Only Q is advanced in time;
// P, U and V are always rederived from it with Invert.
type State struct {
	Q *spectral.Field // vorticity
	P *spectral.Field // streamfunction
	U *spectral.Field // x velocity
	V *spectral.Field // y velocity
}

// Invert solves p = -irsq*q (omega = del^2 psi) and differentiates it:
// u = -dp/dy = -i*ky*p, v = dp/dx = i*kr*p. q itself is shared, not copied.
func Invert(d *spectral.Derivatives, q *spectral.Field) State {
	p := d.NewField()
	u := d.NewField()
	v := d.NewField()
	for i, ky := range d.Ky {
		for j, kr := range d.Kr {
			k := i*d.Dk + j
			p.Data[k] = -q.Data[k] * complex(d.Irsq[k], 0)
			u.Data[k] = complex(0, -ky) * p.Data[k]
			v.Data[k] = complex(0, kr) * p.Data[k]
		}
	}
	return State{Q: q, P: p, U: u, V: v}
}

// Background is the zero-wavenumber velocity, the mean flow held fixed for a
// whole run.
type Background struct {
	U, V complex128
}

// BackgroundOf captures the mean-mode velocity of s.
func BackgroundOf(s State) Background {
	return Background{U: s.U.Data[0], V: s.V.Data[0]}
}

// Restore overwrites the zero modes of s.U and s.V with the background flow.
func (b Background) Restore(s State) {
	s.U.Data[0] = b.U
	s.V.Data[0] = b.V
}
