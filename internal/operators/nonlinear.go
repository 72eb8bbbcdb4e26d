package operators

import (
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// NonlinearOperator evaluates the advective term of the vorticity equation.
// It owns a Transform and is therefore not safe for concurrent use.
type NonlinearOperator struct {
	d  *spectral.Derivatives
	tr *spectral.Transform
}

// NewNonlinearOperator binds the operator to a derivative set and transform.
func NewNonlinearOperator(d *spectral.Derivatives, tr *spectral.Transform) *NonlinearOperator {
	return &NonlinearOperator{d: d, tr: tr}
}

// Jacobian returns -d/dx(u*q) - d/dy(v*q) in spectral space, dealiased with
// the 2/3 rule. All inputs are spectral and are left untouched. The flux
// form only needs q, u and v; p is accepted so callers can pass a State.
func (n *NonlinearOperator) Jacobian(q, p, u, v *spectral.Field) *spectral.Field {
	// Products are formed in physical space.
	qp := n.tr.Inverse(q)
	up := n.tr.Inverse(u)
	vp := n.tr.Inverse(v)
	up.MulElem(up, qp)
	vp.MulElem(vp, qp)

	uqh := n.tr.Forward(up)
	vqh := n.tr.Forward(vp)

	out := n.d.NewField()
	for i, ky := range n.d.Ky {
		for j, kr := range n.d.Kr {
			k := i*n.d.Dk + j
			out.Data[k] = complex(0, -kr)*uqh.Data[k] + complex(0, -ky)*vqh.Data[k]
		}
	}
	return n.d.Dealias(out, spectral.DefaultDealiasFraction)
}
