// Package timemarch provides the stateless pieces of the IMEX scheme: a
// first-order bootstrap, second-order Adams-Bashforth extrapolation for the
// explicit terms and a Crank-Nicolson split for the linear term.
package timemarch

import (
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// Linear is the stiff part of the right-hand side, L*q.
type Linear interface {
	Apply(field *spectral.Field) *spectral.Field
	Coefficients() *spectral.Field
}

// BackwardEuler is the bootstrap contribution term(t0)*dt.
func BackwardEuler(term *spectral.Field, dt float64) *spectral.Field {
	return term.Clone().Scale(complex(dt, 0))
}

// AB2 is the two-step extrapolation 3/2*dt*term1 - 1/2*dt*term2, where term1
// is the current evaluation and term2 the previous one.
func AB2(term1, term2 *spectral.Field, dt float64) *spectral.Field {
	return spectral.Combine(complex(1.5*dt, 0), term1, complex(-0.5*dt, 0), term2)
}

// CN2 splits the linear term trapezoidally. It returns the explicit half
// 0.5*dt*L*q and the implicit coefficient 0.5*dt*L.
func CN2(l Linear, q *spectral.Field, dt float64) (explicit, implicit *spectral.Field) {
	half := complex(0.5*dt, 0)
	explicit = l.Apply(q).Scale(half)
	implicit = l.Coefficients().Clone().Scale(half)
	return explicit, implicit
}

// Solve returns numerator / (1 - implicit), mode by mode.
func Solve(numerator, implicit *spectral.Field) *spectral.Field {
	out := numerator.Clone()
	for k := range out.Data {
		out.Data[k] /= 1 - implicit.Data[k]
	}
	return out
}

// History keeps the current and the previous evaluation of an explicit term.
type History struct {
	slots [2]*spectral.Field
	head  int // index of the current evaluation
	n     int // evaluations seen, saturating at 2
}

// Push records a new current evaluation; the old current becomes previous.
func (h *History) Push(f *spectral.Field) {
	h.head = 1 - h.head
	h.slots[h.head] = f
	if h.n < 2 {
		h.n++
	}
}

// Current returns the latest evaluation, or nil.
func (h *History) Current() *spectral.Field { return h.slots[h.head] }

// Previous returns the evaluation before Current, or nil when fewer than two
// were pushed.
func (h *History) Previous() *spectral.Field {
	if h.n < 2 {
		return nil
	}
	return h.slots[1-h.head]
}

// Contribution returns the explicit increment for the current step:
// BackwardEuler while no previous evaluation exists, AB2 afterwards.
func (h *History) Contribution(dt float64) *spectral.Field {
	if prev := h.Previous(); prev != nil {
		return AB2(h.Current(), prev, dt)
	}
	return BackwardEuler(h.Current(), dt)
}
