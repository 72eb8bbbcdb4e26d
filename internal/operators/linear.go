// Package operators evaluates the right-hand side of the barotropic vorticity
// equation in spectral space.
package operators

import (
	"errors"
	"fmt"
	"math"

	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// ErrInvalidPDE is returned for parameters outside their physical range.
var ErrInvalidPDE = errors.New("operators: invalid PDE parameters")

// PDEParams are the physical coefficients of the vorticity equation.
type PDEParams struct {
	Nu   float64 // Viscosity
	Mu   float64 // Linear bottom drag
	Beta float64 // Planetary vorticity gradient
	Nv   int     // Hyperviscous order, 1 for ordinary viscosity
}

// Validate checks nu > 0, mu >= 0 and nv >= 1.
func (p PDEParams) Validate() error {
	if !(p.Nu > 0) {
		return fmt.Errorf("%w: nu must be positive, got %g", ErrInvalidPDE, p.Nu)
	}
	if !(p.Mu >= 0) {
		return fmt.Errorf("%w: mu must be non-negative, got %g", ErrInvalidPDE, p.Mu)
	}
	if p.Nv < 1 {
		return fmt.Errorf("%w: hyperviscous order must be >= 1, got %d", ErrInvalidPDE, p.Nv)
	}
	if math.IsNaN(p.Beta) || math.IsInf(p.Beta, 0) {
		return fmt.Errorf("%w: beta must be finite, got %g", ErrInvalidPDE, p.Beta)
	}
	return nil
}

// LinearOperator is the per-mode coefficient
//
//	L = -nu*krsq^nv - mu + i*beta*kr*irsq
//
// combining diffusion, bottom drag and the beta term (-beta dpsi/dx with
// omega = del^2 psi). It is computed once and never modified.
type LinearOperator struct {
	params PDEParams
	lc     *spectral.Field
}

// NewLinearOperator precomputes L on the spectral grid of d.
func NewLinearOperator(d *spectral.Derivatives, params PDEParams) (*LinearOperator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	lc := d.NewField()
	for i := 0; i < d.Ny; i++ {
		for j, kr := range d.Kr {
			k := i*d.Dk + j
			diffusion := -params.Nu * math.Pow(d.Krsq[k], float64(params.Nv))
			lc.Data[k] = complex(diffusion-params.Mu, params.Beta*kr*d.Irsq[k])
		}
	}
	return &LinearOperator{params: params, lc: lc}, nil
}

// Coefficients returns L. The returned field must not be modified.
func (l *LinearOperator) Coefficients() *spectral.Field { return l.lc }

// Apply returns L*field as a new field.
func (l *LinearOperator) Apply(field *spectral.Field) *spectral.Field {
	if !field.SameShape(l.lc) {
		panic("operators: field shape does not match the linear operator")
	}
	out := field.Clone()
	for k := range out.Data {
		out.Data[k] *= l.lc.Data[k]
	}
	return out
}

func (l *LinearOperator) String() string {
	return fmt.Sprintf("LinearOperator(nu=%g, mu=%g, beta=%g, nv=%d)",
		l.params.Nu, l.params.Mu, l.params.Beta, l.params.Nv)
}
