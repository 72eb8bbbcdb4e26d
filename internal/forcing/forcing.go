// Package forcing evaluates prescribed deterministic forcing fields.
package forcing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

// ErrUnknownOption is returned for an unsupported forcing option.
var ErrUnknownOption = errors.New("forcing: unknown forcing option")

// Option selects the forcing policy.
type Option int

const (
	None   Option = 0
	Cosine Option = 1
)

func (o Option) String() string {
	switch o {
	case None:
		return "none"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("Option(%d)", int(o))
	}
}

// Params holds the coefficients of F = A cos(B x + C t) + D cos(E y + F t).
type Params struct {
	Option           Option
	A, B, C, D, E, F float64
}

// Validate rejects unsupported options.
func (p Params) Validate() error {
	switch p.Option {
	case None, Cosine:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownOption, int(p.Option))
}

// Forcing returns the spectral forcing field at time t.
type Forcing interface {
	Evaluate(t float64) *spectral.Field
}

// Resolve turns the configured option into a forcing evaluator. It returns a
// nil Forcing for None: the caller then skips the forcing term entirely.
func Resolve(p Params, g *grid.Grid, d *spectral.Derivatives, tr *spectral.Transform) (Forcing, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Option == None {
		return nil, nil
	}
	return NewCosine(p, g, d, tr), nil
}

// CosineForcing evaluates A cos(B x + C t) + D cos(E y + F t) on the grid,
// transforms it and applies the 2/3 rule.
type CosineForcing struct {
	p    Params
	d    *spectral.Derivatives
	tr   *spectral.Transform
	x, y []float64
}

// NewCosine binds the cosine forcing to a grid.
func NewCosine(p Params, g *grid.Grid, d *spectral.Derivatives, tr *spectral.Transform) *CosineForcing {
	// Sample points run from 0 to L inclusive.
	x := make([]float64, g.Nx)
	y := make([]float64, g.Ny)
	span(x, g.Lx)
	span(y, g.Ly)
	return &CosineForcing{p: p, d: d, tr: tr, x: x, y: y}
}

func span(v []float64, l float64) {
	if len(v) == 1 {
		v[0] = 0
		return
	}
	floats.Span(v, 0, l)
}

// Physical returns the forcing on the grid at time t.
func (c *CosineForcing) Physical(t float64) *mat.Dense {
	p := c.p
	w := mat.NewDense(len(c.y), len(c.x), nil)
	for i, y := range c.y {
		fy := p.D * math.Cos(p.E*y+p.F*t)
		for j, x := range c.x {
			w.Set(i, j, p.A*math.Cos(p.B*x+p.C*t)+fy)
		}
	}
	return w
}

// Evaluate implements Forcing.
func (c *CosineForcing) Evaluate(t float64) *spectral.Field {
	wh := c.tr.Forward(c.Physical(t))
	return c.d.Dealias(wh, spectral.DefaultDealiasFraction)
}
