package forcing

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/spectral"
)

func setup(t *testing.T, n int) (*grid.Grid, *spectral.Derivatives, *spectral.Transform) {
	t.Helper()
	g, err := grid.New(2*math.Pi, 2*math.Pi, n, n)
	if err != nil {
		t.Fatal(err)
	}
	return g, spectral.NewDerivatives(g), spectral.NewTransform(n, n)
}

func TestResolve(t *testing.T) {
	g, d, tr := setup(t, 8)
	f, err := Resolve(Params{Option: None}, g, d, tr)
	if err != nil || f != nil {
		t.Errorf("Resolve(None) = %v, %v; want nil, nil", f, err)
	}
	f, err = Resolve(Params{Option: Cosine, A: 1}, g, d, tr)
	if err != nil || f == nil {
		t.Errorf("Resolve(Cosine) = %v, %v", f, err)
	}
	if _, err := Resolve(Params{Option: 9}, g, d, tr); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Resolve(9) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, o := range []Option{None, Cosine} {
		if err := (Params{Option: o}).Validate(); err != nil {
			t.Errorf("Validate(%v) = %v", o, err)
		}
	}
	for _, o := range []Option{-1, 2, 9} {
		if err := (Params{Option: o}).Validate(); !errors.Is(err, ErrUnknownOption) {
			t.Errorf("Validate(%v) = %v, want ErrUnknownOption", o, err)
		}
	}
}

func TestCosinePhysical(t *testing.T) {
	g, d, tr := setup(t, 16)
	p := Params{Option: Cosine, A: -0.1, B: 2, C: 0.5, D: 0.1, E: 2, F: 0}
	c := NewCosine(p, g, d, tr)
	w := c.Physical(0.3)
	// Endpoints of the sample axes are 0 and L.
	if got, want := w.At(0, 0), -0.1*math.Cos(0.15)+0.1; math.Abs(got-want) > 1e-15 {
		t.Errorf("w(0,0) = %g, want %g", got, want)
	}
	xl := 2 * math.Pi
	if got, want := w.At(g.Ny-1, g.Nx-1), -0.1*math.Cos(2*xl+0.15)+0.1*math.Cos(2*xl); math.Abs(got-want) > 1e-14 {
		t.Errorf("w(last,last) = %g, want %g", got, want)
	}
}

func TestCosineEvaluateIsDealiased(t *testing.T) {
	g, d, tr := setup(t, 16)
	c := NewCosine(Params{Option: Cosine, A: 1, B: 2, D: 1, E: 3}, g, d, tr)
	wh := c.Evaluate(0)
	kcut := d.Cutoff(spectral.DefaultDealiasFraction)
	for i := 0; i < d.Ny; i++ {
		for j := 0; j < d.Dk; j++ {
			if d.K(i, j) > kcut && wh.At(i, j) != 0 {
				t.Errorf("mode (%d,%d) above cutoff = %v", i, j, wh.At(i, j))
			}
		}
	}

	zero := NewCosine(Params{Option: Cosine}, g, d, tr).Evaluate(1)
	for k, v := range zero.Data {
		if cmplx.Abs(v) != 0 {
			t.Fatalf("zero-amplitude forcing has mode %d = %v", k, v)
		}
	}
}
