package simulation

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/initial"
	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/spectral"
	"github.com/MariosKokmo/go-qg/internal/timemarch"
)

// scripted returns a fixed sequence of nonlinear terms and records the
// vorticity it was called with.
type scripted struct {
	terms []*spectral.Field
	seen  []*spectral.Field
}

func (s *scripted) Jacobian(q, p, u, v *spectral.Field) *spectral.Field {
	s.seen = append(s.seen, q.Clone())
	return s.terms[len(s.seen)-1]
}

type zeroTerm struct{ d *spectral.Derivatives }

func (z zeroTerm) Jacobian(q, p, u, v *spectral.Field) *spectral.Field { return z.d.NewField() }

type nanTerm struct{ d *spectral.Derivatives }

func (n nanTerm) Jacobian(q, p, u, v *spectral.Field) *spectral.Field {
	f := n.d.NewField()
	f.Data[1] = complex(math.NaN(), 0)
	return f
}

// zeroLinear has L = 0 everywhere.
type zeroLinear struct{ d *spectral.Derivatives }

func (z zeroLinear) Apply(f *spectral.Field) *spectral.Field { return z.d.NewField() }
func (z zeroLinear) Coefficients() *spectral.Field           { return z.d.NewField() }

// recordedForcing returns fixed fields and records evaluation times.
type recordedForcing struct {
	terms []*spectral.Field
	times []float64
}

func (r *recordedForcing) Evaluate(t float64) *spectral.Field {
	r.times = append(r.times, t)
	return r.terms[len(r.times)-1]
}

type fixture struct {
	g  *grid.Grid
	d  *spectral.Derivatives
	tr *spectral.Transform
}

func newFixture(t *testing.T, n int) fixture {
	t.Helper()
	g, err := grid.New(2*math.Pi, 2*math.Pi, n, n)
	if err != nil {
		t.Fatal(err)
	}
	return fixture{g: g, d: spectral.NewDerivatives(g), tr: spectral.NewTransform(n, n)}
}

func (f fixture) components(lin timemarch.Linear, nl NonlinearTerm) Components {
	return Components{Grid: f.g, Derivatives: f.d, Transform: f.tr, Linear: lin, Nonlinear: nl}
}

func (f fixture) modeField(i, j int, v complex128) *spectral.Field {
	q := f.d.NewField()
	q.Set(i, j, v)
	return q
}

func TestTimeParams(t *testing.T) {
	p := TimeParams{Dt: 5e-4, T: 100 * 5e-4, SaveInterval: 50}
	if p.Steps() != 100 || p.Saves() != 3 {
		t.Errorf("steps=%d saves=%d, want 100 and 3", p.Steps(), p.Saves())
	}
	for _, bad := range []TimeParams{
		{Dt: 0, T: 1, SaveInterval: 1},
		{Dt: 0.1, T: -1, SaveInterval: 1},
		{Dt: 0.1, T: 1, SaveInterval: 0},
		{Dt: math.NaN(), T: 1, SaveInterval: 1},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("Validate(%+v) = %v", bad, err)
		}
	}
}

func TestBootstrapThenAB2(t *testing.T) {
	f := newFixture(t, 8)
	dt := 0.25
	n0 := f.modeField(1, 1, 2-1i)
	n1 := f.modeField(1, 1, -3+0.5i)
	nl := &scripted{terms: []*spectral.Field{n0, n1}}
	q0 := f.modeField(1, 1, 1)
	ic := operators.Invert(f.d, q0)

	sim, err := New(f.components(zeroLinear{f.d}, nl), ic, TimeParams{Dt: dt, T: 3 * dt, SaveInterval: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nl.seen) != 2 || sim.Iterations() != 2 {
		t.Fatalf("nonlinear calls = %d, iterations = %d; want 2 and 2", len(nl.seen), sim.Iterations())
	}

	q1 := 1 + complex(dt, 0)*n0.At(1, 1)
	if got := nl.seen[1].At(1, 1); cmplx.Abs(got-q1) > 1e-15 {
		t.Errorf("q after bootstrap = %v, want q0 + dt*N0 = %v", got, q1)
	}
	q2 := q1 + complex(1.5*dt, 0)*n1.At(1, 1) - complex(0.5*dt, 0)*n0.At(1, 1)
	if got := sim.State().Q.At(1, 1); cmplx.Abs(got-q2) > 1e-15 {
		t.Errorf("q after AB2 = %v, want %v", got, q2)
	}
}

func TestForcingBootstrapThenAB2(t *testing.T) {
	f := newFixture(t, 8)
	dt := 0.5
	f0 := f.modeField(2, 0, 1)
	f1 := f.modeField(2, 0, 4)
	forcing := &recordedForcing{terms: []*spectral.Field{f0, f1}}
	c := f.components(zeroLinear{f.d}, zeroTerm{f.d})
	c.Forcing = forcing

	sim, err := New(c, operators.Invert(f.d, f.d.NewField()), TimeParams{Dt: dt, T: 3 * dt, SaveInterval: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(forcing.times) != 2 || forcing.times[0] != 0 || forcing.times[1] != dt {
		t.Errorf("forcing evaluated at %v, want [0 %g]", forcing.times, dt)
	}
	want := complex(dt*1+1.5*dt*4-0.5*dt*1, 0)
	if got := sim.State().Q.At(2, 0); cmplx.Abs(got-want) > 1e-15 {
		t.Errorf("q = %v, want %v", got, want)
	}
}

func TestLinearDecayIsGeometric(t *testing.T) {
	f := newFixture(t, 16)
	lin, err := operators.NewLinearOperator(f.d, operators.PDEParams{Nu: 1e-2, Mu: 0.1, Beta: 1.5, Nv: 1})
	if err != nil {
		t.Fatal(err)
	}
	dt := 0.125
	steps := 20
	i, j := 2, 3
	sim, err := New(f.components(lin, zeroTerm{f.d}), operators.Invert(f.d, f.modeField(i, j, 1)),
		TimeParams{Dt: dt, T: float64(steps) * dt, SaveInterval: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	l := lin.Coefficients().At(i, j)
	h := complex(0.5*dt, 0)
	rate := (1 + h*l) / (1 - h*l)
	want := cmplx.Pow(rate, complex(float64(steps-1), 0))
	got := sim.State().Q.At(i, j)
	if cmplx.Abs(got-want) > 1e-12*cmplx.Abs(want) {
		t.Errorf("mode after %d steps = %v, want %v", steps-1, got, want)
	}
	for k, v := range sim.State().Q.Data {
		if k != i*f.d.Dk+j && v != 0 {
			t.Fatalf("mode %d became %v", k, v)
		}
	}
}

func TestZeroModeInvariant(t *testing.T) {
	f := newFixture(t, 16)
	lin, err := operators.NewLinearOperator(f.d, operators.PDEParams{Nu: 1e-3, Nv: 1})
	if err != nil {
		t.Fatal(err)
	}
	ic, err := initial.Generate(initial.Params{Option: initial.BandedRandom, Energy: 0.05, Wavenumbers: [2]float64{2, 4}, Seed: 3}, f.g, f.d, f.tr)
	if err != nil {
		t.Fatal(err)
	}
	ic.U.Data[0] = 0.3
	ic.V.Data[0] = -0.2

	c := f.components(lin, operators.NewNonlinearOperator(f.d, f.tr))
	sim, err := New(c, ic, TimeParams{Dt: 1e-3, T: 12e-3, SaveInterval: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := sim.State()
	if st.U.Data[0] != 0.3 || st.V.Data[0] != -0.2 {
		t.Errorf("zero modes drifted: u0=%v v0=%v", st.U.Data[0], st.V.Data[0])
	}
	if f.d.Irsq[0] != 0 {
		t.Errorf("irsq[0,0] = %g", f.d.Irsq[0])
	}
	for _, snap := range sim.Snapshots() {
		if !snap.Saved {
			continue
		}
		if m := mean(snap.U); math.Abs(m-0.3) > 1e-12 {
			t.Errorf("snapshot %d: mean u = %g, want 0.3", snap.Index, m)
		}
		if m := mean(snap.V); math.Abs(m+0.2) > 1e-12 {
			t.Errorf("snapshot %d: mean v = %g, want -0.2", snap.Index, m)
		}
	}
}

func mean(m *mat.Dense) float64 {
	r, c := m.Dims()
	return mat.Sum(m) / float64(r*c)
}

// Scenario: 64x64, dt=5e-4, T=100 dt, save every 50, nu=1e-3, no forcing,
// E0=0.01 on [3,5], seed 42.
func TestDecayingRun(t *testing.T) {
	f := newFixture(t, 64)
	lin, err := operators.NewLinearOperator(f.d, operators.PDEParams{Nu: 1e-3, Mu: 0, Beta: 0, Nv: 1})
	if err != nil {
		t.Fatal(err)
	}
	ic, err := initial.Generate(initial.Params{Option: initial.BandedRandom, Energy: 0.01, Wavenumbers: [2]float64{3, 5}, Seed: 42}, f.g, f.d, f.tr)
	if err != nil {
		t.Fatal(err)
	}
	dt := 5e-4
	updates := make(chan Progress, 8)
	sim, err := New(f.components(lin, operators.NewNonlinearOperator(f.d, f.tr)), ic,
		TimeParams{Dt: dt, T: 100 * dt, SaveInterval: 50}, updates)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	snaps := sim.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("len(snapshots) = %d, want 3", len(snaps))
	}
	for k, want := range []float64{0, 50 * dt, 100 * dt} {
		if math.Abs(snaps[k].Time-want) > 1e-15 {
			t.Errorf("snapshot %d time = %g, want %g", k, snaps[k].Time, want)
		}
		if r, c := snaps[k].Q.Dims(); r != 64 || c != 64 {
			t.Errorf("snapshot %d is %dx%d", k, r, c)
		}
	}
	// The loop runs steps-1 = 99 iterations, so the t=100dt slot stays empty.
	if !snaps[0].Saved || !snaps[1].Saved || snaps[2].Saved {
		t.Errorf("saved flags = %v %v %v", snaps[0].Saved, snaps[1].Saved, snaps[2].Saved)
	}

	energy := func(s Snapshot) float64 { return initial.KineticEnergy(f.d, f.tr.Forward(s.Q)) }
	e0, e1, e2 := energy(snaps[0]), energy(snaps[1]), energy(snaps[2])
	if math.Abs(e0-0.01) > 1e-6 {
		t.Errorf("E(t=0) = %g, want 0.01", e0)
	}
	if !(e1 <= e0) || !(e2 <= e1) {
		t.Errorf("energy increased: %g, %g, %g", e0, e1, e2)
	}
	if e1 < 0.9*e0 {
		t.Errorf("energy dropped too fast: %g -> %g", e0, e1)
	}

	close(updates)
	var got []Progress
	for p := range updates {
		got = append(got, p)
	}
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 || got[1].Step != 50 {
		t.Errorf("progress messages = %+v", got)
	}
}

func TestCancelledRun(t *testing.T) {
	f := newFixture(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim, err := New(f.components(zeroLinear{f.d}, zeroTerm{f.d}), operators.Invert(f.d, f.d.NewField()),
		TimeParams{Dt: 0.1, T: 1, SaveInterval: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if sim.Iterations() != 0 {
		t.Errorf("iterations = %d", sim.Iterations())
	}
}

func TestNonFinite(t *testing.T) {
	f := newFixture(t, 8)
	ic := operators.Invert(f.d, f.d.NewField())
	params := TimeParams{Dt: 0.25, T: 2, SaveInterval: 2}

	// Unguarded runs complete and carry the corruption into the buffer.
	sim, err := New(f.components(zeroLinear{f.d}, nanTerm{f.d}), ic, params, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("unguarded run failed: %v", err)
	}
	if !math.IsNaN(sim.Snapshots()[1].Q.At(0, 0)) {
		t.Error("expected NaN in the saved vorticity")
	}

	params.CheckFinite = true
	sim, err = New(f.components(zeroLinear{f.d}, nanTerm{f.d}), ic, params, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = sim.Run(context.Background())
	var se *StepError
	if !errors.As(err, &se) || !errors.Is(err, ErrNonFinite) || se.Step != 2 {
		t.Errorf("guarded run error = %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	f := newFixture(t, 8)
	ic := operators.Invert(f.d, f.d.NewField())
	if _, err := New(Components{}, ic, TimeParams{Dt: 1, T: 1, SaveInterval: 1}, nil); err == nil {
		t.Error("missing components accepted")
	}
	if _, err := New(f.components(zeroLinear{f.d}, zeroTerm{f.d}), ic, TimeParams{}, nil); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("invalid time error = %v", err)
	}
	other := newFixture(t, 16)
	if _, err := New(f.components(zeroLinear{f.d}, zeroTerm{f.d}), operators.Invert(other.d, other.d.NewField()),
		TimeParams{Dt: 1, T: 1, SaveInterval: 1}, nil); err == nil {
		t.Error("mismatched initial condition accepted")
	}
}
