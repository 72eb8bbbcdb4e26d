package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Field is a spectral representation of one real physical field. Rows run over
// ky (Ny of them, fftfreq order) and columns over kr (Nx/2+1 of them). The
// conjugate-symmetric half of the spectrum is implicit and never stored.
type Field struct {
	Rows, Cols int
	Data       []complex128 // row-major, len Rows*Cols
}

// NewField allocates a zeroed rows x cols spectral field.
func NewField(rows, cols int) *Field {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("spectral: invalid field shape %dx%d", rows, cols))
	}
	return &Field{Rows: rows, Cols: cols, Data: make([]complex128, rows*cols)}
}

// At returns the coefficient at (ky index i, kr index j).
func (f *Field) At(i, j int) complex128 { return f.Data[i*f.Cols+j] }

// Set stores v at (ky index i, kr index j).
func (f *Field) Set(i, j int, v complex128) { f.Data[i*f.Cols+j] = v }

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	c := &Field{Rows: f.Rows, Cols: f.Cols, Data: make([]complex128, len(f.Data))}
	copy(c.Data, f.Data)
	return c
}

// SameShape reports whether f and g have identical dimensions.
func (f *Field) SameShape(g *Field) bool { return f.Rows == g.Rows && f.Cols == g.Cols }

// Scale multiplies every coefficient by s in place and returns f.
func (f *Field) Scale(s complex128) *Field {
	for i := range f.Data {
		f.Data[i] *= s
	}
	return f
}

// Zero clears every coefficient.
func (f *Field) Zero() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// IsFinite reports whether every coefficient is free of NaN and Inf.
func (f *Field) IsFinite() bool {
	for _, v := range f.Data {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest modulus of f-g; shapes must match.
func MaxAbsDiff(f, g *Field) float64 {
	mustMatch(f, g)
	var m float64
	for i := range f.Data {
		m = math.Max(m, cmplx.Abs(f.Data[i]-g.Data[i]))
	}
	return m
}

// Combine returns a*x + b*y as a new field.
func Combine(a complex128, x *Field, b complex128, y *Field) *Field {
	mustMatch(x, y)
	out := &Field{Rows: x.Rows, Cols: x.Cols, Data: make([]complex128, len(x.Data))}
	for i := range out.Data {
		out.Data[i] = a*x.Data[i] + b*y.Data[i]
	}
	return out
}

func mustMatch(f, g *Field) {
	if !f.SameShape(g) {
		panic(fmt.Sprintf("spectral: shape mismatch %dx%d vs %dx%d", f.Rows, f.Cols, g.Rows, g.Cols))
	}
}
