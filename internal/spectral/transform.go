// Package spectral converts real fields between physical and spectral space
// and holds the wavenumber arrays used to differentiate them.
package spectral

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Transform is a 2-D real-input FFT with "forward" normalization: Forward
// divides by Nx*Ny and Inverse applies no scaling.
//
// The x axis uses a half-complex real transform (Nx/2+1 outputs) and the y
// axis a full complex transform, applied one dimension at a time.
// A Transform reuses scratch buffers and is not safe for concurrent use.
type Transform struct {
	nx, ny, dk int

	rfft *fourier.FFT // real transform along x
	col  []complex128 // scratch column along y
	work []complex128 // scratch spectrum for Inverse
}

// NewTransform prepares a transform for Ny x Nx physical fields.
func NewTransform(nx, ny int) *Transform {
	if nx <= 0 || ny <= 0 {
		panic(fmt.Sprintf("spectral: invalid transform size %dx%d", ny, nx))
	}
	dk := nx/2 + 1
	return &Transform{
		nx:   nx,
		ny:   ny,
		dk:   dk,
		rfft: fourier.NewFFT(nx),
		col:  make([]complex128, ny),
		work: make([]complex128, ny*dk),
	}
}

// Forward converts an Ny x Nx physical field into its Ny x (Nx/2+1) spectrum.
func (t *Transform) Forward(phys mat.Matrix) *Field {
	r, c := phys.Dims()
	if r != t.ny || c != t.nx {
		panic(fmt.Sprintf("spectral: physical field is %dx%d, want %dx%d", r, c, t.ny, t.nx))
	}
	out := NewField(t.ny, t.dk)

	// 1. Real FFT along x, row by row.
	row := make([]float64, t.nx)
	for i := 0; i < t.ny; i++ {
		mat.Row(row, i, phys)
		t.rfft.Coefficients(out.Data[i*t.dk:(i+1)*t.dk], row)
	}

	// 2. Complex FFT along y, column by column, with the 1/(Nx*Ny) scaling.
	scale := complex(1/float64(t.nx*t.ny), 0)
	for j := 0; j < t.dk; j++ {
		for i := 0; i < t.ny; i++ {
			t.col[i] = out.Data[i*t.dk+j]
		}
		res := fft.FFT(t.col)
		for i := 0; i < t.ny; i++ {
			out.Data[i*t.dk+j] = res[i] * scale
		}
	}
	return out
}

// Inverse converts a spectrum back into an Ny x Nx physical field. The input
// is left untouched.
func (t *Transform) Inverse(f *Field) *mat.Dense {
	if f.Rows != t.ny || f.Cols != t.dk {
		panic(fmt.Sprintf("spectral: spectral field is %dx%d, want %dx%d", f.Rows, f.Cols, t.ny, t.dk))
	}

	// 1. Inverse complex FFT along y. fft.IFFT divides by Ny; undo it so
	// the full inverse carries no normalization.
	ny := complex(float64(t.ny), 0)
	for j := 0; j < t.dk; j++ {
		for i := 0; i < t.ny; i++ {
			t.col[i] = f.Data[i*t.dk+j]
		}
		res := fft.IFFT(t.col)
		for i := 0; i < t.ny; i++ {
			t.work[i*t.dk+j] = res[i] * ny
		}
	}

	// 2. Real inverse along x. The imaginary parts of the kr=0 and Nyquist
	// coefficients are ignored, which is what makes the output real.
	phys := mat.NewDense(t.ny, t.nx, nil)
	raw := phys.RawMatrix()
	for i := 0; i < t.ny; i++ {
		t.rfft.Sequence(raw.Data[i*raw.Stride:i*raw.Stride+t.nx], t.work[i*t.dk:(i+1)*t.dk])
	}
	return phys
}

// Shape returns the physical (rows, cols) handled by t.
func (t *Transform) Shape() (rows, cols int) { return t.ny, t.nx }
