// Package grid holds the physical geometry of the doubly periodic domain.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidGrid is returned when an extent is not positive and finite or a
// resolution is not positive.
var ErrInvalidGrid = errors.New("grid: extents and resolutions must be positive")

// Grid describes a periodic rectangle of Lx by Ly sampled on Nx by Ny points.
// A Grid is immutable once built and is shared read-only by every operator.
type Grid struct {
	Lx, Ly float64 // Domain extents
	Nx, Ny int     // Number of grid points along x and y
	Dx, Dy float64 // Grid spacing

	// Cell coordinates, centred on the origin: [-L/2, L/2) with spacing d.
	x, y []float64
}

// New validates the geometry and precomputes spacing and coordinates.
func New(lx, ly float64, nx, ny int) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: Nx=%d, Ny=%d", ErrInvalidGrid, nx, ny)
	}
	if !(lx > 0) || !(ly > 0) || math.IsInf(lx, 0) || math.IsInf(ly, 0) {
		return nil, fmt.Errorf("%w: Lx=%g, Ly=%g", ErrInvalidGrid, lx, ly)
	}

	g := &Grid{
		Lx: lx, Ly: ly,
		Nx: nx, Ny: ny,
		Dx: lx / float64(nx),
		Dy: ly / float64(ny),
	}
	g.x = axis(nx, lx, g.Dx)
	g.y = axis(ny, ly, g.Dy)
	return g, nil
}

// axis generates n points from -l/2 with spacing d, excluding the right edge.
func axis(n int, l, d float64) []float64 {
	v := make([]float64, n)
	if n == 1 {
		v[0] = -l / 2
		return v
	}
	// floats.Span includes both ends, so stop one cell short of l/2.
	floats.Span(v, -l/2, l/2-d)
	return v
}

// Size returns the total number of grid points.
func (g *Grid) Size() int { return g.Nx * g.Ny }

// X returns a copy of the x coordinates.
func (g *Grid) X() []float64 { return append([]float64(nil), g.x...) }

// Y returns a copy of the y coordinates.
func (g *Grid) Y() []float64 { return append([]float64(nil), g.y...) }

// Area returns Lx*Ly.
func (g *Grid) Area() float64 { return g.Lx * g.Ly }

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(Lx=%g, Ly=%g, Nx=%d, Ny=%d, dx=%.4f, dy=%.4f)",
		g.Lx, g.Ly, g.Nx, g.Ny, g.Dx, g.Dy)
}
