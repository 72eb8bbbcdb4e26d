package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
)

// ErrUnknownColormap is returned by Colormap for unsupported names.
var ErrUnknownColormap = errors.New("plotting: unknown colormap")

// paletteSize is the number of colours a heat map is drawn with.
const paletteSize = 256

// Gradient is a piecewise linear colormap through equally spaced stops.
type Gradient struct {
	stops []color.NRGBA
	n     int
}

var (
	// Seismic runs dark blue, blue, white, red, dark red.
	Seismic = Gradient{n: paletteSize, stops: []color.NRGBA{
		{0, 0, 76, 255},
		{0, 0, 255, 255},
		{255, 255, 255, 255},
		{255, 0, 0, 255},
		{128, 0, 0, 255},
	}}
	// Viridis is a coarse approximation of the viridis map.
	Viridis = Gradient{n: paletteSize, stops: []color.NRGBA{
		{68, 1, 84, 255},
		{69, 56, 135, 255},
		{21, 149, 128, 255},
		{129, 200, 35, 255},
		{255, 223, 4, 255},
	}}
)

// Colormap returns the gradient called name.
func Colormap(name string) (Gradient, error) {
	switch name {
	case "seismic":
		return Seismic, nil
	case "viridis":
		return Viridis, nil
	}
	return Gradient{}, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
}

// At returns the colour at v in [0, 1]; v is clamped.
func (g Gradient) At(v float64) color.NRGBA {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(0, math.Min(1, v))
	segs := len(g.stops) - 1
	pos := v * float64(segs)
	i := int(pos)
	if i >= segs {
		return g.stops[segs]
	}
	f := pos - float64(i)
	a, b := g.stops[i], g.stops[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + f*(float64(y)-float64(x))))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// Colors samples the gradient evenly; Gradient implements palette.Palette.
func (g Gradient) Colors() []color.Color {
	n := g.n
	if n < 2 {
		n = 2
	}
	cs := make([]color.Color, n)
	for i := range cs {
		cs[i] = g.At(float64(i) / float64(n-1))
	}
	return cs
}

var _ palette.Palette = Gradient{}
