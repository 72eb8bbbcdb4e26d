package spectral

import "math"

// DefaultDealiasFraction is the standard 2/3 rule: the top third of the
// resolved wavenumbers is truncated.
const DefaultDealiasFraction = 1.0 / 3.0

// Cutoff returns the radial wavenumber above which modes are removed:
// sqrt(2) * (1 - fraction) * min(max|kr|, max|ky|).
func (d *Derivatives) Cutoff(fraction float64) float64 {
	return math.Sqrt2 * (1 - fraction) * math.Min(maxAbs(d.Kr), maxAbs(d.Ky))
}

func (d *Derivatives) mask(fraction float64) []bool {
	kcut := d.Cutoff(fraction)
	m := make([]bool, len(d.Krsq))
	for i, k2 := range d.Krsq {
		m[i] = math.Sqrt(k2) > kcut
	}
	return m
}

// Dealias zeroes, in place, every coefficient of f whose radial wavenumber
// exceeds the cutoff for fraction, and returns f. Callers must use the
// returned field; the pre-truncation values are gone.
func (d *Derivatives) Dealias(f *Field, fraction float64) *Field {
	m := d.dealiasMask
	if fraction != DefaultDealiasFraction {
		m = d.mask(fraction)
	}
	for i, drop := range m {
		if drop {
			f.Data[i] = 0
		}
	}
	return f
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
