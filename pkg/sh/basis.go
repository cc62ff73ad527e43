// Package sh evaluates the real spherical-harmonic basis.
//
// Harmonics are numbered band by band: index h belongs to band
// l = ceil(sqrt(h+1)) - 1 and order m = h - l(l+1), so band l holds the
// indices l² .. (l+1)² - 1 with m running from -l to l. Directions use a z-up
// spherical parameterization: cosθ = d.Z and φ = atan2(d.Y, d.X).
package sh

import (
	"math"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// NumHarmonics returns the number of basis functions in the first bands bands
func NumHarmonics(bands int) int {
	return bands * bands
}

// IndexToLM maps a flat harmonic index to its band and order
func IndexToLM(h int) (l, m int) {
	l = int(math.Ceil(math.Sqrt(float64(h+1)))) - 1
	m = h - l*(l+1)
	return l, m
}

// LMToIndex maps band and order to the flat harmonic index
func LMToIndex(l, m int) int {
	return l*(l+1) + m
}

// Eval returns Y_h(dir) for a unit direction
func Eval(h int, dir core.Vec3) float64 {
	l, m := IndexToLM(h)
	cosTheta := math.Max(-1, math.Min(1, dir.Z))
	phi := math.Atan2(dir.Y, dir.X)
	return EvalLM(l, m, cosTheta, phi)
}

// EvalLM evaluates the real harmonic of band l and order m
func EvalLM(l, m int, cosTheta, phi float64) float64 {
	switch {
	case m == 0:
		return normalization(l, 0) * legendre(l, 0, cosTheta)
	case m > 0:
		return math.Sqrt2 * normalization(l, m) * math.Cos(float64(m)*phi) * legendre(l, m, cosTheta)
	default:
		return math.Sqrt2 * normalization(l, -m) * math.Sin(float64(-m)*phi) * legendre(l, -m, cosTheta)
	}
}

// Lobe returns the positive part of sign·Y_h(dir). The two lobes of a
// harmonic recombine as Y_h = Lobe(+1) - Lobe(-1).
func Lobe(h, sign int, dir core.Vec3) float64 {
	return math.Max(0, float64(sign)*Eval(h, dir))
}

// normalization computes sqrt((2l+1)/(4π) · (l-m)!/(l+m)!)
func normalization(l, m int) float64 {
	ratio := 1.0
	for k := l - m + 1; k <= l+m; k++ {
		ratio /= float64(k)
	}
	return math.Sqrt(float64(2*l+1) / (4 * math.Pi) * ratio)
}

// legendre evaluates the associated Legendre polynomial P_l^m(x) for m >= 0
// by upward recurrence, Condon-Shortley phase included.
func legendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}

	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}

	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (float64(2*ll-1)*x*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pmmp1 = pmmp1, pll
	}
	return pll
}
