package lights

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// The latitude-longitude map uses the z-up parameterization of the sh package.
// Texel column u runs over longitude φ = atan2(y, x) from -π to π, row v runs
// over the polar angle θ from the +Z pole (v = 0) to the -Z pole (v = 1).

// DirectionToLatLong converts a unit direction to map coordinates in [0, 1]²
func DirectionToLatLong(dir core.Vec3) (u, v float64) {
	phi := math.Atan2(dir.Y, dir.X)
	theta := math.Acos(math.Max(-1, math.Min(1, dir.Z)))
	return (phi + math.Pi) / (2 * math.Pi), theta / math.Pi
}

// LatLongToDirection converts map coordinates in [0, 1]² to a unit direction
func LatLongToDirection(u, v float64) core.Vec3 {
	phi := u*2*math.Pi - math.Pi
	theta := v * math.Pi
	sinTheta := math.Sin(theta)
	return core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), math.Cos(theta))
}

// LatLongMap is a scalar environment map sampled with bilinear filtering
type LatLongMap struct {
	Width, Height int
	Texels        []float64 // Row-major, Width*Height values
}

// NewLatLongMap allocates a zeroed map
func NewLatLongMap(width, height int) *LatLongMap {
	return &LatLongMap{Width: width, Height: height, Texels: make([]float64, width*height)}
}

// At returns the texel at column x and row y; x wraps around, y clamps
func (m *LatLongMap) At(x, y int) float64 {
	x %= m.Width
	if x < 0 {
		x += m.Width
	}
	y = max(0, min(m.Height-1, y))
	return m.Texels[y*m.Width+x]
}

// Lookup bilinearly interpolates the map in the given direction
func (m *LatLongMap) Lookup(dir core.Vec3) float64 {
	u, v := DirectionToLatLong(dir)
	x := u*float64(m.Width) - 0.5
	y := v*float64(m.Height) - 0.5

	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	top := m.At(ix, iy)*(1-fx) + m.At(ix+1, iy)*fx
	bottom := m.At(ix, iy+1)*(1-fx) + m.At(ix+1, iy+1)*fx
	return top*(1-fy) + bottom*fy
}

// NewLatLongMapFromGray16 decodes a 16-bit map whose full range represents [0, scale]
func NewLatLongMapFromGray16(img *image.Gray16, scale float64) *LatLongMap {
	bounds := img.Bounds()
	m := NewLatLongMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := img.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			m.Texels[y*m.Width+x] = float64(g) / math.MaxUint16 * scale
		}
	}
	return m
}

// RenderGray16 rasterizes f over the sphere into a 16-bit image whose full
// range represents [0, scale]. Values outside the range are clamped.
func RenderGray16(width, height int, scale float64, f func(dir core.Vec3) float64) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		v := (float64(y) + 0.5) / float64(height)
		for x := 0; x < width; x++ {
			u := (float64(x) + 0.5) / float64(width)
			value := f(LatLongToDirection(u, v)) / scale
			value = math.Max(0, math.Min(1, value))
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(value * math.MaxUint16))})
		}
	}
	return img
}
