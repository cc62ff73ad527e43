package material

import (
	"math"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// ColorSource provides spatially-varying colors for materials
type ColorSource interface {
	// Evaluate returns color at given UV coordinates and 3D point
	Evaluate(uv core.Vec2, point core.Vec3) core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of UV or position
func (s *SolidColor) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	return s.Color
}

// UVChecker alternates two colors on a checkerboard in uv space
type UVChecker struct {
	Even, Odd core.Vec3
	Scale     float64 // Number of checks per unit uv
}

// NewUVChecker creates a checkerboard color source
func NewUVChecker(even, odd core.Vec3, scale float64) *UVChecker {
	return &UVChecker{Even: even, Odd: odd, Scale: scale}
}

// Evaluate picks the check that contains uv
func (c *UVChecker) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	u := int(math.Floor(uv.X * c.Scale))
	v := int(math.Floor(uv.Y * c.Scale))
	if (u+v)%2 == 0 {
		return c.Even
	}
	return c.Odd
}
