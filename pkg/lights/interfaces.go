package lights

import "github.com/df07/go-vertex-transfer/pkg/core"

type LightType string

const (
	LightTypeInfinite LightType = "infinite"
)

// Light interface for environment emitters that can be sampled for direct lighting
type Light interface {
	Type() LightType

	// Sample samples light toward a specific point for direct lighting
	// Returns LightSample with direction FROM shading point TO light
	// normal constrains sampling to the visible hemisphere
	Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample

	// PDF calculates the probability density for sampling a given direction toward the light
	PDF(point core.Vec3, normal core.Vec3, direction core.Vec3) float64

	// Emit evaluates emission in the direction of the given ray
	Emit(ray core.Ray) core.Vec3
}

// LightSample contains information about a sampled direction toward a light
type LightSample struct {
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light (infinite for environment lights)
	Emission  core.Vec3 // Emitted light
	PDF       float64   // Probability density of this sample
}

// PatternLight is an environment light whose emission can be switched to the
// lobes of a single spherical-harmonic basis function. ActivateBasis mutates
// the light and must not be called while anything is reading its emission.
type PatternLight interface {
	Light

	// ActivateBasis makes the light emit max(0, sign·Y_harmonic(ω))
	ActivateBasis(harmonic, sign int) (BasisPattern, error)
}

// BasisPattern identifies the pattern a PatternLight currently emits
type BasisPattern struct {
	Harmonic int
	Sign     int
	Source   string // Map file the pattern was loaded from or written to, empty if none
}

// MapStore is implemented by pattern lights that keep basis maps in a directory
type MapStore interface {
	SetMapsRoot(dir string)
}
