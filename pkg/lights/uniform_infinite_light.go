package lights

import (
	"math"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// UniformInfiniteLight represents a uniform infinite area light (constant emission in all directions).
// It cannot be reconfigured to basis patterns.
type UniformInfiniteLight struct {
	emission core.Vec3 // Uniform emission color
}

// NewUniformInfiniteLight creates a new uniform infinite light
func NewUniformInfiniteLight(emission core.Vec3) *UniformInfiniteLight {
	return &UniformInfiniteLight{emission: emission}
}

func (uil *UniformInfiniteLight) Type() LightType {
	return LightTypeInfinite
}

// Sample implements the Light interface - samples the infinite light for direct lighting
func (uil *UniformInfiniteLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	return sampleHemisphere(normal, sample, uil.emission)
}

// PDF implements the Light interface - returns probability density for direct lighting sampling
func (uil *UniformInfiniteLight) PDF(point, normal, direction core.Vec3) float64 {
	return cosineHemispherePDF(normal, direction)
}

// Emit implements the Light interface - evaluates emission in ray direction
func (uil *UniformInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return uil.emission
}

// sampleHemisphere draws a cosine-weighted direction over the visible hemisphere.
// Cosine terms cancel in the rendering equation, which makes this the natural
// strategy for environment lights.
func sampleHemisphere(normal core.Vec3, sample core.Vec2, emission core.Vec3) LightSample {
	direction := core.SampleCosineHemisphere(normal, sample)
	return LightSample{
		Direction: direction,
		Distance:  math.Inf(1),
		Emission:  emission,
		PDF:       direction.Dot(normal) / math.Pi,
	}
}

func cosineHemispherePDF(normal, direction core.Vec3) float64 {
	cosTheta := direction.Dot(normal)
	if cosTheta <= 0 {
		return 0.0 // Direction is below hemisphere
	}
	return cosTheta / math.Pi
}
