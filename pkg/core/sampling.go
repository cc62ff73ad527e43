package core

import (
	"math"
	"math/rand/v2"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	Get3D() Vec3
}

// PixelSampler is a sampler prototype that drives a fixed number of samples per
// target. Each worker clones its own instance; instances are never shared.
type PixelSampler interface {
	Sampler

	// Clone returns an independent sampler with the same configuration
	Clone(stream uint64) PixelSampler

	// SampleCount returns the number of samples drawn per target
	SampleCount() int

	// Generate starts the sample sequence for the target with the given index
	Generate(index int)

	// Advance moves on to the next sample of the current sequence
	Advance()

	// SampleIndex returns the position within the current sequence
	SampleIndex() int
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomSampler) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// IndependentSampler draws uncorrelated uniform samples. Generate reseeds the
// generator from (seed, target index), so a target's sequence does not depend
// on which worker processes it.
type IndependentSampler struct {
	RandomSampler
	seed        uint64
	sampleCount int
	sampleIndex int
	pcg         *rand.PCG
}

// NewIndependentSampler creates a sampler prototype drawing sampleCount samples per target
func NewIndependentSampler(sampleCount int, seed uint64) *IndependentSampler {
	return newIndependentSampler(sampleCount, seed, 0)
}

func newIndependentSampler(sampleCount int, seed, stream uint64) *IndependentSampler {
	if sampleCount < 1 {
		sampleCount = 1
	}
	pcg := rand.NewPCG(seed, stream)
	return &IndependentSampler{
		RandomSampler: RandomSampler{random: rand.New(pcg)},
		seed:          seed,
		sampleCount:   sampleCount,
		pcg:           pcg,
	}
}

// Clone implements PixelSampler
func (s *IndependentSampler) Clone(stream uint64) PixelSampler {
	return newIndependentSampler(s.sampleCount, s.seed, stream)
}

// SampleCount implements PixelSampler
func (s *IndependentSampler) SampleCount() int {
	return s.sampleCount
}

// Generate implements PixelSampler
func (s *IndependentSampler) Generate(index int) {
	// The high bit keeps per-target streams apart from clone streams
	s.pcg.Seed(s.seed, uint64(index)|1<<63)
	s.sampleIndex = 0
}

// Advance implements PixelSampler
func (s *IndependentSampler) Advance() {
	s.sampleIndex++
}

// SampleIndex implements PixelSampler
func (s *IndependentSampler) SampleIndex() int {
	return s.sampleIndex
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	// Generate point in unit disk using uniform random sampling
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	// Transform to world space
	return NewFrame(normal).ToWorld(NewVec3(x, y, zCoord))
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	x := r * math.Cos(phi)
	y := r * math.Sin(phi)
	return NewVec3(x, y, z)
}
