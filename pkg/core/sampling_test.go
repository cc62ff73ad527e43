package core

import (
	"math"
	"testing"
)

func TestIndependentSampler_GenerateIsDeterministicPerTarget(t *testing.T) {
	prototype := NewIndependentSampler(4, 7)

	a := prototype.Clone(0)
	b := prototype.Clone(5)

	// Different clones must produce the same sequence for the same target
	a.Generate(12)
	b.Generate(12)
	for k := 0; k < a.SampleCount(); k++ {
		va, vb := a.Get2D(), b.Get2D()
		if va != vb {
			t.Fatalf("sample %d differs between clones: %v vs %v", k, va, vb)
		}
		a.Advance()
		b.Advance()
	}

	if a.SampleIndex() != 4 {
		t.Errorf("Expected sample index 4 after four advances, got %d", a.SampleIndex())
	}

	// A different target must give a different sequence
	a.Generate(12)
	first := a.Get1D()
	a.Generate(13)
	if a.Get1D() == first {
		t.Error("Expected different sequences for different targets")
	}
	if a.SampleIndex() != 0 {
		t.Errorf("Generate should reset the sample index, got %d", a.SampleIndex())
	}
}

func TestIndependentSampler_SampleCountFloor(t *testing.T) {
	if got := NewIndependentSampler(0, 1).SampleCount(); got != 1 {
		t.Errorf("Expected sample count clamped to 1, got %d", got)
	}
}

func TestSampleCosineHemisphere(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 1, 0),
		NewVec3(0, 0, -1),
		NewVec3(1, 1, 1).Normalize(),
	}
	sampler := NewIndependentSampler(1, 3)
	sampler.Generate(0)

	for _, normal := range normals {
		for i := 0; i < 200; i++ {
			dir := SampleCosineHemisphere(normal, sampler.Get2D())
			if math.Abs(dir.Length()-1) > 1e-9 {
				t.Fatalf("Direction %v is not unit length", dir)
			}
			if dir.Dot(normal) < -1e-12 {
				t.Fatalf("Direction %v is below the hemisphere of %v", dir, normal)
			}
		}
	}
}

func TestSampleOnUnitSphere(t *testing.T) {
	samples := []Vec2{{0, 0}, {0.5, 0.25}, {0.999, 0.75}}
	for _, s := range samples {
		if d := SampleOnUnitSphere(s); math.Abs(d.Length()-1) > 1e-9 {
			t.Errorf("Sample %v gave non-unit direction %v", s, d)
		}
	}
}
