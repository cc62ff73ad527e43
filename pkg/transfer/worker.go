package transfer

import (
	"context"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/integrator"
	"github.com/df07/go-vertex-transfer/pkg/lights"
	"github.com/df07/go-vertex-transfer/pkg/material"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// GenerationConfig is the read-only state of one worker generation: the basis
// lobe the environment emits while the generation runs
type GenerationConfig struct {
	HarmonicIndex int
	Sign          int
	Pattern       lights.BasisPattern
}

// signsFor returns the lobe signs swept for a harmonic. The zeroth band has no negative lobe.
func signsFor(harmonic int) []int {
	if harmonic == 0 {
		return []int{1}
	}
	return []int{-1, 1}
}

// sampleWorker estimates one generation's contribution for one partition
type sampleWorker struct {
	partition  Partition
	generation GenerationConfig
	targets    []Target
	buffer     *ResultBuffer
	delegate   integrator.Integrator
	scene      *scene.Scene
	sampler    core.PixelSampler // Owned by this worker
}

// workerStats reports what a worker could not average
type workerStats struct {
	zeroSampleTargets int
	invalidSamples    int
}

// run processes the partition. It stops between targets when ctx is done.
func (w *sampleWorker) run(ctx context.Context) (workerStats, error) {
	var stats workerStats
	sampleCount := w.sampler.SampleCount()
	sign := float64(w.generation.Sign)

	for t := w.partition.Begin; t < w.partition.End; t++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		target := &w.targets[t]
		ray := core.NewRay(target.Point.Add(target.Normal), target.Normal.Negate())
		query := &integrator.RadianceQuery{
			Scene:        w.scene,
			Sampler:      w.sampler,
			Type:         integrator.QueryRadiance &^ integrator.QueryIntersection,
			Intersection: pinnedIntersection(target),
		}

		// Sequences depend only on the target index, never on the partitioning
		w.sampler.Generate(t)

		sum := core.Vec3{}
		valid := 0
		for s := 0; s < sampleCount; s++ {
			value := w.delegate.Li(ray, query)
			if value.IsValid() {
				sum = sum.Add(value)
				valid++
			} else {
				stats.invalidSamples++
			}
			w.sampler.Advance()
		}

		// A target without a single valid sample contributes zero
		if valid == 0 {
			stats.zeroSampleTargets++
			continue
		}
		w.buffer.Add(t, w.generation.HarmonicIndex, sum.Multiply(sign/float64(valid)))
	}
	return stats, nil
}

// pinnedIntersection places the query directly on the target
func pinnedIntersection(target *Target) integrator.Intersection {
	its := integrator.Intersection{
		Point:  target.Point,
		Normal: target.Normal,
		UV:     target.UV,
		Frame:  core.NewFrame(target.Normal),
		Wi:     target.Normal,
	}
	if shape, ok := target.Shape.(geometry.Shape); ok {
		its.Shape = shape
	}
	if owner, ok := target.Shape.(interface{ Material() material.Material }); ok {
		its.Material = owner.Material()
	}
	return its
}
