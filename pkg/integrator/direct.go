package integrator

import (
	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// DirectTransferIntegrator estimates shadowed diffuse transfer: radiance
// reflected once by a Lambertian surface from the unoccluded environment.
// Each Li call draws one environment sample.
type DirectTransferIntegrator struct {
	estimatorState
}

// NewDirectTransferIntegrator creates a direct transfer integrator
func NewDirectTransferIntegrator() *DirectTransferIntegrator {
	return &DirectTransferIntegrator{}
}

func (d *DirectTransferIntegrator) Preprocess(s *scene.Scene) error {
	d.cancelled.Store(false)
	return s.Preprocess()
}

func (d *DirectTransferIntegrator) ConfigureSampler(s *scene.Scene, sampler core.PixelSampler) {
	d.sampleCount = sampler.SampleCount()
}

func (d *DirectTransferIntegrator) BindResources(binder ResourceBinder) {
	d.bindLogger(binder)
}

func (d *DirectTransferIntegrator) Resume(state map[string]any) error {
	return d.resume(state)
}

func (d *DirectTransferIntegrator) Cancel() {
	d.cancelled.Store(true)
}

func (d *DirectTransferIntegrator) Postprocess(s *scene.Scene) {
	d.log().Printf("Direct transfer: %d radiance evaluations (%d samples per target)\n", d.evaluations.Load(), d.sampleCount)
}

// Li implements Integrator
func (d *DirectTransferIntegrator) Li(ray core.Ray, query *RadianceQuery) core.Vec3 {
	if d.cancelled.Load() {
		return core.Vec3{}
	}
	d.evaluations.Add(1)

	s := query.Scene
	its, hit := intersect(ray, query)
	if !hit {
		if query.Type.Has(QueryEmittedRadiance) && s.Environment != nil {
			return s.Environment.Emit(ray)
		}
		return core.Vec3{}
	}
	if !query.Type.Has(QueryDirectRadiance) || s.Environment == nil {
		return core.Vec3{}
	}

	return sampleEnvironment(s, its, query.Sampler)
}

// E implements Integrator. Only the environment is seen; includeIndirect is ignored.
func (d *DirectTransferIntegrator) E(s *scene.Scene, its Intersection, sampler core.Sampler, nSamples int, includeIndirect bool) core.Vec3 {
	return estimateIrradiance(its, sampler, nSamples, func(direction core.Vec3) core.Vec3 {
		if s.Environment == nil || !visible(s, its.Point, its.Normal, direction) {
			return core.Vec3{}
		}
		return s.Environment.Emit(core.NewRay(its.Point, direction))
	})
}
