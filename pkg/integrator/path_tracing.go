package integrator

import (
	"math"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// PathTracingIntegrator implements unidirectional path tracing over diffuse
// surfaces. The environment is reached through next event estimation only,
// so escaping bounce rays carry no radiance.
type PathTracingIntegrator struct {
	estimatorState
	config scene.SamplingConfig
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config scene.SamplingConfig) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		config: config,
	}
}

func (pt *PathTracingIntegrator) Preprocess(s *scene.Scene) error {
	pt.cancelled.Store(false)
	if pt.config.MaxDepth <= 0 {
		pt.config.MaxDepth = s.SamplingConfig.MaxDepth
	}
	return s.Preprocess()
}

func (pt *PathTracingIntegrator) ConfigureSampler(s *scene.Scene, sampler core.PixelSampler) {
	pt.sampleCount = sampler.SampleCount()
}

func (pt *PathTracingIntegrator) BindResources(binder ResourceBinder) {
	pt.bindLogger(binder)
}

func (pt *PathTracingIntegrator) Resume(state map[string]any) error {
	return pt.resume(state)
}

func (pt *PathTracingIntegrator) Cancel() {
	pt.cancelled.Store(true)
}

func (pt *PathTracingIntegrator) Postprocess(s *scene.Scene) {
	pt.log().Printf("Path tracing: %d radiance evaluations, max depth %d\n", pt.evaluations.Load(), pt.config.MaxDepth)
}

// Li implements Integrator
func (pt *PathTracingIntegrator) Li(ray core.Ray, query *RadianceQuery) core.Vec3 {
	if pt.cancelled.Load() {
		return core.Vec3{}
	}
	pt.evaluations.Add(1)

	its, hit := intersect(ray, query)
	if !hit {
		if query.Type.Has(QueryEmittedRadiance) && query.Scene.Environment != nil {
			return query.Scene.Environment.Emit(ray)
		}
		return core.Vec3{}
	}

	return pt.radiance(its, query, pt.config.MaxDepth, core.NewVec3(1, 1, 1), query.Type)
}

// radiance computes the radiance leaving a surface point toward the side of its normal
func (pt *PathTracingIntegrator) radiance(its Intersection, query *RadianceQuery, depth int, throughput core.Vec3, types QueryType) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 || pt.cancelled.Load() {
		return core.Vec3{}
	}

	shouldTerminate, rrCompensation := pt.applyRussianRoulette(depth, throughput, query.Sampler)
	if shouldTerminate {
		return core.Vec3{}
	}

	color := core.Vec3{}
	if types.Has(QueryDirectRadiance) {
		color = color.Add(sampleEnvironment(query.Scene, its, query.Sampler))
	}
	if types.Has(QueryIndirectRadiance) {
		color = color.Add(pt.calculateIndirectLighting(its, query, depth, throughput))
	}

	return color.Multiply(rrCompensation)
}

// calculateIndirectLighting follows one bounce sampled from the material and
// weights it by BRDF·cosθ/pdf
func (pt *PathTracingIntegrator) calculateIndirectLighting(its Intersection, query *RadianceQuery, depth int, throughput core.Vec3) core.Vec3 {
	bvh := query.Scene.BVH
	if bvh == nil {
		return core.Vec3{}
	}

	var direction core.Vec3
	pdf := 0.0
	if its.Material != nil {
		scatter, ok := its.Material.Scatter(core.NewRay(its.Point, its.Wi.Negate()), its.interaction(), query.Sampler)
		if !ok || scatter.IsSpecular() {
			return core.Vec3{}
		}
		direction = scatter.Scattered.Direction
		var isDelta bool
		pdf, isDelta = its.Material.PDF(its.Wi, direction, its.Normal)
		if isDelta {
			return core.Vec3{}
		}
	} else {
		direction = core.SampleCosineHemisphere(its.Normal, query.Sampler.Get2D())
		pdf = direction.Dot(its.Normal) / math.Pi
	}
	cosine := direction.Dot(its.Normal)
	if cosine <= 0 || pdf <= 0 {
		return core.Vec3{}
	}
	weight := surfaceBRDF(its, direction).Multiply(cosine / pdf)

	origin := its.Point.Add(its.Normal.Multiply(rayEpsilon))
	bounce := core.NewRay(origin, direction)
	hit, ok := bvh.Hit(bounce, rayEpsilon, rayMax)
	if !ok {
		return core.Vec3{}
	}

	next := Intersection{
		Material: hit.Material,
		Point:    hit.Point,
		Normal:   hit.Normal,
		UV:       hit.UV,
		Frame:    core.NewFrame(hit.Normal),
		Wi:       direction.Negate(),
		T:        hit.T,
	}
	incoming := pt.radiance(next, query, depth-1, throughput.MultiplyVec(weight), QueryDirectRadiance|QueryIndirectRadiance)
	return weight.MultiplyVec(incoming)
}

// applyRussianRoulette determines if a path should be terminated and returns the compensation factor
// Returns (shouldTerminate, compensationFactor)
func (pt *PathTracingIntegrator) applyRussianRoulette(depth int, throughput core.Vec3, sampler core.Sampler) (bool, float64) {
	currentBounce := pt.config.MaxDepth - depth
	if currentBounce < pt.config.RussianRouletteMinBounces {
		return false, 1.0
	}

	// Conservative bounds: survivalProb between 0.5 and 0.95
	// This naturally limits compensation factor to between 1.05x and 2.0x
	survivalProb := math.Min(0.95, math.Max(0.5, throughput.Luminance()))

	if sampler.Get1D() > survivalProb {
		return true, 0.0
	}
	return false, 1.0 / survivalProb
}

// E implements Integrator. With includeIndirect, occluded directions see the
// radiance of the blocking surface instead of black.
func (pt *PathTracingIntegrator) E(s *scene.Scene, its Intersection, sampler core.Sampler, nSamples int, includeIndirect bool) core.Vec3 {
	query := &RadianceQuery{Scene: s, Sampler: sampler, Type: QueryRadiance}
	return estimateIrradiance(its, sampler, nSamples, func(direction core.Vec3) core.Vec3 {
		if s.Environment == nil {
			return core.Vec3{}
		}
		origin := its.Point.Add(its.Normal.Multiply(rayEpsilon))
		ray := core.NewRay(origin, direction)
		if s.BVH == nil {
			return s.Environment.Emit(ray)
		}
		hit, ok := s.BVH.Hit(ray, rayEpsilon, rayMax)
		if !ok {
			return s.Environment.Emit(ray)
		}
		if !includeIndirect {
			return core.Vec3{}
		}
		next := Intersection{Material: hit.Material, Point: hit.Point, Normal: hit.Normal, UV: hit.UV, Wi: direction.Negate(), T: hit.T}
		return pt.radiance(next, query, pt.config.MaxDepth-1, core.NewVec3(1, 1, 1), QueryDirectRadiance|QueryIndirectRadiance)
	})
}
