package integrator

import (
	"math"
	"sync/atomic"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/material"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// Integrator defines the lifecycle and evaluation contract of a light transport algorithm.
// Li and E may be called concurrently from many workers; the lifecycle methods are not.
type Integrator interface {
	// Preprocess runs once before any evaluation
	Preprocess(s *scene.Scene) error

	// ConfigureSampler tells the integrator which sampler prototype drives evaluation
	ConfigureSampler(s *scene.Scene, sampler core.PixelSampler)

	// BindResources hands named run-wide resources to the integrator
	BindResources(binder ResourceBinder)

	// Resume restores progress recorded by an earlier, interrupted run
	Resume(state map[string]any) error

	// Cancel stops in-flight evaluation. It returns once the request is visible to all evaluators.
	Cancel()

	// Postprocess runs once after all evaluation finished
	Postprocess(s *scene.Scene)

	// Li estimates the radiance arriving along ray, restricted by the query
	Li(ray core.Ray, query *RadianceQuery) core.Vec3

	// E estimates irradiance at an intersection from nSamples cosine-weighted directions
	E(s *scene.Scene, its Intersection, sampler core.Sampler, nSamples int, includeIndirect bool) core.Vec3
}

// QueryType selects the radiance components a query asks for
type QueryType uint32

const (
	QueryEmittedRadiance  QueryType = 1 << iota // Radiance emitted by surfaces and the environment
	QueryDirectRadiance                         // Single-scattered radiance from the environment
	QueryIndirectRadiance                       // Radiance scattered more than once
	QueryIntersection                           // Find the first intersection; when clear the query's Intersection is used

	// QueryRadiance asks for full radiance along a traced ray
	QueryRadiance = QueryEmittedRadiance | QueryDirectRadiance | QueryIndirectRadiance | QueryIntersection
)

// Has reports whether all bits of flag are set
func (q QueryType) Has(flag QueryType) bool {
	return q&flag == flag
}

// Intersection is a surface point a query can be pinned to
type Intersection struct {
	Shape    geometry.Shape
	Material material.Material
	Point    core.Vec3
	Normal   core.Vec3 // Shading normal on the side radiance leaves toward
	UV       core.Vec2
	Frame    core.Frame
	Wi       core.Vec3 // Direction toward the query origin
	T        float64
}

// interaction returns the intersection as a material surface interaction
func (its Intersection) interaction() material.SurfaceInteraction {
	return material.SurfaceInteraction{
		Point:     its.Point,
		Normal:    its.Normal,
		UV:        its.UV,
		T:         its.T,
		FrontFace: true,
		Material:  its.Material,
	}
}

// RadianceQuery carries the evaluation context of one Li call
type RadianceQuery struct {
	Scene        *scene.Scene
	Sampler      core.Sampler
	Type         QueryType
	Intersection Intersection // Used when Type lacks QueryIntersection
	Depth        int          // Current path depth
}

// NewRadianceQuery creates a query asking for full radiance
func NewRadianceQuery(s *scene.Scene, sampler core.Sampler) *RadianceQuery {
	return &RadianceQuery{Scene: s, Sampler: sampler, Type: QueryRadiance}
}

// ResourceBinder holds named resources shared for one run
type ResourceBinder interface {
	Bind(name string, resource any)
	Lookup(name string) (any, bool)
}

// Names of resources bound by the transfer engine
const (
	ResourceLogger = "logger"
)

// Resources is a map-backed ResourceBinder
type Resources map[string]any

// Bind implements ResourceBinder
func (r Resources) Bind(name string, resource any) {
	r[name] = resource
}

// Lookup implements ResourceBinder
func (r Resources) Lookup(name string) (any, bool) {
	resource, ok := r[name]
	return resource, ok
}

// Renderer-side tolerances
const (
	rayEpsilon = 1e-4
	rayMax     = 1e30
)

// estimatorState holds the bookkeeping shared by the concrete integrators
type estimatorState struct {
	cancelled   atomic.Bool
	evaluations atomic.Int64
	logger      core.Logger
	sampleCount int
	resumedAt   int
}

func (e *estimatorState) bindLogger(binder ResourceBinder) {
	if binder == nil {
		return
	}
	if resource, ok := binder.Lookup(ResourceLogger); ok {
		if logger, ok := resource.(core.Logger); ok {
			e.logger = logger
		}
	}
}

func (e *estimatorState) log() core.Logger {
	if e.logger == nil {
		return core.NopLogger{}
	}
	return e.logger
}

func (e *estimatorState) resume(state map[string]any) error {
	if h, ok := state["harmonic"]; ok {
		harmonic, ok := h.(int)
		if !ok || harmonic < 0 {
			return &ResumeError{Key: "harmonic", Value: h}
		}
		e.resumedAt = harmonic
	}
	return nil
}

// ResumeError reports resume state an integrator cannot use
type ResumeError struct {
	Key   string
	Value any
}

func (e *ResumeError) Error() string {
	return "invalid resume state for " + e.Key
}

// intersect resolves the surface the query refers to
func intersect(ray core.Ray, query *RadianceQuery) (Intersection, bool) {
	if !query.Type.Has(QueryIntersection) {
		return query.Intersection, true
	}
	bvh := query.Scene.BVH
	if bvh == nil {
		return Intersection{}, false
	}
	hit, ok := bvh.Hit(ray, rayEpsilon, rayMax)
	if !ok {
		return Intersection{}, false
	}
	return Intersection{
		Material: hit.Material,
		Point:    hit.Point,
		Normal:   hit.Normal,
		UV:       hit.UV,
		Frame:    core.NewFrame(hit.Normal),
		Wi:       ray.Direction.Negate().Normalize(),
		T:        hit.T,
	}, true
}

// surfaceBRDF evaluates the BRDF at its toward direction. Surfaces without a
// material reflect as white Lambertians.
func surfaceBRDF(its Intersection, direction core.Vec3) core.Vec3 {
	if its.Material == nil {
		if direction.Dot(its.Normal) <= 0 {
			return core.Vec3{}
		}
		return core.NewVec3(1, 1, 1).Multiply(1 / math.Pi)
	}
	interaction := its.interaction()
	return its.Material.EvaluateBRDF(its.Wi, direction, &interaction)
}

// visible reports whether the environment is unoccluded from point along direction
func visible(s *scene.Scene, point, normal, direction core.Vec3) bool {
	if s.BVH == nil {
		return true
	}
	origin := point.Add(normal.Multiply(rayEpsilon))
	return !s.BVH.Occluded(core.NewRay(origin, direction), rayEpsilon, rayMax)
}

// sampleEnvironment estimates radiance reflected at its from one environment
// sample: BRDF · L · cosθ / pdf
func sampleEnvironment(s *scene.Scene, its Intersection, sampler core.Sampler) core.Vec3 {
	if s.Environment == nil {
		return core.Vec3{}
	}
	sample := s.Environment.Sample(its.Point, its.Normal, sampler.Get2D())
	cosine := sample.Direction.Dot(its.Normal)
	if cosine <= 0 {
		return core.Vec3{}
	}
	pdf := s.Environment.PDF(its.Point, its.Normal, sample.Direction)
	if pdf <= 0 {
		return core.Vec3{}
	}
	if !visible(s, its.Point, its.Normal, sample.Direction) {
		return core.Vec3{}
	}
	return surfaceBRDF(its, sample.Direction).MultiplyVec(sample.Emission).Multiply(cosine / pdf)
}

// estimateIrradiance averages cosine-weighted radiance samples at its. With
// cosine sampling the estimator of ∫ L cosθ dω is π times the mean radiance.
func estimateIrradiance(its Intersection, sampler core.Sampler, nSamples int, radiance func(direction core.Vec3) core.Vec3) core.Vec3 {
	if nSamples <= 0 {
		return core.Vec3{}
	}
	sum := core.Vec3{}
	for i := 0; i < nSamples; i++ {
		direction := core.SampleCosineHemisphere(its.Normal, sampler.Get2D())
		sum = sum.Add(radiance(direction))
	}
	return sum.Multiply(math.Pi / float64(nSamples))
}
