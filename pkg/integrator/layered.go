package integrator

import (
	"errors"
	"fmt"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

var (
	ErrNoSubIntegrator        = errors.New("no sub-integrator attached")
	ErrMultipleSubIntegrators = errors.New("more than one sub-integrator attached")
)

// LayeredIntegrator owns exactly one child integrator and forwards every call
// to it unmodified. Callers that only depend on the Integrator contract can
// then drive any light transport algorithm.
type LayeredIntegrator struct {
	child Integrator
}

// NewLayeredIntegrator wraps the single given child
func NewLayeredIntegrator(children ...Integrator) (*LayeredIntegrator, error) {
	switch len(children) {
	case 0:
		return nil, ErrNoSubIntegrator
	case 1:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrMultipleSubIntegrators, len(children))
	}
	if children[0] == nil {
		return nil, ErrNoSubIntegrator
	}
	return &LayeredIntegrator{child: children[0]}, nil
}

// Child returns the wrapped integrator
func (l *LayeredIntegrator) Child() Integrator {
	return l.child
}

func (l *LayeredIntegrator) Preprocess(s *scene.Scene) error {
	return l.child.Preprocess(s)
}

func (l *LayeredIntegrator) ConfigureSampler(s *scene.Scene, sampler core.PixelSampler) {
	l.child.ConfigureSampler(s, sampler)
}

func (l *LayeredIntegrator) BindResources(binder ResourceBinder) {
	l.child.BindResources(binder)
}

func (l *LayeredIntegrator) Resume(state map[string]any) error {
	return l.child.Resume(state)
}

// Cancel forwards synchronously; the child has seen the request when Cancel returns
func (l *LayeredIntegrator) Cancel() {
	l.child.Cancel()
}

func (l *LayeredIntegrator) Postprocess(s *scene.Scene) {
	l.child.Postprocess(s)
}

func (l *LayeredIntegrator) Li(ray core.Ray, query *RadianceQuery) core.Vec3 {
	return l.child.Li(ray, query)
}

func (l *LayeredIntegrator) E(s *scene.Scene, its Intersection, sampler core.Sampler, nSamples int, includeIndirect bool) core.Vec3 {
	return l.child.E(s, its, sampler, nSamples, includeIndirect)
}
