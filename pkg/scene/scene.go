package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/lights"
)

var (
	ErrNoMeshes      = errors.New("scene has no meshes")
	ErrNoEnvironment = errors.New("scene has no environment light")
)

// Scene contains everything a transfer pass reads: the meshes whose vertices
// receive coefficients, the environment emitter, and the sampler prototype
type Scene struct {
	Name            string
	Meshes          []*geometry.TriangleMesh
	Environment     lights.Light      // Environment emitter, reconfigured per basis lobe
	Sampler         core.PixelSampler // Prototype, cloned once per worker
	SamplingConfig  SamplingConfig
	DestinationFile string        // Nominal output; the transfer file replaces its extension
	BVH             *geometry.BVH // Acceleration structure over all meshes
}

// SamplingConfig contains light transport configuration
type SamplingConfig struct {
	SamplesPerTarget          int // Number of samples drawn per target
	MaxDepth                  int // Maximum ray bounce depth
	RussianRouletteMinBounces int // Minimum bounces before Russian Roulette can activate
}

// AddMesh adds a mesh to the scene. The BVH is rebuilt by Preprocess.
func (s *Scene) AddMesh(mesh *geometry.TriangleMesh) {
	s.Meshes = append(s.Meshes, mesh)
	s.BVH = nil
}

// Shapes returns the meshes as intersectable shapes
func (s *Scene) Shapes() []geometry.Shape {
	shapes := make([]geometry.Shape, len(s.Meshes))
	for i, mesh := range s.Meshes {
		shapes[i] = mesh
	}
	return shapes
}

// Preprocess prepares the scene for rendering by building the BVH.
// It is idempotent.
func (s *Scene) Preprocess() error {
	if len(s.Meshes) == 0 {
		return ErrNoMeshes
	}
	if s.Environment == nil {
		return ErrNoEnvironment
	}
	if s.Sampler == nil {
		s.Sampler = core.NewIndependentSampler(s.SamplingConfig.SamplesPerTarget, 0)
	}
	if s.BVH == nil {
		s.BVH = geometry.NewBVH(s.Shapes())
	}
	return nil
}

// GetPrimitiveCount returns the total number of triangles in the scene
func (s *Scene) GetPrimitiveCount() int {
	count := 0
	for _, mesh := range s.Meshes {
		count += mesh.GetTriangleCount()
	}
	return count
}

// GetVertexCount returns the number of distinct vertex positions over all meshes
func (s *Scene) GetVertexCount() int {
	count := 0
	for _, mesh := range s.Meshes {
		count += len(mesh.Vertices())
	}
	return count
}

func (s *Scene) String() string {
	return fmt.Sprintf("%s: %d meshes, %d triangles, %d vertices", s.Name, len(s.Meshes), s.GetPrimitiveCount(), s.GetVertexCount())
}
