package scene

import (
	"fmt"
	"sort"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/lights"
	"github.com/df07/go-vertex-transfer/pkg/loaders"
	"github.com/df07/go-vertex-transfer/pkg/material"
)

// Options configures the scenes built by this package
type Options struct {
	SamplesPerTarget          int
	MaxDepth                  int
	RussianRouletteMinBounces int
	Seed                      uint64
	Albedo                    core.Vec3
	DestinationFile           string
}

// DefaultOptions returns the options used by the command line defaults
func DefaultOptions() Options {
	return Options{
		SamplesPerTarget:          64,
		MaxDepth:                  5,
		RussianRouletteMinBounces: 3,
		Albedo:                    core.NewVec3(0.8, 0.8, 0.8),
		DestinationFile:           "output.exr",
	}
}

// SceneInfo describes a built-in scene
type SceneInfo struct {
	ID          string
	Description string
}

type builtinScene struct {
	info  SceneInfo
	build func(mat material.Material) *geometry.TriangleMesh
}

var builtinScenes = map[string]builtinScene{
	"quad": {
		info:  SceneInfo{ID: "quad", Description: "single upward facing unit quad"},
		build: newQuadMesh,
	},
	"cube": {
		info:  SceneInfo{ID: "cube", Description: "unit cube with hard edges (three corners per vertex)"},
		build: newCubeMesh,
	},
	"mirrored": {
		info:  SceneInfo{ID: "mirrored", Description: "two coincident quads with opposite normals"},
		build: newMirroredMesh,
	},
}

// ListBuiltinScenes returns the built-in scenes sorted by ID
func ListBuiltinScenes() []SceneInfo {
	infos := make([]SceneInfo, 0, len(builtinScenes))
	for _, s := range builtinScenes {
		infos = append(infos, s.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// NewBuiltinScene creates one of the built-in scenes by ID
func NewBuiltinScene(id string, opts Options) (*Scene, error) {
	builtin, ok := builtinScenes[id]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", id)
	}
	s := newScene(id, opts)
	s.AddMesh(builtin.build(material.NewLambertian(opts.Albedo)))
	return s, nil
}

// NewMeshScene creates a scene holding a single mesh loaded from a PLY or OBJ file
func NewMeshScene(path string, opts Options) (*Scene, error) {
	data, err := loaders.LoadMesh(path)
	if err != nil {
		return nil, err
	}
	mesh, err := data.ToTriangleMesh(material.NewLambertian(opts.Albedo))
	if err != nil {
		return nil, err
	}
	s := newScene(data.Name, opts)
	s.AddMesh(mesh)
	return s, nil
}

func newScene(name string, opts Options) *Scene {
	return &Scene{
		Name:        name,
		Environment: lights.NewSHMapLight("", lights.DefaultMapWidth, lights.DefaultMapHeight),
		Sampler:     core.NewIndependentSampler(opts.SamplesPerTarget, opts.Seed),
		SamplingConfig: SamplingConfig{
			SamplesPerTarget:          opts.SamplesPerTarget,
			MaxDepth:                  opts.MaxDepth,
			RussianRouletteMinBounces: opts.RussianRouletteMinBounces,
		},
		DestinationFile: opts.DestinationFile,
	}
}

// newQuadMesh creates a unit quad in the z = 0 plane facing +Z
func newQuadMesh(mat material.Material) *geometry.TriangleMesh {
	positions := []core.Vec3{
		core.NewVec3(-0.5, -0.5, 0),
		core.NewVec3(0.5, -0.5, 0),
		core.NewVec3(0.5, 0.5, 0),
		core.NewVec3(-0.5, 0.5, 0),
	}
	up := core.NewVec3(0, 0, 1)
	return geometry.NewTriangleMesh(positions, []int{0, 1, 2, 0, 2, 3}, mat, &geometry.TriangleMeshOptions{
		Name:    "quad",
		Normals: []core.Vec3{up, up, up, up},
		UVs:     []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
	})
}

// newCubeMesh creates a unit cube centered at the origin. Each face has its own
// four corners carrying the face normal, so every cube vertex has three corners.
func newCubeMesh(mat material.Material) *geometry.TriangleMesh {
	type face struct {
		normal, u, v core.Vec3
	}
	faces := []face{
		{core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1)},
		{core.NewVec3(-1, 0, 0), core.NewVec3(0, 0, 1), core.NewVec3(0, 1, 0)},
		{core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0)},
		{core.NewVec3(0, -1, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)},
		{core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0)},
		{core.NewVec3(0, 0, -1), core.NewVec3(0, 1, 0), core.NewVec3(1, 0, 0)},
	}
	corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var positions, normals []core.Vec3
	var uvs []core.Vec2
	var indices []int
	for _, f := range faces {
		base := len(positions)
		for _, c := range corners {
			p := f.normal.Add(f.u.Multiply(c[0])).Add(f.v.Multiply(c[1])).Multiply(0.5)
			positions = append(positions, p)
			normals = append(normals, f.normal)
			uvs = append(uvs, core.NewVec2((c[0]+1)/2, (c[1]+1)/2))
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return geometry.NewTriangleMesh(positions, indices, mat, &geometry.TriangleMeshOptions{
		Name:    "cube",
		Normals: normals,
		UVs:     uvs,
	})
}

// newMirroredMesh creates two coincident quads facing +Z and -Z. The normals of
// each shared position sum to zero.
func newMirroredMesh(mat material.Material) *geometry.TriangleMesh {
	square := []core.Vec3{
		core.NewVec3(-0.5, -0.5, 0),
		core.NewVec3(0.5, -0.5, 0),
		core.NewVec3(0.5, 0.5, 0),
		core.NewVec3(-0.5, 0.5, 0),
	}
	up, down := core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1)

	positions := append(append([]core.Vec3{}, square...), square...)
	normals := []core.Vec3{up, up, up, up, down, down, down, down}
	// The back quad winds the other way so its geometric normal faces -Z
	indices := []int{0, 1, 2, 0, 2, 3, 4, 6, 5, 4, 7, 6}

	return geometry.NewTriangleMesh(positions, indices, mat, &geometry.TriangleMeshOptions{
		Name:    "mirrored",
		Normals: normals,
	})
}
