package transfer

import (
	"errors"
	"fmt"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

var (
	ErrMissingNormals   = errors.New("mesh has no per-corner normals")
	ErrUnmatchedVertex  = errors.New("mesh vertex matches no corner")
	ErrDegenerateNormal = errors.New("vertex normal is zero")
)

// MeshSource exposes the geometry arrays targets are built from. Corner arrays
// hold one record per mesh vertex as loaded; Vertices holds each distinct
// position once.
type MeshSource interface {
	CornerPositions() []core.Vec3
	CornerNormals() []core.Vec3
	CornerUVs() []core.Vec2
	Vertices() []core.Vec3
}

// Target is one surface point that receives transfer coefficients
type Target struct {
	Shape  MeshSource
	Point  core.Vec3
	Normal core.Vec3 // Unit length
	UV     core.Vec2
}

// cornerMerge accumulates the corners sharing one position
type cornerMerge struct {
	normalSum core.Vec3
	last      int // Last matching corner, supplies the fallback normal and the uv
}

// BuildTargets returns one target per distinct vertex position of every mesh,
// in mesh order then vertex order. The output file is indexed by this order.
//
// A target's normal is the normalized sum of the normals of all corners at its
// position. When they cancel out the last matching corner's normal is used.
func BuildTargets(meshes []MeshSource) ([]Target, error) {
	var targets []Target
	for m, mesh := range meshes {
		meshTargets, err := buildMeshTargets(mesh)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", m, err)
		}
		targets = append(targets, meshTargets...)
	}
	return targets, nil
}

func buildMeshTargets(mesh MeshSource) ([]Target, error) {
	positions := mesh.CornerPositions()
	normals := mesh.CornerNormals()
	uvs := mesh.CornerUVs()
	vertices := mesh.Vertices()

	if len(vertices) == 0 {
		return nil, nil
	}
	if len(normals) == 0 || len(normals) != len(positions) {
		return nil, fmt.Errorf("%w (%d normals for %d corners)", ErrMissingNormals, len(normals), len(positions))
	}
	if len(uvs) != 0 && len(uvs) != len(positions) {
		return nil, fmt.Errorf("%d texture coordinates for %d corners", len(uvs), len(positions))
	}

	// Float keys compare exactly, as a pairwise position scan would
	merged := make(map[core.Vec3]*cornerMerge, len(vertices))
	for k, p := range positions {
		entry, ok := merged[p]
		if !ok {
			entry = &cornerMerge{}
			merged[p] = entry
		}
		entry.normalSum = entry.normalSum.Add(normals[k])
		entry.last = k
	}

	targets := make([]Target, 0, len(vertices))
	for _, v := range vertices {
		entry, ok := merged[v]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnmatchedVertex, v)
		}

		normal := entry.normalSum
		if normal.IsZero() {
			normal = normals[entry.last]
			if normal.IsZero() {
				return nil, fmt.Errorf("%w at %v", ErrDegenerateNormal, v)
			}
		}

		var uv core.Vec2
		if len(uvs) != 0 {
			uv = uvs[entry.last]
		}

		targets = append(targets, Target{
			Shape:  mesh,
			Point:  v,
			Normal: normal.Normalize(),
			UV:     uv,
		})
	}
	return targets, nil
}
