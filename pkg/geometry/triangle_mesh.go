package geometry

import (
	"fmt"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/material"
)

// TriangleMesh represents an indexed triangle mesh with efficient ray intersection.
//
// The mesh keeps two views of its vertices. The corner arrays (positions,
// normals, uvs) hold one record per mesh vertex as loaded, so a position shared
// by faces with different normals or texture seams appears several times. The
// vertex array holds every distinct position once, in order of first appearance.
type TriangleMesh struct {
	name      string
	positions []core.Vec3
	normals   []core.Vec3
	uvs       []core.Vec2
	vertices  []core.Vec3
	faces     []int
	triangles []Shape
	bvh       *BVH
	bbox      core.AABB
	material  material.Material
}

// TriangleMeshOptions contains optional parameters for triangle mesh creation
type TriangleMeshOptions struct {
	Name    string      // Optional display name
	Normals []core.Vec3 // Optional per-vertex normals, computed from faces when absent
	UVs     []core.Vec2 // Optional per-vertex texture coordinates
}

// NewTriangleMesh creates a new triangle mesh from vertices and face indices
// positions: array of per-vertex 3D points
// faces: array of triangle indices (each group of 3 indices forms a triangle)
// material: material for all triangles
// options: optional parameters (can be nil for basic mesh)
func NewTriangleMesh(positions []core.Vec3, faces []int, material material.Material, options *TriangleMeshOptions) *TriangleMesh {
	if len(faces)%3 != 0 {
		panic("Face indices must be a multiple of 3")
	}
	for _, index := range faces {
		if index < 0 || index >= len(positions) {
			panic(fmt.Sprintf("Face index %d out of bounds (%d vertices)", index, len(positions)))
		}
	}
	if options == nil {
		options = &TriangleMeshOptions{}
	}
	if options.Normals != nil && len(options.Normals) != len(positions) {
		panic("Number of normals must match number of vertices")
	}
	if options.UVs != nil && len(options.UVs) != len(positions) {
		panic("Number of texture coordinates must match number of vertices")
	}

	normals := options.Normals
	if normals == nil {
		normals = computeVertexNormals(positions, faces)
	}

	mesh := &TriangleMesh{
		name:      options.Name,
		positions: positions,
		normals:   normals,
		uvs:       options.UVs,
		vertices:  uniquePositions(positions),
		faces:     faces,
		material:  material,
	}

	mesh.triangles = make([]Shape, len(faces)/3)
	for i := range mesh.triangles {
		i0, i1, i2 := faces[i*3], faces[i*3+1], faces[i*3+2]
		if mesh.uvs != nil {
			mesh.triangles[i] = NewTriangleWithUVs(positions[i0], positions[i1], positions[i2],
				mesh.uvs[i0], mesh.uvs[i1], mesh.uvs[i2], material)
		} else {
			mesh.triangles[i] = NewTriangle(positions[i0], positions[i1], positions[i2], material)
		}
	}

	mesh.bvh = NewBVH(mesh.triangles)
	mesh.bbox = mesh.bvh.BoundingBox()

	return mesh
}

// computeVertexNormals accumulates area-weighted face normals per vertex.
// Vertices not referenced by any face keep a zero normal.
func computeVertexNormals(positions []core.Vec3, faces []int) []core.Vec3 {
	normals := make([]core.Vec3, len(positions))
	for i := 0; i+2 < len(faces); i += 3 {
		i0, i1, i2 := faces[i], faces[i+1], faces[i+2]
		// Cross product length is twice the triangle area
		faceNormal := positions[i1].Subtract(positions[i0]).Cross(positions[i2].Subtract(positions[i0]))
		normals[i0] = normals[i0].Add(faceNormal)
		normals[i1] = normals[i1].Add(faceNormal)
		normals[i2] = normals[i2].Add(faceNormal)
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

// uniquePositions returns each distinct position once, in order of first appearance
func uniquePositions(positions []core.Vec3) []core.Vec3 {
	seen := make(map[core.Vec3]struct{}, len(positions))
	unique := make([]core.Vec3, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// Hit tests if a ray intersects with any triangle in the mesh
func (tm *TriangleMesh) Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	return tm.bvh.Hit(ray, tMin, tMax)
}

// BoundingBox returns the axis-aligned bounding box for the entire mesh
func (tm *TriangleMesh) BoundingBox() core.AABB {
	return tm.bbox
}

// Name returns the display name given at construction
func (tm *TriangleMesh) Name() string {
	return tm.name
}

// Material returns the mesh material
func (tm *TriangleMesh) Material() material.Material {
	return tm.material
}

// CornerPositions returns the per-vertex positions, duplicates included
func (tm *TriangleMesh) CornerPositions() []core.Vec3 {
	return tm.positions
}

// CornerNormals returns the per-vertex normals
func (tm *TriangleMesh) CornerNormals() []core.Vec3 {
	return tm.normals
}

// CornerUVs returns the per-vertex texture coordinates, nil if the mesh has none
func (tm *TriangleMesh) CornerUVs() []core.Vec2 {
	return tm.uvs
}

// Vertices returns the distinct vertex positions
func (tm *TriangleMesh) Vertices() []core.Vec3 {
	return tm.vertices
}

// Faces returns the triangle index array
func (tm *TriangleMesh) Faces() []int {
	return tm.faces
}

// GetTriangleCount returns the number of triangles in this mesh
func (tm *TriangleMesh) GetTriangleCount() int {
	return len(tm.triangles)
}

// GetTriangles returns the individual triangles
func (tm *TriangleMesh) GetTriangles() []Shape {
	return tm.triangles
}
