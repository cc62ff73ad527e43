package loaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/material"
)

// MeshData contains indexed triangle data loaded from a mesh file.
// Normals and TexCoords are per vertex and empty when the file has none.
type MeshData struct {
	Name      string
	Vertices  []core.Vec3
	Normals   []core.Vec3
	TexCoords []core.Vec2
	Faces     []int // Triangle indices (3 per triangle)
}

// LoadMesh loads a mesh file, choosing the format from the file extension
func LoadMesh(filename string) (*MeshData, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ply":
		return LoadPLY(filename)
	case ".obj":
		return LoadOBJ(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", filename)
	}
}

// TriangleCount returns the number of triangles in the mesh
func (d *MeshData) TriangleCount() int {
	return len(d.Faces) / 3
}

// Validate checks that face indices and per-vertex arrays agree with the vertex count
func (d *MeshData) Validate() error {
	if len(d.Faces)%3 != 0 {
		return fmt.Errorf("face index count %d is not a multiple of 3", len(d.Faces))
	}
	for i, idx := range d.Faces {
		if idx < 0 || idx >= len(d.Vertices) {
			return fmt.Errorf("face index %d at position %d out of range [0, %d)", idx, i, len(d.Vertices))
		}
	}
	if len(d.Normals) != 0 && len(d.Normals) != len(d.Vertices) {
		return fmt.Errorf("normal count %d does not match vertex count %d", len(d.Normals), len(d.Vertices))
	}
	if len(d.TexCoords) != 0 && len(d.TexCoords) != len(d.Vertices) {
		return fmt.Errorf("texture coordinate count %d does not match vertex count %d", len(d.TexCoords), len(d.Vertices))
	}
	return nil
}

// ToTriangleMesh builds a triangle mesh with the given material
func (d *MeshData) ToTriangleMesh(mat material.Material) (*geometry.TriangleMesh, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh %q: %w", d.Name, err)
	}
	options := &geometry.TriangleMeshOptions{Name: d.Name}
	if len(d.Normals) > 0 {
		options.Normals = d.Normals
	}
	if len(d.TexCoords) > 0 {
		options.UVs = d.TexCoords
	}
	return geometry.NewTriangleMesh(d.Vertices, d.Faces, mat, options), nil
}
