package loaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/udhos/gwob"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// LoadOBJ loads a Wavefront OBJ file. Every distinct position/uv/normal
// combination becomes its own vertex, so hard edges and texture seams keep
// their per-corner attributes.
func LoadOBJ(filename string) (*MeshData, error) {
	options := gwob.ObjParserOptions{LogStats: false, Logger: func(string) {}, IgnoreNormals: false}

	obj, err := gwob.NewObjFromFile(filename, &options)
	if err != nil {
		return nil, fmt.Errorf("failed to read OBJ file %q: %w", filename, err)
	}

	data := objToMeshData(obj)
	data.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if len(data.Vertices) == 0 {
		return nil, fmt.Errorf("OBJ file %q has no vertices", filename)
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OBJ file %q: %w", filename, err)
	}
	return data, nil
}

// objToMeshData unpacks gwob's interleaved coordinate buffer
func objToMeshData(obj *gwob.Obj) *MeshData {
	// Strides and offsets are in bytes over float32 coordinates
	stride := obj.StrideSize / 4
	positionOffset := obj.StrideOffsetPosition / 4
	texCoordOffset := obj.StrideOffsetTexture / 4
	normalOffset := obj.StrideOffsetNormal / 4

	count := obj.NumberOfElements()
	data := &MeshData{
		Vertices: make([]core.Vec3, count),
		Faces:    append([]int(nil), obj.Indices...),
	}
	if obj.NormCoordFound {
		data.Normals = make([]core.Vec3, count)
	}
	if obj.TextCoordFound {
		data.TexCoords = make([]core.Vec2, count)
	}

	for i := 0; i < count; i++ {
		base := i * stride
		data.Vertices[i] = core.NewVec3(
			obj.Coord64(base+positionOffset),
			obj.Coord64(base+positionOffset+1),
			obj.Coord64(base+positionOffset+2),
		)
		if obj.NormCoordFound {
			data.Normals[i] = core.NewVec3(
				obj.Coord64(base+normalOffset),
				obj.Coord64(base+normalOffset+1),
				obj.Coord64(base+normalOffset+2),
			)
		}
		if obj.TextCoordFound {
			data.TexCoords[i] = core.NewVec2(
				obj.Coord64(base+texCoordOffset),
				obj.Coord64(base+texCoordOffset+1),
			)
		}
	}
	return data
}
