package transfer

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// fakeMesh is a MeshSource with hand-written arrays
type fakeMesh struct {
	positions []core.Vec3
	normals   []core.Vec3
	uvs       []core.Vec2
	vertices  []core.Vec3
}

func (m *fakeMesh) CornerPositions() []core.Vec3 { return m.positions }
func (m *fakeMesh) CornerNormals() []core.Vec3   { return m.normals }
func (m *fakeMesh) CornerUVs() []core.Vec2       { return m.uvs }
func (m *fakeMesh) Vertices() []core.Vec3        { return m.vertices }

func builtinMesh(t *testing.T, id string) MeshSource {
	t.Helper()
	s, err := scene.NewBuiltinScene(id, scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return s.Meshes[0]
}

func TestBuildTargets_NoDuplicatePositions(t *testing.T) {
	mesh := builtinMesh(t, "quad")
	targets, err := BuildTargets([]MeshSource{mesh})
	if err != nil {
		t.Fatalf("BuildTargets failed: %v", err)
	}

	if len(targets) != len(mesh.Vertices()) {
		t.Fatalf("Expected %d targets, got %d", len(mesh.Vertices()), len(targets))
	}
	for i, target := range targets {
		if target.Point != mesh.CornerPositions()[i] {
			t.Errorf("Target %d: expected point %v, got %v", i, mesh.CornerPositions()[i], target.Point)
		}
		if target.Normal != mesh.CornerNormals()[i] {
			t.Errorf("Target %d: expected raw normal %v, got %v", i, mesh.CornerNormals()[i], target.Normal)
		}
		if target.UV != mesh.CornerUVs()[i] {
			t.Errorf("Target %d: expected uv %v, got %v", i, mesh.CornerUVs()[i], target.UV)
		}
		if target.Shape != mesh {
			t.Errorf("Target %d does not reference its mesh", i)
		}
	}
}

func TestBuildTargets_AveragesSharedCorners(t *testing.T) {
	targets, err := BuildTargets([]MeshSource{builtinMesh(t, "cube")})
	if err != nil {
		t.Fatalf("BuildTargets failed: %v", err)
	}
	if len(targets) != 8 {
		t.Fatalf("Expected 8 cube targets, got %d", len(targets))
	}

	// Three face normals average to the diagonal through the corner
	inv := 1 / math.Sqrt(3)
	for i, target := range targets {
		expected := core.NewVec3(
			math.Copysign(inv, target.Point.X),
			math.Copysign(inv, target.Point.Y),
			math.Copysign(inv, target.Point.Z),
		)
		if target.Normal.Subtract(expected).Length() > 1e-12 {
			t.Errorf("Target %d at %v: expected normal %v, got %v", i, target.Point, expected, target.Normal)
		}
	}
}

func TestBuildTargets_OppositeNormalsFallBack(t *testing.T) {
	targets, err := BuildTargets([]MeshSource{builtinMesh(t, "mirrored")})
	if err != nil {
		t.Fatalf("BuildTargets failed: %v", err)
	}
	if len(targets) != 4 {
		t.Fatalf("Expected 4 targets, got %d", len(targets))
	}
	// The back quad's corners come last, so their normal is the fallback
	for i, target := range targets {
		if target.Normal != core.NewVec3(0, 0, -1) {
			t.Errorf("Target %d: expected fallback normal (0,0,-1), got %v", i, target.Normal)
		}
	}
}

func TestBuildTargets_LastCornerSuppliesUV(t *testing.T) {
	p := core.NewVec3(1, 2, 3)
	mesh := &fakeMesh{
		positions: []core.Vec3{p, p},
		normals:   []core.Vec3{core.NewVec3(0, 0, 2), core.NewVec3(0, 0, 4)},
		uvs:       []core.Vec2{core.NewVec2(0.1, 0.2), core.NewVec2(0.7, 0.8)},
		vertices:  []core.Vec3{p},
	}
	targets, err := BuildTargets([]MeshSource{mesh})
	if err != nil {
		t.Fatal(err)
	}
	if targets[0].UV != core.NewVec2(0.7, 0.8) {
		t.Errorf("Expected uv of the last corner, got %v", targets[0].UV)
	}
	if targets[0].Normal != core.NewVec3(0, 0, 1) {
		t.Errorf("Expected normalized sum (0,0,1), got %v", targets[0].Normal)
	}
}

func TestBuildTargets_MissingUVsDefaultToZero(t *testing.T) {
	p := core.NewVec3(0, 0, 0)
	mesh := &fakeMesh{
		positions: []core.Vec3{p},
		normals:   []core.Vec3{core.NewVec3(1, 0, 0)},
		vertices:  []core.Vec3{p},
	}
	targets, err := BuildTargets([]MeshSource{mesh})
	if err != nil {
		t.Fatal(err)
	}
	if targets[0].UV != (core.Vec2{}) {
		t.Errorf("Expected zero uv, got %v", targets[0].UV)
	}
}

func TestBuildTargets_PreservesMeshOrder(t *testing.T) {
	quad, cube := builtinMesh(t, "quad"), builtinMesh(t, "cube")
	targets, err := BuildTargets([]MeshSource{quad, cube})
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 12 {
		t.Fatalf("Expected 12 targets, got %d", len(targets))
	}
	for i, target := range targets {
		expected := quad
		if i >= 4 {
			expected = cube
		}
		if target.Shape != expected {
			t.Errorf("Target %d belongs to the wrong mesh", i)
		}
	}
}

func TestBuildTargets_Errors(t *testing.T) {
	p, q := core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)
	tests := []struct {
		name     string
		mesh     *fakeMesh
		expected error
	}{
		{
			name: "isolated zero normal",
			mesh: &fakeMesh{
				positions: []core.Vec3{p, q},
				normals:   []core.Vec3{core.NewVec3(0, 1, 0), {}},
				vertices:  []core.Vec3{p, q},
			},
			expected: ErrDegenerateNormal,
		},
		{
			name: "missing normals",
			mesh: &fakeMesh{
				positions: []core.Vec3{p},
				vertices:  []core.Vec3{p},
			},
			expected: ErrMissingNormals,
		},
		{
			name: "unmatched vertex",
			mesh: &fakeMesh{
				positions: []core.Vec3{p},
				normals:   []core.Vec3{core.NewVec3(0, 1, 0)},
				vertices:  []core.Vec3{p, q},
			},
			expected: ErrUnmatchedVertex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := BuildTargets([]MeshSource{tt.mesh})
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if targets != nil {
				t.Errorf("Expected no targets on error, got %d", len(targets))
			}
		})
	}
}
