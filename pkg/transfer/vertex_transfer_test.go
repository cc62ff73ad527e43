package transfer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/geometry"
	"github.com/df07/go-vertex-transfer/pkg/integrator"
	"github.com/df07/go-vertex-transfer/pkg/lights"
	"github.com/df07/go-vertex-transfer/pkg/material"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// recordingPattern is a pattern light that remembers every activation
type recordingPattern struct {
	mu          sync.Mutex
	active      lights.BasisPattern
	activations []lights.BasisPattern
}

func (p *recordingPattern) ActivateBasis(harmonic, sign int) (lights.BasisPattern, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = lights.BasisPattern{Harmonic: harmonic, Sign: sign}
	p.activations = append(p.activations, p.active)
	return p.active, nil
}

func (p *recordingPattern) current() lights.BasisPattern {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *recordingPattern) Type() lights.LightType { return lights.LightTypeInfinite }
func (p *recordingPattern) Sample(point, normal core.Vec3, sample core.Vec2) lights.LightSample {
	return lights.LightSample{Direction: normal, Distance: math.Inf(1), PDF: 1}
}
func (p *recordingPattern) PDF(point, normal, direction core.Vec3) float64 { return 1 }
func (p *recordingPattern) Emit(ray core.Ray) core.Vec3                    { return core.Vec3{} }

// fakeEstimator answers every radiance query with li and records its lifecycle
type fakeEstimator struct {
	li          func(query *integrator.RadianceQuery) core.Vec3
	cancelAfter int64 // Calls cancel on this Li call and returns black from then on, 0 never
	cancel      context.CancelFunc

	calls     atomic.Int64
	cancelled atomic.Bool

	mu      sync.Mutex
	events  []string
	resumed map[string]any
}

func (f *fakeEstimator) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEstimator) Preprocess(s *scene.Scene) error { f.record("Preprocess"); return nil }
func (f *fakeEstimator) ConfigureSampler(s *scene.Scene, sampler core.PixelSampler) {
	f.record("ConfigureSampler")
}
func (f *fakeEstimator) BindResources(binder integrator.ResourceBinder) { f.record("BindResources") }
func (f *fakeEstimator) Resume(state map[string]any) error {
	f.record("Resume")
	f.resumed = state
	return nil
}
func (f *fakeEstimator) Cancel()                    { f.cancelled.Store(true) }
func (f *fakeEstimator) Postprocess(s *scene.Scene) { f.record("Postprocess") }

func (f *fakeEstimator) Li(ray core.Ray, query *integrator.RadianceQuery) core.Vec3 {
	n := f.calls.Add(1)
	if f.cancelAfter > 0 && n >= f.cancelAfter {
		if n == f.cancelAfter {
			f.cancel()
		}
		// Cancelled estimators return black, like the real ones
		return core.Vec3{}
	}
	return f.li(query)
}

func (f *fakeEstimator) E(s *scene.Scene, its integrator.Intersection, sampler core.Sampler, nSamples int, includeIndirect bool) core.Vec3 {
	return core.Vec3{}
}

func constantLi(c core.Vec3) func(*integrator.RadianceQuery) core.Vec3 {
	return func(*integrator.RadianceQuery) core.Vec3 { return c }
}

// patternLi returns a value identifying the active lobe: 3(h+1) for the
// positive lobe and h+1 for the negative one
func patternLi(query *integrator.RadianceQuery) core.Vec3 {
	active := query.Scene.Environment.(*recordingPattern).current()
	value := float64(active.Harmonic + 1)
	if active.Sign > 0 {
		value *= 3
	}
	return core.NewVec3(value, value, value)
}

func newTriangleScene(t *testing.T, env lights.Light, samples int) *scene.Scene {
	t.Helper()
	mesh := geometry.NewTriangleMesh(
		[]core.Vec3{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0)},
		[]int{0, 1, 2},
		material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)),
		nil,
	)
	return &scene.Scene{
		Name:            "triangle",
		Meshes:          []*geometry.TriangleMesh{mesh},
		Environment:     env,
		Sampler:         core.NewIndependentSampler(samples, 1),
		SamplingConfig:  scene.SamplingConfig{SamplesPerTarget: samples, MaxDepth: 1},
		DestinationFile: filepath.Join(t.TempDir(), "triangle.exr"),
	}
}

func newTestTransfer(t *testing.T, config Config, child integrator.Integrator) *VertexTransfer {
	t.Helper()
	delegate, err := integrator.NewLayeredIntegrator(child)
	if err != nil {
		t.Fatal(err)
	}
	vt, err := NewVertexTransfer(config, delegate, core.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	return vt
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no file at %s, stat returned %v", path, err)
	}
}

func TestRender_ConstantEstimator(t *testing.T) {
	c := core.NewVec3(0.25, 0.5, 0.75)
	s := newTriangleScene(t, &recordingPattern{}, 16)
	vt := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 2}, &fakeEstimator{li: constantLi(c)})

	result, err := vt.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.NumTargets != 3 || result.NumHarmonics != 1 {
		t.Errorf("Expected 3 targets × 1 harmonic, got %d × %d", result.NumTargets, result.NumHarmonics)
	}
	if result.Path != TransferPath(s.DestinationFile) {
		t.Errorf("Unexpected output path %s", result.Path)
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4+3*3*4 {
		t.Fatalf("Expected %d bytes, got %d", 4+3*3*4, len(data))
	}

	buffer, err := ReadTransferFile(result.Path, 3)
	if err != nil {
		t.Fatalf("ReadTransferFile failed: %v", err)
	}
	if buffer.NumHarmonics() != 1 {
		t.Errorf("Expected header 1, got %d", buffer.NumHarmonics())
	}
	for target := 0; target < 3; target++ {
		if got := buffer.At(target, 0); got != c {
			t.Errorf("Target %d: expected %v, got %v", target, c, got)
		}
	}
}

func TestRender_SkipsInvalidSamples(t *testing.T) {
	c := core.NewVec3(0.5, 0.25, 1)
	nan := core.NewVec3(math.NaN(), 0, 0)
	estimator := &fakeEstimator{li: func(query *integrator.RadianceQuery) core.Vec3 {
		if query.Sampler.(core.PixelSampler).SampleIndex()%2 == 1 {
			return nan
		}
		return c
	}}
	s := newTriangleScene(t, &recordingPattern{}, 16)
	vt := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1}, estimator)

	result, err := vt.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.ZeroSampleTargets != 0 {
		t.Errorf("Expected no zero-sample targets, got %d", result.ZeroSampleTargets)
	}

	buffer, err := ReadTransferFile(result.Path, 3)
	if err != nil {
		t.Fatal(err)
	}
	for target := 0; target < 3; target++ {
		if got := buffer.At(target, 0); got != c {
			t.Errorf("Target %d: expected %v, got %v", target, c, got)
		}
	}
}

func TestRender_NoValidSamples(t *testing.T) {
	inf := core.NewVec3(math.Inf(1), 0, 0)
	s := newTriangleScene(t, &recordingPattern{}, 4)
	vt := newTestTransfer(t, Config{NumBands: 2, NumWorkers: 2}, &fakeEstimator{li: constantLi(inf)})

	result, err := vt.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// 3 targets in each of the 7 generations
	if result.ZeroSampleTargets != 3*7 {
		t.Errorf("Expected %d zero-sample targets, got %d", 3*7, result.ZeroSampleTargets)
	}
	if result.BlackPoints != 3 {
		t.Errorf("Expected 3 black points, got %d", result.BlackPoints)
	}

	buffer, err := ReadTransferFile(result.Path, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range buffer.Values() {
		if !v.IsZero() {
			t.Errorf("Cell %d: expected zero, got %v", i, v)
		}
	}
}

func TestRender_SweepsEveryLobe(t *testing.T) {
	pattern := &recordingPattern{}
	s := newTriangleScene(t, pattern, 2)
	vt := newTestTransfer(t, Config{NumBands: 2, NumWorkers: 3}, &fakeEstimator{li: patternLi})

	result, err := vt.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	expected := []lights.BasisPattern{
		{Harmonic: 0, Sign: 1},
		{Harmonic: 1, Sign: -1}, {Harmonic: 1, Sign: 1},
		{Harmonic: 2, Sign: -1}, {Harmonic: 2, Sign: 1},
		{Harmonic: 3, Sign: -1}, {Harmonic: 3, Sign: 1},
	}
	if len(pattern.activations) != len(expected) {
		t.Fatalf("Expected %d activations, got %v", len(expected), pattern.activations)
	}
	for i := range expected {
		if pattern.activations[i] != expected[i] {
			t.Errorf("Activation %d: expected %+v, got %+v", i, expected[i], pattern.activations[i])
		}
	}

	// The negative lobe is subtracted from the positive one
	buffer, err := ReadTransferFile(result.Path, 3)
	if err != nil {
		t.Fatal(err)
	}
	for target := 0; target < 3; target++ {
		if got := buffer.At(target, 0).X; got != 3 {
			t.Errorf("Target %d harmonic 0: expected 3, got %g", target, got)
		}
		for h := 1; h < 4; h++ {
			if got, want := buffer.At(target, h).X, float64(2*(h+1)); got != want {
				t.Errorf("Target %d harmonic %d: expected %g, got %g", target, h, want, got)
			}
		}
	}
}

func TestRender_LifecycleOrder(t *testing.T) {
	estimator := &fakeEstimator{li: constantLi(core.NewVec3(1, 1, 1))}
	vt := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1}, estimator)

	if _, err := vt.Render(context.Background(), newTriangleScene(t, &recordingPattern{}, 2)); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	expected := []string{"Preprocess", "ConfigureSampler", "BindResources", "Postprocess"}
	if len(estimator.events) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, estimator.events)
	}
	for i := range expected {
		if estimator.events[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], estimator.events[i])
		}
	}
	if estimator.cancelled.Load() {
		t.Error("Cancel must not be forwarded on a finished run")
	}
}

func TestRender_IncompatibleEnvironment(t *testing.T) {
	estimator := &fakeEstimator{li: constantLi(core.NewVec3(1, 1, 1))}
	s := newTriangleScene(t, lights.NewUniformInfiniteLight(core.NewVec3(1, 1, 1)), 4)
	vt := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1, Checkpoint: true}, estimator)

	_, err := vt.Render(context.Background(), s)
	if !errors.Is(err, ErrIncompatibleEnvironment) {
		t.Fatalf("Expected ErrIncompatibleEnvironment, got %v", err)
	}
	if len(estimator.events) != 0 || estimator.calls.Load() != 0 {
		t.Errorf("Expected no estimator work, got events %v and %d calls", estimator.events, estimator.calls.Load())
	}

	entries, err := os.ReadDir(filepath.Dir(s.DestinationFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an untouched output directory, found %d entries", len(entries))
	}
}

func TestNewVertexTransfer_Errors(t *testing.T) {
	if _, err := NewVertexTransfer(Config{NumBands: 1}, nil, nil); !errors.Is(err, integrator.ErrNoSubIntegrator) {
		t.Errorf("Expected ErrNoSubIntegrator, got %v", err)
	}

	delegate, err := integrator.NewLayeredIntegrator(&fakeEstimator{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewVertexTransfer(Config{NumBands: 0}, delegate, nil); err == nil {
		t.Error("Expected error for zero bands")
	}

	vt, err := NewVertexTransfer(Config{NumBands: 2}, delegate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if vt.Config().NumWorkers <= 0 {
		t.Errorf("Expected a positive default worker count, got %d", vt.Config().NumWorkers)
	}
	if vt.Config().NumHarmonics() != 4 {
		t.Errorf("Expected 4 harmonics, got %d", vt.Config().NumHarmonics())
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	estimator := &fakeEstimator{li: constantLi(core.NewVec3(1, 1, 1)), cancelAfter: 1, cancel: cancel}
	s := newTriangleScene(t, &recordingPattern{}, 8)
	vt := newTestTransfer(t, Config{NumBands: 3, NumWorkers: 2}, estimator)

	_, err := vt.Render(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !estimator.cancelled.Load() {
		t.Error("Expected the estimator to be cancelled before Render returned")
	}
	assertNoFile(t, TransferPath(s.DestinationFile))
}

func TestRender_ResumesFromCheckpoint(t *testing.T) {
	const samples = 4
	config := Config{NumBands: 2, NumWorkers: 1, Checkpoint: true}

	expected := renderReference(t, config, samples)

	// Cancel on the first sample of harmonic 2, after 3 generations of 3 targets
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pattern := &recordingPattern{}
	s := newTriangleScene(t, pattern, samples)
	interrupted := &fakeEstimator{li: patternLi, cancelAfter: 3*3*samples + 1, cancel: cancel}
	if _, err := newTestTransfer(t, config, interrupted).Render(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	outputPath := TransferPath(s.DestinationFile)
	assertNoFile(t, outputPath)
	if _, err := os.Stat(checkpointPath(outputPath)); err != nil {
		t.Fatalf("Expected a checkpoint: %v", err)
	}

	pattern.activations = nil
	resumed := &fakeEstimator{li: patternLi}
	result, err := newTestTransfer(t, config, resumed).Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Resumed render failed: %v", err)
	}
	if !result.Resumed {
		t.Error("Expected the result to report a resume")
	}
	if resumed.resumed["harmonic"] != 2 {
		t.Errorf("Expected Resume at harmonic 2, got %v", resumed.resumed)
	}
	if first := pattern.activations[0]; first.Harmonic != 2 || first.Sign != -1 {
		t.Errorf("Expected the sweep to restart at harmonic 2 sign -1, got %+v", first)
	}

	actual, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(actual, expected) {
		t.Error("Resumed output differs from an uninterrupted run")
	}
	assertNoFile(t, checkpointPath(outputPath))
}

// renderReference returns the bytes of an uninterrupted run
func renderReference(t *testing.T, config Config, samples int) []byte {
	t.Helper()
	s := newTriangleScene(t, &recordingPattern{}, samples)
	result, err := newTestTransfer(t, config, &fakeEstimator{li: patternLi}).Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Reference render failed: %v", err)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRender_CancelInsideGenerationIsNotCheckpointed(t *testing.T) {
	const samples = 4
	config := Config{NumBands: 2, NumWorkers: 1, Checkpoint: true}
	expected := renderReference(t, config, samples)

	// The last sample of the last target of harmonic 0 comes back black
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTriangleScene(t, &recordingPattern{}, samples)
	interrupted := &fakeEstimator{li: patternLi, cancelAfter: 3 * samples, cancel: cancel}
	if _, err := newTestTransfer(t, config, interrupted).Render(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	outputPath := TransferPath(s.DestinationFile)
	assertNoFile(t, outputPath)
	assertNoFile(t, checkpointPath(outputPath))

	resumed := &fakeEstimator{li: patternLi}
	result, err := newTestTransfer(t, config, resumed).Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Second render failed: %v", err)
	}
	if result.Resumed || resumed.resumed != nil {
		t.Error("Expected a fresh run, the cancelled generation must not be kept")
	}
	actual, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(actual, expected) {
		t.Error("Output after a cancelled generation differs from an uninterrupted run")
	}
}

func TestRender_CancelInFinalGenerationWritesNothing(t *testing.T) {
	const samples = 4
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTriangleScene(t, &recordingPattern{}, samples)
	estimator := &fakeEstimator{li: constantLi(core.NewVec3(1, 1, 1)), cancelAfter: 3 * samples, cancel: cancel}
	_, err := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1}, estimator).Render(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !estimator.cancelled.Load() {
		t.Error("Expected the estimator to be cancelled")
	}
	for _, event := range estimator.events {
		if event == "Postprocess" {
			t.Error("Postprocess must not run for a cancelled sweep")
		}
	}
	assertNoFile(t, TransferPath(s.DestinationFile))
}

func TestRender_DegenerateNormalBeforeAnyWork(t *testing.T) {
	estimator := &fakeEstimator{li: constantLi(core.NewVec3(1, 1, 1))}
	s := newTriangleScene(t, &recordingPattern{}, 4)
	s.Meshes[0] = geometry.NewTriangleMesh(
		s.Meshes[0].CornerPositions(),
		[]int{0, 1, 2},
		s.Meshes[0].Material(),
		&geometry.TriangleMeshOptions{Normals: make([]core.Vec3, 3)},
	)

	_, err := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1}, estimator).Render(context.Background(), s)
	if !errors.Is(err, ErrDegenerateNormal) {
		t.Fatalf("Expected ErrDegenerateNormal, got %v", err)
	}
	if len(estimator.events) != 0 {
		t.Errorf("Expected no lifecycle calls, got %v", estimator.events)
	}
	assertNoFile(t, TransferPath(s.DestinationFile))
}

func TestRender_IgnoresTruncatedCheckpoint(t *testing.T) {
	s := newTriangleScene(t, &recordingPattern{}, 2)
	ckpt := checkpointPath(TransferPath(s.DestinationFile))
	if err := saveCheckpoint(ckpt, filledBuffer(3, 4), 2); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(ckpt)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		size int
	}{
		{"short header", len(checkpointMagic) + 6},
		{"short body", len(data) - 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(ckpt, data[:tt.size], 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := loadCheckpoint(ckpt, 3, 4); !errors.Is(err, errCheckpointMismatch) {
				t.Errorf("Expected mismatch, got %v", err)
			}

			estimator := &fakeEstimator{li: patternLi}
			result, err := newTestTransfer(t, Config{NumBands: 2, NumWorkers: 1, Checkpoint: true}, estimator).Render(context.Background(), s)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if result.Resumed {
				t.Error("Expected a fresh run")
			}
			assertNoFile(t, ckpt)
		})
	}
}

func TestRender_IgnoresForeignCheckpoint(t *testing.T) {
	s := newTriangleScene(t, &recordingPattern{}, 2)
	ckpt := checkpointPath(TransferPath(s.DestinationFile))
	if err := os.WriteFile(ckpt, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	estimator := &fakeEstimator{li: patternLi}
	result, err := newTestTransfer(t, Config{NumBands: 1, NumWorkers: 1, Checkpoint: true}, estimator).Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.Resumed || estimator.resumed != nil {
		t.Error("Expected a fresh run")
	}
	assertNoFile(t, ckpt)
}

func TestCheckpoint_RejectsOtherShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.transfer.ckpt")
	if err := saveCheckpoint(path, filledBuffer(3, 4), 2); err != nil {
		t.Fatal(err)
	}

	ckpt, err := loadCheckpoint(path, 3, 4)
	if err != nil {
		t.Fatalf("loadCheckpoint failed: %v", err)
	}
	if ckpt.nextHarmonic != 2 || ckpt.buffer.At(1, 3) != filledBuffer(3, 4).At(1, 3) {
		t.Errorf("Unexpected checkpoint contents: next %d", ckpt.nextHarmonic)
	}

	for _, shape := range [][2]int{{4, 4}, {3, 9}} {
		if _, err := loadCheckpoint(path, shape[0], shape[1]); !errors.Is(err, errCheckpointMismatch) {
			t.Errorf("Shape %v: expected mismatch, got %v", shape, err)
		}
	}

	missing, err := loadCheckpoint(filepath.Join(t.TempDir(), "none.ckpt"), 3, 4)
	if missing != nil || err != nil {
		t.Errorf("Expected (nil, nil) for a missing checkpoint, got (%v, %v)", missing, err)
	}
}

func TestRender_DirectTransferOnQuad(t *testing.T) {
	opts := scene.DefaultOptions()
	opts.SamplesPerTarget = 8
	opts.DestinationFile = filepath.Join(t.TempDir(), "quad.exr")
	s, err := scene.NewBuiltinScene("quad", opts)
	if err != nil {
		t.Fatal(err)
	}
	s.Environment = lights.NewSHMapLight("", 32, 16)

	mapsRoot := filepath.Join(t.TempDir(), "maps")
	vt := newTestTransfer(t, Config{NumBands: 2, NumWorkers: 2, MapsRoot: mapsRoot}, integrator.NewDirectTransferIntegrator())
	result, err := vt.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.BlackPoints != 0 {
		t.Errorf("Expected no black points on an open quad, got %d", result.BlackPoints)
	}

	// A constant band-0 environment transfers albedo·Y00
	buffer, err := ReadTransferFile(result.Path, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := opts.Albedo.X * 0.5 / math.Sqrt(math.Pi)
	for target := 0; target < 4; target++ {
		if got := buffer.At(target, 0).X; math.Abs(got-want) > 1e-3 {
			t.Errorf("Target %d: expected %g, got %g", target, want, got)
		}
	}

	for _, name := range []string{lights.MapFileName(0, 1), lights.MapFileName(3, -1), lights.MapFileName(3, 1)} {
		if _, err := os.Stat(filepath.Join(mapsRoot, name)); err != nil {
			t.Errorf("Expected basis map %s: %v", name, err)
		}
	}
}

func TestRender_IndependentOfWorkerCount(t *testing.T) {
	render := func(workers int) []byte {
		opts := scene.DefaultOptions()
		opts.SamplesPerTarget = 8
		opts.DestinationFile = filepath.Join(t.TempDir(), "cube.exr")
		s, err := scene.NewBuiltinScene("cube", opts)
		if err != nil {
			t.Fatal(err)
		}
		s.Environment = lights.NewSHMapLight("", 16, 8)

		vt := newTestTransfer(t, Config{NumBands: 2, NumWorkers: workers}, integrator.NewDirectTransferIntegrator())
		result, err := vt.Render(context.Background(), s)
		if err != nil {
			t.Fatalf("Render with %d workers failed: %v", workers, err)
		}
		data, err := os.ReadFile(result.Path)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	single := render(1)
	for _, workers := range []int{3, 16} {
		if !bytes.Equal(render(workers), single) {
			t.Errorf("Output with %d workers differs from a single worker", workers)
		}
	}
}
