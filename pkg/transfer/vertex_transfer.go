package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/integrator"
	"github.com/df07/go-vertex-transfer/pkg/lights"
	"github.com/df07/go-vertex-transfer/pkg/scene"
)

// ErrIncompatibleEnvironment is returned for scenes whose environment cannot emit basis patterns
var ErrIncompatibleEnvironment = errors.New("scene environment cannot emit basis patterns")

// VertexTransfer computes per-vertex transfer coefficients for every
// spherical-harmonic basis function and writes them to a transfer file.
//
// Harmonics are swept in order, each basis lobe in its own generation of
// workers. The environment is reconfigured only between generations, so it is
// never mutated while a worker reads it.
type VertexTransfer struct {
	config   Config
	delegate *integrator.LayeredIntegrator
	logger   *core.LeveledLogger
}

// Result summarizes a finished transfer
type Result struct {
	Path              string // Written transfer file
	NumTargets        int
	NumHarmonics      int
	BlackPoints       int // Targets whose zeroth coefficient is exactly zero
	ZeroSampleTargets int // Target generations without a single valid sample, summed over generations
	Resumed           bool
}

// NewVertexTransfer creates a transfer driving the given layered integrator
func NewVertexTransfer(config Config, delegate *integrator.LayeredIntegrator, logger core.Logger) (*VertexTransfer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if delegate == nil {
		return nil, integrator.ErrNoSubIntegrator
	}
	leveled, ok := logger.(*core.LeveledLogger)
	if !ok {
		leveled = core.NewLeveledLogger(logger, false)
	}
	return &VertexTransfer{config: config, delegate: delegate, logger: leveled}, nil
}

// Config returns the validated configuration
func (vt *VertexTransfer) Config() Config {
	return vt.config
}

// Render runs the full sweep over s and writes the transfer file. Nothing is
// written when a precondition fails or ctx is cancelled.
func (vt *VertexTransfer) Render(ctx context.Context, s *scene.Scene) (*Result, error) {
	pattern, err := vt.checkPreconditions(s)
	if err != nil {
		return nil, err
	}
	targets, err := BuildTargets(meshSources(s))
	if err != nil {
		return nil, fmt.Errorf("failed to build targets: %w", err)
	}
	for i, t := range targets {
		vt.logger.Debugf("Target %d: point %v, normal %v, uv (%g, %g)\n", i, t.Point, t.Normal, t.UV.X, t.UV.Y)
	}
	vt.logger.Printf("Built %d targets from %d meshes\n", len(targets), len(s.Meshes))

	if err := s.Preprocess(); err != nil {
		return nil, err
	}

	// Cancellation reaches the estimator before Render returns
	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			vt.delegate.Cancel()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-watcherDone
	}()

	if err := vt.delegate.Preprocess(s); err != nil {
		return nil, fmt.Errorf("integrator preprocess failed: %w", err)
	}
	vt.delegate.ConfigureSampler(s, s.Sampler)
	vt.delegate.BindResources(integrator.Resources{integrator.ResourceLogger: vt.logger})

	if vt.config.MapsRoot != "" {
		if store, ok := pattern.(lights.MapStore); ok {
			store.SetMapsRoot(vt.config.MapsRoot)
		}
	}

	numHarmonics := vt.config.NumHarmonics()
	outputPath := TransferPath(s.DestinationFile)
	result := &Result{Path: outputPath, NumTargets: len(targets), NumHarmonics: numHarmonics}

	buffer, start, err := vt.restore(outputPath, len(targets), numHarmonics)
	if err != nil {
		return nil, err
	}
	if start > 0 {
		result.Resumed = true
		if err := vt.delegate.Resume(map[string]any{"harmonic": start}); err != nil {
			return nil, fmt.Errorf("integrator resume failed: %w", err)
		}
	}

	sweepStart := time.Now()
	for h := start; h < numHarmonics; h++ {
		for _, sign := range signsFor(h) {
			if err := ctx.Err(); err != nil {
				vt.logger.Printf("Transfer cancelled before harmonic %d\n", h)
				return nil, err
			}

			activated, err := pattern.ActivateBasis(h, sign)
			if err != nil {
				return nil, fmt.Errorf("failed to activate basis %d (sign %+d): %w", h, sign, err)
			}

			generation := GenerationConfig{HarmonicIndex: h, Sign: sign, Pattern: activated}
			zeroSample, err := vt.runGeneration(ctx, s, targets, buffer, generation)
			if err != nil {
				return nil, err
			}
			result.ZeroSampleTargets += zeroSample
		}

		if vt.config.Checkpoint && h+1 < numHarmonics {
			if err := saveCheckpoint(checkpointPath(outputPath), buffer, h+1); err != nil {
				return nil, fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}
	}
	vt.logger.Printf("Swept %d harmonics in %v\n", numHarmonics-start, time.Since(sweepStart))

	// Estimates taken after cancellation are not trustworthy
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.BlackPoints = buffer.BlackPoints()
	if result.BlackPoints > 0 {
		vt.logger.Printf("Warning: %d of %d targets are black in the zeroth harmonic\n", result.BlackPoints, len(targets))
	}

	vt.delegate.Postprocess(s)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := buffer.WriteTransferFile(outputPath); err != nil {
		return nil, fmt.Errorf("failed to write transfer file: %w", err)
	}
	if vt.config.Checkpoint {
		if err := removeCheckpoint(checkpointPath(outputPath)); err != nil {
			vt.logger.Printf("Warning: failed to remove checkpoint: %v\n", err)
		}
	}
	vt.logger.Printf("Wrote %s (%d targets × %d harmonics)\n", outputPath, len(targets), numHarmonics)
	return result, nil
}

// checkPreconditions verifies everything that can fail before any work is done
func (vt *VertexTransfer) checkPreconditions(s *scene.Scene) (lights.PatternLight, error) {
	if vt.delegate == nil {
		return nil, integrator.ErrNoSubIntegrator
	}
	if s == nil {
		return nil, errors.New("no scene")
	}
	pattern, ok := s.Environment.(lights.PatternLight)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrIncompatibleEnvironment, s.Environment)
	}
	return pattern, nil
}

// restore returns the buffer to accumulate into and the first harmonic to sweep
func (vt *VertexTransfer) restore(outputPath string, numTargets, numHarmonics int) (*ResultBuffer, int, error) {
	fresh := NewResultBuffer(numTargets, numHarmonics)
	if !vt.config.Checkpoint {
		return fresh, 0, nil
	}

	path := checkpointPath(outputPath)
	ckpt, err := loadCheckpoint(path, numTargets, numHarmonics)
	switch {
	case errors.Is(err, errCheckpointMismatch):
		vt.logger.Printf("Ignoring checkpoint %s: %v\n", path, err)
		return fresh, 0, nil
	case err != nil:
		return nil, 0, fmt.Errorf("failed to read checkpoint: %w", err)
	case ckpt == nil:
		return fresh, 0, nil
	}

	vt.logger.Printf("Resuming from checkpoint %s at harmonic %d\n", path, ckpt.nextHarmonic)
	return ckpt.buffer, ckpt.nextHarmonic, nil
}

// runGeneration runs one worker per partition and waits for all of them.
// It returns the number of targets that had no valid sample.
func (vt *VertexTransfer) runGeneration(ctx context.Context, s *scene.Scene, targets []Target, buffer *ResultBuffer, generation GenerationConfig) (int, error) {
	partitions, err := PartitionTargets(len(targets), vt.config.NumWorkers)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	stats := make([]workerStats, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, partition := range partitions {
		worker := &sampleWorker{
			partition:  partition,
			generation: generation,
			targets:    targets,
			buffer:     buffer,
			delegate:   vt.delegate,
			scene:      s,
			sampler:    s.Sampler.Clone(uint64(i)),
		}
		g.Go(func() error {
			var err error
			stats[i], err = worker.run(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	// Workers only check ctx between targets, so a generation cancelled on its
	// last targets finishes with black estimates
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	zeroSample, invalid := 0, 0
	for _, st := range stats {
		zeroSample += st.zeroSampleTargets
		invalid += st.invalidSamples
	}
	vt.logger.Debugf("Harmonic %d sign %+d: %d workers in %v, %d invalid samples\n",
		generation.HarmonicIndex, generation.Sign, len(partitions), time.Since(start), invalid)
	if zeroSample > 0 {
		vt.logger.Printf("Warning: harmonic %d sign %+d: %d targets had no valid sample and contribute zero\n",
			generation.HarmonicIndex, generation.Sign, zeroSample)
	}
	return zeroSample, nil
}

// meshSources returns the scene meshes as target sources
func meshSources(s *scene.Scene) []MeshSource {
	sources := make([]MeshSource, len(s.Meshes))
	for i, mesh := range s.Meshes {
		sources[i] = mesh
	}
	return sources
}
