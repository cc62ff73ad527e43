package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/df07/go-vertex-transfer/pkg/core"
	"github.com/df07/go-vertex-transfer/pkg/integrator"
	"github.com/df07/go-vertex-transfer/pkg/scene"
	"github.com/df07/go-vertex-transfer/pkg/transfer"
)

// cliOptions holds everything the command line configures
type cliOptions struct {
	sceneType      string
	meshPath       string
	integratorType string
	transfer       transfer.Config
	scene          scene.Options
	verbose        bool
	help           bool
}

func parseFlags(args []string, output io.Writer) (*cliOptions, *flag.FlagSet, error) {
	opts := &cliOptions{transfer: transfer.DefaultConfig(), scene: scene.DefaultOptions()}
	albedo := opts.scene.Albedo.X

	fs := flag.NewFlagSet("vertex-transfer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.sceneType, "scene", "quad", "Built-in scene: 'quad', 'cube' or 'mirrored'")
	fs.StringVar(&opts.meshPath, "mesh", "", "PLY or OBJ mesh to compute transfer for (overrides -scene)")
	fs.StringVar(&opts.integratorType, "integrator", "direct", "Transfer estimator: 'direct' or 'path'")
	fs.IntVar(&opts.transfer.NumBands, "bands", opts.transfer.NumBands, "Spherical harmonic bands (bands² coefficients per vertex)")
	fs.StringVar(&opts.transfer.MapsRoot, "maps", opts.transfer.MapsRoot, "Directory for per-basis environment maps, empty keeps them in memory")
	fs.IntVar(&opts.transfer.NumWorkers, "workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	fs.BoolVar(&opts.transfer.Checkpoint, "checkpoint", false, "Save progress after every harmonic and resume interrupted runs")
	fs.IntVar(&opts.scene.SamplesPerTarget, "samples", opts.scene.SamplesPerTarget, "Samples per vertex and basis lobe")
	fs.IntVar(&opts.scene.MaxDepth, "depth", opts.scene.MaxDepth, "Maximum bounce depth for the path estimator")
	fs.Float64Var(&albedo, "albedo", albedo, "Diffuse albedo of the meshes")
	fs.Uint64Var(&opts.scene.Seed, "seed", opts.scene.Seed, "Sampler seed")
	fs.StringVar(&opts.scene.DestinationFile, "out", opts.scene.DestinationFile, "Destination file; the transfer file replaces its extension")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log every target")
	fs.BoolVar(&opts.help, "help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if fs.NArg() > 0 {
		return nil, fs, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.scene.SamplesPerTarget <= 0 {
		return nil, fs, fmt.Errorf("invalid sample count %d", opts.scene.SamplesPerTarget)
	}
	opts.scene.Albedo = core.NewVec3(albedo, albedo, albedo)
	return opts, fs, nil
}

func printHelp(fs *flag.FlagSet, output io.Writer) {
	fmt.Fprintln(output, "Vertex Transfer")
	fmt.Fprintln(output, "Usage: vertex-transfer [options]")
	fmt.Fprintln(output)
	fmt.Fprintln(output, "Options:")
	fs.SetOutput(output)
	fs.PrintDefaults()
	fmt.Fprintln(output)
	fmt.Fprintln(output, "Available scenes:")
	for _, info := range scene.ListBuiltinScenes() {
		fmt.Fprintf(output, "  %-9s - %s\n", info.ID, info.Description)
	}
	fmt.Fprintln(output)
	fmt.Fprintln(output, "Coefficients are saved next to -out with the extension replaced by .transfer")
}

// createScene builds the scene from a mesh file or a built-in scene id
func createScene(sceneType, meshPath string, opts scene.Options) (*scene.Scene, error) {
	if meshPath != "" {
		return scene.NewMeshScene(meshPath, opts)
	}
	if sceneType == "" {
		return nil, errors.New("no scene given")
	}
	return scene.NewBuiltinScene(sceneType, opts)
}

// createIntegrator wraps the selected estimator in the layered integrator
func createIntegrator(integratorType string, config scene.SamplingConfig) (*integrator.LayeredIntegrator, error) {
	var child integrator.Integrator
	switch integratorType {
	case "direct":
		child = integrator.NewDirectTransferIntegrator()
	case "path":
		child = integrator.NewPathTracingIntegrator(config)
	default:
		return nil, fmt.Errorf("unknown integrator type: %s", integratorType)
	}
	return integrator.NewLayeredIntegrator(child)
}

func run(ctx context.Context, args []string, output io.Writer) error {
	opts, fs, err := parseFlags(args, output)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(fs, output)
		return nil
	}

	logger := core.NewLeveledLogger(core.NewDefaultLogger(), opts.verbose)

	s, err := createScene(opts.sceneType, opts.meshPath, opts.scene)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}
	delegate, err := createIntegrator(opts.integratorType, s.SamplingConfig)
	if err != nil {
		return err
	}
	vt, err := transfer.NewVertexTransfer(opts.transfer, delegate, logger)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.DestinationFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Printf("Computing %d-band transfer for %s (%s, %d samples, %d workers)\n",
		opts.transfer.NumBands, s, opts.integratorType, opts.scene.SamplesPerTarget, vt.Config().NumWorkers)
	result, err := vt.Render(ctx, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Transfer for %d vertices saved as %s\n", result.NumTargets, result.Path)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Transfer interrupted")
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
