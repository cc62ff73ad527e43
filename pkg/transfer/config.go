package transfer

import (
	"fmt"
	"runtime"

	"github.com/df07/go-vertex-transfer/pkg/sh"
)

// Config contains transfer configuration
type Config struct {
	NumBands   int    // Spherical harmonic bands; the sweep covers NumBands² harmonics
	MapsRoot   string // Directory holding the per-basis environment maps, empty to keep them in memory
	NumWorkers int    // Workers per generation, 0 means one per CPU
	Checkpoint bool   // Save progress after every harmonic and resume from it
}

// DefaultConfig returns the configuration used by the command line defaults
func DefaultConfig() Config {
	return Config{
		NumBands:   3,
		MapsRoot:   "shmaps",
		NumWorkers: 0,
	}
}

// NumHarmonics returns the number of basis functions swept
func (c Config) NumHarmonics() int {
	return sh.NumHarmonics(c.NumBands)
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.NumBands < 1 {
		return fmt.Errorf("invalid band count %d: need at least 1", c.NumBands)
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	return nil
}
