package transfer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// ResultBuffer holds one spectrum per (target, harmonic) pair, target-major
type ResultBuffer struct {
	numTargets   int
	numHarmonics int
	values       []core.Vec3
}

// NewResultBuffer allocates a zeroed buffer
func NewResultBuffer(numTargets, numHarmonics int) *ResultBuffer {
	return &ResultBuffer{
		numTargets:   numTargets,
		numHarmonics: numHarmonics,
		values:       make([]core.Vec3, numTargets*numHarmonics),
	}
}

// Index returns the cell of a target and harmonic
func (b *ResultBuffer) Index(target, harmonic int) int {
	return target*b.numHarmonics + harmonic
}

func (b *ResultBuffer) At(target, harmonic int) core.Vec3 {
	return b.values[b.Index(target, harmonic)]
}

// Add accumulates into a cell. Cells of distinct targets may be written concurrently.
func (b *ResultBuffer) Add(target, harmonic int, value core.Vec3) {
	i := b.Index(target, harmonic)
	b.values[i] = b.values[i].Add(value)
}

func (b *ResultBuffer) Set(target, harmonic int, value core.Vec3) {
	b.values[b.Index(target, harmonic)] = value
}

func (b *ResultBuffer) NumTargets() int {
	return b.numTargets
}

func (b *ResultBuffer) NumHarmonics() int {
	return b.numHarmonics
}

// Values returns the backing cells in file order
func (b *ResultBuffer) Values() []core.Vec3 {
	return b.values
}

// BlackPoints counts targets whose zeroth coefficient is exactly zero
func (b *ResultBuffer) BlackPoints() int {
	if b.numHarmonics == 0 {
		return 0
	}
	count := 0
	for t := 0; t < b.numTargets; t++ {
		if b.At(t, 0).IsZero() {
			count++
		}
	}
	return count
}

// Transfer file layout, little endian:
//
//	int32 numHarmonics
//	float32 × 3 channels for each harmonic of each target, in target order
//
// The target count is not stored. Readers must know the number of distinct
// vertices of the scene and enumerate them in the same order.

// WriteTo writes the transfer file layout to w
func (b *ResultBuffer) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, int32(b.numHarmonics)); err != nil {
		return 0, err
	}
	n, err := b.writeBody(w)
	return 4 + n, err
}

func (b *ResultBuffer) writeBody(w io.Writer) (int64, error) {
	body := make([]float32, 0, len(b.values)*core.SpectrumChannels)
	for _, v := range b.values {
		for c := 0; c < core.SpectrumChannels; c++ {
			body = append(body, float32(v.Channel(c)))
		}
	}
	if err := binary.Write(w, binary.LittleEndian, body); err != nil {
		return 0, err
	}
	return int64(len(body) * 4), nil
}

// ReadResultBuffer parses a transfer file written for numTargets targets
func ReadResultBuffer(r io.Reader, numTargets int) (*ResultBuffer, error) {
	var numHarmonics int32
	if err := binary.Read(r, binary.LittleEndian, &numHarmonics); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if numHarmonics <= 0 {
		return nil, fmt.Errorf("invalid harmonic count %d", numHarmonics)
	}

	b := NewResultBuffer(numTargets, int(numHarmonics))
	if err := b.readBody(r); err != nil {
		return nil, err
	}

	var extra [1]byte
	if n, _ := io.ReadFull(r, extra[:]); n != 0 {
		return nil, fmt.Errorf("trailing data after %d targets", numTargets)
	}
	return b, nil
}

func (b *ResultBuffer) readBody(r io.Reader) error {
	body := make([]float32, len(b.values)*core.SpectrumChannels)
	if err := binary.Read(r, binary.LittleEndian, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("failed to read %d coefficients: %w", len(b.values), err)
	}
	for i := range b.values {
		c := body[i*core.SpectrumChannels:]
		b.values[i] = core.NewVec3(float64(c[0]), float64(c[1]), float64(c[2]))
	}
	return nil
}

// WriteTransferFile writes the buffer to path, replacing it atomically
func (b *ResultBuffer) WriteTransferFile(path string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := b.WriteTo(w)
		return err
	})
}

// ReadTransferFile reads a transfer file written for numTargets targets
func ReadTransferFile(path string, numTargets int) (*ResultBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadResultBuffer(bufio.NewReader(file), numTargets)
}

// TransferPath returns the output path for a scene destination: the extension
// is replaced by ".transfer"
func TransferPath(destination string) string {
	ext := filepath.Ext(destination)
	return destination[:len(destination)-len(ext)] + ".transfer"
}

// writeFileAtomic writes through a temporary file in the target directory and renames it into place
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
