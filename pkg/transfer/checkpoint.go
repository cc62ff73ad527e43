package transfer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const checkpointMagic = "PRTCKPT1"

// checkpoint is the progress of an interrupted sweep: every harmonic below
// nextHarmonic is final in buffer
type checkpoint struct {
	nextHarmonic int
	buffer       *ResultBuffer
}

// checkpointPath returns where progress for an output file is saved
func checkpointPath(transferPath string) string {
	return transferPath + ".ckpt"
}

func saveCheckpoint(path string, buffer *ResultBuffer, nextHarmonic int) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, checkpointMagic); err != nil {
			return err
		}
		header := [3]int32{int32(buffer.NumHarmonics()), int32(buffer.NumTargets()), int32(nextHarmonic)}
		if err := binary.Write(w, binary.LittleEndian, header); err != nil {
			return err
		}
		_, err := buffer.writeBody(w)
		return err
	})
}

// errCheckpointMismatch marks a checkpoint written for a different run
var errCheckpointMismatch = errors.New("checkpoint does not match this run")

// loadCheckpoint reads a checkpoint for a run of the given shape. A missing
// file returns (nil, nil).
func loadCheckpoint(path string, numTargets, numHarmonics int) (*checkpoint, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	r := bufio.NewReader(file)

	magic := make([]byte, len(checkpointMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != checkpointMagic {
		return nil, fmt.Errorf("%w: bad magic", errCheckpointMismatch)
	}

	var header [3]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", errCheckpointMismatch, err)
	}
	if int(header[0]) != numHarmonics || int(header[1]) != numTargets {
		return nil, fmt.Errorf("%w: %d harmonics × %d targets, run has %d × %d",
			errCheckpointMismatch, header[0], header[1], numHarmonics, numTargets)
	}
	next := int(header[2])
	if next < 0 || next > numHarmonics {
		return nil, fmt.Errorf("%w: next harmonic %d", errCheckpointMismatch, next)
	}

	buffer := NewResultBuffer(numTargets, numHarmonics)
	if err := buffer.readBody(r); err != nil {
		return nil, fmt.Errorf("%w: %v", errCheckpointMismatch, err)
	}
	return &checkpoint{nextHarmonic: next, buffer: buffer}, nil
}

func removeCheckpoint(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
