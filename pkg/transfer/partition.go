package transfer

import "fmt"

// Partition is the half-open target range [Begin, End) owned by one worker
type Partition struct {
	Worker     int
	Begin, End int
}

// Len returns the number of targets in the partition
func (p Partition) Len() int {
	return p.End - p.Begin
}

// PartitionTargets splits [0, numTargets) into numWorkers contiguous ranges of
// numTargets/numWorkers targets each. The last range absorbs the remainder.
func PartitionTargets(numTargets, numWorkers int) ([]Partition, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d", numWorkers)
	}
	if numTargets < 0 {
		return nil, fmt.Errorf("invalid target count %d", numTargets)
	}

	step := numTargets / numWorkers
	partitions := make([]Partition, numWorkers)
	for i := range partitions {
		partitions[i] = Partition{Worker: i, Begin: step * i, End: step * (i + 1)}
	}
	partitions[numWorkers-1].End = numTargets
	return partitions, nil
}
