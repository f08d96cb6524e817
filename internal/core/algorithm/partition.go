package algorithm

import (
	"digestCracker/internal/core/domain"

	"github.com/pkg/errors"
)

// Partition is one worker's stripe: every position p with p mod Workers == WorkerID.
type Partition struct {
	WorkerID int
	Workers  int
	space    Space
}

func (p Partition) Size() int64 {
	k, n := int64(p.WorkerID), int64(p.Workers)
	if k >= p.space.size {
		return 0
	}
	return (p.space.size - k + n - 1) / n
}

func (p Partition) Empty() bool {
	return p.Size() == 0
}

func (p Partition) Contains(pos int64) bool {
	return pos >= 0 && pos < p.space.size && pos%int64(p.Workers) == int64(p.WorkerID)
}

// Cursor iterates the stripe in increasing position order.
func (p Partition) Cursor() *Cursor {
	return p.space.Cursor(int64(p.WorkerID), int64(p.Workers))
}

type Partitioner struct {
	space Space
}

func NewPartitioner(space Space) *Partitioner {
	return &Partitioner{space: space}
}

// Partition stripes the space across numWorkers. Workers beyond the space
// size receive empty partitions.
func (p *Partitioner) Partition(numWorkers int) ([]Partition, error) {
	if numWorkers < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidWorkerCount, "%d workers", numWorkers)
	}
	parts := make([]Partition, numWorkers)
	for k := range parts {
		parts[k] = Partition{WorkerID: k, Workers: numWorkers, space: p.space}
	}
	return parts, nil
}
