package algorithm

import (
	"context"
	"sync"
	"sync/atomic"

	"digestCracker/internal/core/domain"
)

var _ Algorithm = (*BruteForce)(nil)

type BruteForce struct {
	settings domain.CrackingSettings
	from     int64
	limit    int64
	total    int64
	emitted  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

func NewBruteForce() *BruteForce {
	return &BruteForce{
		stop: make(chan struct{}),
	}
}

// SetRange restricts the stream to limit candidates starting at position
// from. A limit of zero or less streams to the end of the space.
func (b *BruteForce) SetRange(from, limit int64) {
	b.from = from
	b.limit = limit
}

func (b *BruteForce) Start(ctx context.Context) (<-chan string, <-chan error) {
	passwords := make(chan string)
	errors := make(chan error, 1)

	go func() {
		defer close(passwords)
		defer close(errors)

		space, err := NewSpace(b.settings.CharacterSet, b.settings.Length)
		if err != nil {
			errors <- err
			return
		}
		if b.from < 0 || b.from >= space.Size() {
			_, err := space.CandidateAt(b.from)
			errors <- err
			return
		}

		total := space.Size() - b.from
		if b.limit > 0 && b.limit < total {
			total = b.limit
		}
		atomic.StoreInt64(&b.total, total)

		cursor := space.Cursor(b.from, 1)
		for i := int64(0); i < total && cursor.Next(); i++ {
			select {
			case passwords <- string(cursor.Candidate()):
				b.emitted.Add(1)
			case <-ctx.Done():
				return
			case <-b.stop:
				return
			}
		}
	}()

	return passwords, errors
}

func (b *BruteForce) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *BruteForce) Progress() float64 {
	total := atomic.LoadInt64(&b.total)
	if total == 0 {
		return 0
	}
	return float64(b.emitted.Load()) / float64(total) * 100
}

func (b *BruteForce) Name() domain.CrackingAlgorithm {
	return domain.AlgoBruteForce
}

func (b *BruteForce) SetSettings(settings domain.CrackingSettings) {
	b.settings = settings
}
