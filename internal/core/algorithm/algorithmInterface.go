package algorithm

import (
	"context"

	"digestCracker/internal/core/domain"
)

// Algorithm streams candidates over a channel until the space is exhausted,
// the context ends or Stop is called.
type Algorithm interface {
	Start(ctx context.Context) (<-chan string, <-chan error)
	Stop()
	Progress() float64
	Name() domain.CrackingAlgorithm
	SetSettings(settings domain.CrackingSettings)
}
