package service

import (
	"context"
	"testing"
	"time"

	"digestCracker/internal/core/algorithm"
	"digestCracker/internal/core/domain"
	"digestCracker/internal/core/hashing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const abcdeMD5 = "ab56b4d92b40713acc5af89985d4b786"

// collidingHasher treats every candidate in hits as matching any target.
// Candidates in slow stall the worker that hashes them.
type collidingHasher struct {
	*hashing.Service
	hits  map[string]bool
	slow  map[string]time.Duration
	fault string
}

func (h *collidingHasher) Matcher(string, domain.HashType) (func([]byte) bool, error) {
	return func(c []byte) bool {
		if string(c) == h.fault {
			panic("digest routine failed")
		}
		if d, ok := h.slow[string(c)]; ok {
			time.Sleep(d)
		}
		return h.hits[string(c)]
	}, nil
}

func smallSpace(t *testing.T, alphabet string, length int) algorithm.Space {
	t.Helper()
	s, err := algorithm.NewSpace(alphabet, length)
	require.NoError(t, err)
	return s
}

func TestSearchSequential_KnownCandidate(t *testing.T) {
	c := NewCoordinator(hashing.NewService())
	assert.Equal(t, StateIdle, c.State())

	outcome, err := c.SearchSequential(context.Background(), abcdeMD5, domain.HashMD5)
	require.NoError(t, err)
	assert.Equal(t, domain.Found("abcde"), outcome)
	assert.Equal(t, StateSucceeded, c.State())
	assert.Greater(t, c.Elapsed(), time.Duration(0))
	// early exit: nothing after "abcde" is hashed
	assert.Equal(t, int64(19011), c.Attempts())
}

func TestSearchSequential_SHA256(t *testing.T) {
	digest, err := hashing.Compute("aaaac", domain.HashSHA256)
	require.NoError(t, err)

	c := NewCoordinator(hashing.NewService())
	outcome, err := c.SearchSequential(context.Background(), digest, domain.HashSHA256)
	require.NoError(t, err)
	assert.Equal(t, domain.Found("aaaac"), outcome)
}

func TestSearchSequential_Exhausted(t *testing.T) {
	space := smallSpace(t, "abc", 3)
	digest, err := hashing.Compute("hello", domain.HashMD5)
	require.NoError(t, err)

	c := NewCoordinator(hashing.NewService(), WithSpace(space))
	outcome, err := c.SearchSequential(context.Background(), digest, domain.HashMD5)
	require.NoError(t, err)
	assert.False(t, outcome.Found)
	assert.Equal(t, StateExhausted, c.State())
	assert.Equal(t, space.Size(), c.Attempts())
}

func TestSearchSequential_NonHexTargetNeverMatches(t *testing.T) {
	space := smallSpace(t, "ab", 4)
	c := NewCoordinator(hashing.NewService(), WithSpace(space))

	outcome, err := c.SearchSequential(context.Background(), "zz56b4d92b40713acc5af89985d4b786", domain.HashMD5)
	require.NoError(t, err)
	assert.False(t, outcome.Found)
	assert.Equal(t, space.Size(), c.Attempts())
}

func TestSearchParallel_EquivalentToSequential(t *testing.T) {
	space := smallSpace(t, "abcd", 3)
	targets := []string{"aaa", "bcd", "ddd", "nothere"}

	for _, target := range targets {
		digest, err := hashing.Compute(target, domain.HashMD5)
		require.NoError(t, err)

		seq, err := NewCoordinator(hashing.NewService(), WithSpace(space)).
			SearchSequential(context.Background(), digest, domain.HashMD5)
		require.NoError(t, err)

		for n := 1; n <= int(space.Size())+5; n++ {
			c := NewCoordinator(hashing.NewService(), WithSpace(space))
			par, err := c.SearchParallel(context.Background(), digest, domain.HashMD5, n)
			require.NoError(t, err)
			require.Equal(t, seq, par, "target %s with %d workers", target, n)
			// run to completion: every candidate is hashed
			require.Equal(t, space.Size(), c.Attempts())
		}
	}
}

func TestSearchParallel_KnownCandidateFullSpace(t *testing.T) {
	if testing.Short() {
		t.Skip("scans the full 26^5 space")
	}

	c := NewCoordinator(hashing.NewService())
	outcome, err := c.SearchParallel(context.Background(), abcdeMD5, domain.HashMD5, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.Found("abcde"), outcome)
	assert.Equal(t, StateSucceeded, c.State())
	assert.Equal(t, algorithm.DefaultSpace().Size(), c.Attempts())
	assert.Equal(t, 0, c.ActiveWorkers())
}

func TestSearchParallel_WorkerIDPrecedence(t *testing.T) {
	space := smallSpace(t, "abcd", 3)
	// with 4 workers "aab" (position 1) belongs to worker 1 and "aac"
	// (position 2) to worker 2. Worker 1 is stalled so worker 2 finishes first.
	h := &collidingHasher{
		Service: hashing.NewService(),
		hits:    map[string]bool{"aab": true, "aac": true},
		slow:    map[string]time.Duration{"aab": 100 * time.Millisecond},
	}

	for i := 0; i < 3; i++ {
		c := NewCoordinator(h, WithSpace(space))
		outcome, err := c.SearchParallel(context.Background(), abcdeMD5, domain.HashMD5, 4)
		require.NoError(t, err)
		assert.Equal(t, domain.Found("aab"), outcome)
	}
}

func TestSearchParallel_FirstMatchWithinStripe(t *testing.T) {
	space := smallSpace(t, "abcd", 3)
	// both collide inside worker 0's stripe (positions 0 and 2 with 2 workers)
	h := &collidingHasher{
		Service: hashing.NewService(),
		hits:    map[string]bool{"aac": true, "aaa": true},
	}

	c := NewCoordinator(h, WithSpace(space))
	outcome, err := c.SearchParallel(context.Background(), abcdeMD5, domain.HashMD5, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.Found("aaa"), outcome)
	assert.Equal(t, space.Size(), c.Attempts())
}

func TestSearchParallel_EagerCancel(t *testing.T) {
	digest, err := hashing.Compute("aaaab", domain.HashMD5)
	require.NoError(t, err)

	c := NewCoordinator(hashing.NewService(), WithPolicy(domain.PolicyEagerCancel))
	outcome, err := c.SearchParallel(context.Background(), digest, domain.HashMD5, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.Found("aaaab"), outcome)
	assert.Less(t, c.Attempts(), algorithm.DefaultSpace().Size())
}

func TestSearchParallel_WorkerFaultFailsSearch(t *testing.T) {
	space := smallSpace(t, "abcd", 3)
	h := &collidingHasher{
		Service: hashing.NewService(),
		hits:    map[string]bool{"aaa": true},
		fault:   "ddd",
	}

	c := NewCoordinator(h, WithSpace(space))
	outcome, err := c.SearchParallel(context.Background(), abcdeMD5, domain.HashMD5, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWorkerFault))
	assert.False(t, outcome.Found)
	assert.Equal(t, StateFailed, c.State())
}

func TestSearchParallel_InvalidWorkerCount(t *testing.T) {
	c := NewCoordinator(hashing.NewService())
	_, err := c.SearchParallel(context.Background(), abcdeMD5, domain.HashMD5, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidWorkerCount))
	assert.Equal(t, StateIdle, c.State())
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(hashing.NewService())
	_, err := c.SearchParallel(ctx, abcdeMD5, domain.HashMD5, 2)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateFailed, c.State())

	_, err = c.SearchSequential(ctx, "0123456789abcdef0123456789abcdef", domain.HashMD5)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSearch_UnsupportedHashType(t *testing.T) {
	c := NewCoordinator(hashing.NewService())
	_, err := c.SearchSequential(context.Background(), abcdeMD5, domain.HashType("SHA1"))
	assert.True(t, errors.Is(err, domain.ErrUnsupportedHash))
	_, err = c.SearchParallel(context.Background(), abcdeMD5, domain.HashType("SHA1"), 2)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedHash))
}
