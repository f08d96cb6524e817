package service

import (
	"context"
	"slices"
	"sync"

	"digestCracker/internal/core/domain"
	"digestCracker/internal/port"

	"github.com/pkg/errors"
)

// MaxFinishedJobs bounds the in-memory history kept when no repository is
// configured. The oldest finished job is dropped first.
const MaxFinishedJobs = 256

// memoryJobs holds finished jobs for services running without a
// repository, so background results stay readable after the search ends.
type memoryJobs struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	jobs     map[string]domain.CrackingJob
}

var _ port.Repository = (*memoryJobs)(nil)

func newMemoryJobs(capacity int) *memoryJobs {
	return &memoryJobs{
		capacity: capacity,
		jobs:     make(map[string]domain.CrackingJob),
	}
}

func (m *memoryJobs) SaveJob(_ context.Context, job *domain.CrackingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; !exists {
		m.order = append(m.order, job.ID)
	}
	m.jobs[job.ID] = *job

	for len(m.order) > m.capacity {
		delete(m.jobs, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *memoryJobs) GetJob(_ context.Context, jobID string) (*domain.CrackingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrJobNotFound, "job %s", jobID)
	}
	return &job, nil
}

func (m *memoryJobs) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return errors.Wrapf(domain.ErrJobNotFound, "job %s", jobID)
	}
	delete(m.jobs, jobID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == jobID })
	return nil
}

// ListJobs returns matching jobs newest first, with the same paging rules
// as the SQL repository.
func (m *memoryJobs) ListJobs(_ context.Context, filter port.JobFilter) ([]domain.CrackingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var jobs []domain.CrackingJob
	for i := len(m.order) - 1; i >= 0; i-- {
		job := m.jobs[m.order[i]]
		if matches(job, filter) {
			jobs = append(jobs, job)
		}
	}
	sortNewestFirst(jobs)
	return page(jobs, filter.Offset, filter.Limit), nil
}

func (m *memoryJobs) Close() error {
	return nil
}

func matches(job domain.CrackingJob, filter port.JobFilter) bool {
	return (filter.Status == "" || filter.Status == job.Status) &&
		(filter.HashType == "" || filter.HashType == job.HashType)
}

func sortNewestFirst(jobs []domain.CrackingJob) {
	slices.SortStableFunc(jobs, func(a, b domain.CrackingJob) int {
		return b.StartTime.Compare(a.StartTime)
	})
}

// page applies offset then limit. A limit of zero means no limit.
func page(jobs []domain.CrackingJob, offset, limit int) []domain.CrackingJob {
	if offset >= len(jobs) {
		return nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}
