package port

import (
	"context"

	"digestCracker/internal/core/domain"
)

type CrackingService interface {
	Crack(ctx context.Context, hash string, settings domain.CrackingSettings) (*domain.CrackResult, error)
	StartCracking(ctx context.Context, hash string, settings domain.CrackingSettings) (*domain.CrackingJob, error)
	StopCracking(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (*domain.CrackingJob, error)
	GetProgress(ctx context.Context, jobID string) (*domain.JobProgress, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.CrackingJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// Repository stores finished runs. Running jobs are never persisted.
type Repository interface {
	SaveJob(ctx context.Context, job *domain.CrackingJob) error
	DeleteJob(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (*domain.CrackingJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.CrackingJob, error)
	Close() error
}

type HashService interface {
	Identify(digest string) (domain.HashType, error)
	Generate(password string, hashType domain.HashType) (string, error)
	Verify(password, digest string, hashType domain.HashType) bool
	Matcher(digest string, hashType domain.HashType) (func(candidate []byte) bool, error)
}

// JobFilter selects jobs by status and hash type. Offset and Limit page the
// result; a zero Limit means no limit.
type JobFilter struct {
	Status   domain.JobStatus
	HashType domain.HashType
	Limit    int
	Offset   int
}
