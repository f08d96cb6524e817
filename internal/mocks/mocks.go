package mocks

import (
	"context"

	"digestCracker/internal/core/domain"
	"digestCracker/internal/port"

	"github.com/stretchr/testify/mock"
)

var (
	_ port.Repository  = (*MockRepository)(nil)
	_ port.HashService = (*MockHashService)(nil)
)

type MockRepository struct {
	mock.Mock
}

func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

func (m *MockRepository) SaveJob(ctx context.Context, job *domain.CrackingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRepository) DeleteJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockRepository) GetJob(ctx context.Context, jobID string) (*domain.CrackingJob, error) {
	args := m.Called(ctx, jobID)
	job, _ := args.Get(0).(*domain.CrackingJob)
	return job, args.Error(1)
}

func (m *MockRepository) ListJobs(ctx context.Context, filter port.JobFilter) ([]domain.CrackingJob, error) {
	args := m.Called(ctx, filter)
	jobs, _ := args.Get(0).([]domain.CrackingJob)
	return jobs, args.Error(1)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}

type MockHashService struct {
	mock.Mock
}

func NewMockHashService() *MockHashService {
	return &MockHashService{}
}

func (m *MockHashService) Identify(digest string) (domain.HashType, error) {
	args := m.Called(digest)
	return args.Get(0).(domain.HashType), args.Error(1)
}

func (m *MockHashService) Generate(password string, hashType domain.HashType) (string, error) {
	args := m.Called(password, hashType)
	return args.String(0), args.Error(1)
}

func (m *MockHashService) Verify(password, digest string, hashType domain.HashType) bool {
	return m.Called(password, digest, hashType).Bool(0)
}

func (m *MockHashService) Matcher(digest string, hashType domain.HashType) (func(candidate []byte) bool, error) {
	args := m.Called(digest, hashType)
	match, _ := args.Get(0).(func(candidate []byte) bool)
	return match, args.Error(1)
}
