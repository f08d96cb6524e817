package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"digestCracker/internal/core/domain"
	"digestCracker/internal/core/hashing"
	"digestCracker/internal/mocks"
	"digestCracker/internal/pkg/metrics"
	"digestCracker/internal/port"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// unmatchedMD5 is not the digest of any 5-letter lowercase candidate.
const unmatchedMD5 = "0123456789abcdef0123456789abcdef"

// savedJobs records every job handed to SaveJob.
type savedJobs struct {
	mu   sync.Mutex
	jobs []domain.CrackingJob
}

func (s *savedJobs) capture(repo *mocks.MockRepository) {
	repo.On("SaveJob", mock.Anything, mock.AnythingOfType("*domain.CrackingJob")).
		Run(func(args mock.Arguments) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.jobs = append(s.jobs, *args.Get(1).(*domain.CrackingJob))
		}).
		Return(nil)
}

func (s *savedJobs) all() []domain.CrackingJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CrackingJob(nil), s.jobs...)
}

func TestCrack(t *testing.T) {
	sha, err := hashing.Compute("bad", domain.HashSHA256)
	require.NoError(t, err)

	tests := []struct {
		name       string
		hash       string
		settings   domain.CrackingSettings
		wantFound  bool
		wantPass   string
		wantStatus domain.JobStatus
		wantErr    error
	}{
		{
			name:       "sequential_default_space",
			hash:       abcdeMD5,
			wantFound:  true,
			wantPass:   "abcde",
			wantStatus: domain.StatusSucceeded,
		},
		{
			name:       "surrounding_whitespace_and_upper_case",
			hash:       "  AB56B4D92B40713ACC5AF89985D4B786\n",
			wantFound:  true,
			wantPass:   "abcde",
			wantStatus: domain.StatusSucceeded,
		},
		{
			name:       "parallel_small_space_sha256",
			hash:       sha,
			settings:   domain.CrackingSettings{Mode: domain.ModeParallel, Threads: 3, CharacterSet: "abcd", Length: 3},
			wantFound:  true,
			wantPass:   "bad",
			wantStatus: domain.StatusSucceeded,
		},
		{
			name:       "exhausted_small_space",
			hash:       abcdeMD5,
			settings:   domain.CrackingSettings{Mode: domain.ModeParallel, Threads: 2, CharacterSet: "xyz", Length: 4},
			wantStatus: domain.StatusExhausted,
		},
		{
			name:    "digest_of_wrong_length",
			hash:    "0123456789",
			wantErr: domain.ErrInvalidDigestFormat,
		},
		{
			name:     "negative_worker_count",
			hash:     abcdeMD5,
			settings: domain.CrackingSettings{Mode: domain.ModeParallel, Threads: -1},
			wantErr:  domain.ErrInvalidWorkerCount,
		},
		{
			name:     "unknown_mode",
			hash:     abcdeMD5,
			settings: domain.CrackingSettings{Mode: "distributed"},
			wantErr:  domain.ErrInvalidMode,
		},
		{
			name:     "unknown_policy",
			hash:     abcdeMD5,
			settings: domain.CrackingSettings{Policy: "WHENEVER"},
			wantErr:  domain.ErrInvalidPolicy,
		},
		{
			name:     "alphabet_not_ordered",
			hash:     abcdeMD5,
			settings: domain.CrackingSettings{CharacterSet: "cba", Length: 2},
			wantErr:  domain.ErrInvalidSearchSpace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockRepository()
			saved := &savedJobs{}
			saved.capture(repo)

			svc := NewCrackingService(repo, hashing.NewService())
			result, err := svc.Crack(context.Background(), tt.hash, tt.settings)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, result)
				repo.AssertNotCalled(t, "SaveJob", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result.Found)
			assert.Equal(t, tt.wantPass, result.Password)
			assert.Greater(t, result.Seconds, 0.0)
			assert.NotEmpty(t, result.JobID)

			jobs := saved.all()
			require.Len(t, jobs, 1)
			assert.Equal(t, tt.wantStatus, jobs[0].Status)
			assert.Equal(t, result.JobID, jobs[0].ID)
			assert.Equal(t, result.AttemptsUsed, jobs[0].AttemptCount)
			assert.False(t, jobs[0].EndTime.Before(jobs[0].StartTime))
		})
	}
}

func TestCrack_SequentialIgnoresThreads(t *testing.T) {
	svc := NewCrackingService(nil, hashing.NewService())
	result, err := svc.Crack(context.Background(), abcdeMD5, domain.CrackingSettings{Threads: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Workers)
	assert.Equal(t, domain.ModeSequential, result.Mode)
}

func TestCrack_DefaultsApply(t *testing.T) {
	digest, err := hashing.Compute("ba", domain.HashMD5)
	require.NoError(t, err)

	svc := NewCrackingService(nil, hashing.NewService(), WithDefaults(domain.CrackingSettings{
		Mode:         domain.ModeParallel,
		Threads:      3,
		CharacterSet: "ab",
		Length:       2,
	}))
	result, err := svc.Crack(context.Background(), digest, domain.CrackingSettings{})
	require.NoError(t, err)
	assert.Equal(t, "ba", result.Password)
	assert.Equal(t, 3, result.Workers)
	assert.Equal(t, int64(4), result.AttemptsUsed)
}

func TestCrack_IdentifyFailureStopsBeforeSearch(t *testing.T) {
	hash := mocks.NewMockHashService()
	hash.On("Identify", "nope").Return(domain.HashType(""), domain.ErrInvalidDigestFormat)

	svc := NewCrackingService(nil, hash)
	_, err := svc.Crack(context.Background(), "nope", domain.CrackingSettings{})
	assert.True(t, errors.Is(err, domain.ErrInvalidDigestFormat))
	hash.AssertNotCalled(t, "Matcher", mock.Anything, mock.Anything)
}

func TestCrack_SaveFailureDoesNotFailRun(t *testing.T) {
	repo := mocks.NewMockRepository()
	repo.On("SaveJob", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewCrackingService(repo, hashing.NewService())
	result, err := svc.Crack(context.Background(), abcdeMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	assert.True(t, result.Found)
	repo.AssertExpectations(t)
}

func TestCrack_ReportsAndExportsMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	reporter, err := metrics.NewReporter(path)
	require.NoError(t, err)
	prom := metrics.NewPrometheus()

	svc := NewCrackingService(nil, hashing.NewService(), WithReporter(reporter), WithPrometheus(prom))
	_, err = svc.Crack(context.Background(), abcdeMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"foundPassword":"abcde"`)

	count, err := testutil.GatherAndCount(prom.Registry, "digestcracker_searches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStartCracking_StopCancelsJob(t *testing.T) {
	repo := mocks.NewMockRepository()
	saved := &savedJobs{}
	saved.capture(repo)

	svc := NewCrackingService(repo, hashing.NewService())
	ctx := context.Background()

	job, err := svc.StartCracking(ctx, unmatchedMD5, domain.CrackingSettings{Mode: domain.ModeParallel, Threads: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, job.Status)

	running, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, running.Status)

	progress, err := svc.GetProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, progress.JobID)

	require.NoError(t, svc.StopCracking(ctx, job.ID))
	svc.Wait()

	jobs := saved.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.StatusCancelled, jobs[0].Status)
	assert.Empty(t, jobs[0].FoundPassword)
	assert.Less(t, jobs[0].Progress, 100.0)

	// finished jobs are served from the repository
	repo.On("GetJob", mock.Anything, job.ID).Return(&jobs[0], nil)
	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestStartCracking_RunsToResult(t *testing.T) {
	repo := mocks.NewMockRepository()
	saved := &savedJobs{}
	saved.capture(repo)

	svc := NewCrackingService(repo, hashing.NewService())
	job, err := svc.StartCracking(context.Background(), abcdeMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	svc.Wait()

	jobs := saved.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.Equal(t, domain.StatusSucceeded, jobs[0].Status)
	assert.Equal(t, "abcde", jobs[0].FoundPassword)
}

func TestStartCracking_OutlivesCallerContext(t *testing.T) {
	svc := NewCrackingService(nil, hashing.NewService())
	ctx, cancel := context.WithCancel(context.Background())

	job, err := svc.StartCracking(ctx, unmatchedMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	cancel()

	time.Sleep(20 * time.Millisecond)
	current, err := svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, current.Status)

	require.NoError(t, svc.Close())
}

func TestStopCracking_UnknownJob(t *testing.T) {
	svc := NewCrackingService(nil, hashing.NewService())
	err := svc.StopCracking(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))

	_, err = svc.GetJob(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestListJobs_RunningThenStored(t *testing.T) {
	repo := mocks.NewMockRepository()
	repo.On("SaveJob", mock.Anything, mock.Anything).Return(nil)
	stored := []domain.CrackingJob{{ID: "old", Status: domain.StatusSucceeded, HashType: domain.HashMD5}}
	repo.On("ListJobs", mock.Anything, port.JobFilter{}).Return(stored, nil)
	repo.On("ListJobs", mock.Anything, port.JobFilter{Status: domain.StatusSucceeded}).Return(stored, nil)

	svc := NewCrackingService(repo, hashing.NewService())
	job, err := svc.StartCracking(context.Background(), unmatchedMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	defer svc.Close()

	jobs, err := svc.ListJobs(context.Background(), port.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.Equal(t, "old", jobs[1].ID)

	jobs, err = svc.ListJobs(context.Background(), port.JobFilter{Status: domain.StatusRunning})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	jobs, err = svc.ListJobs(context.Background(), port.JobFilter{Status: domain.StatusSucceeded})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "old", jobs[0].ID)
}

func TestListJobs_PagesCombinedList(t *testing.T) {
	repo := mocks.NewMockRepository()
	repo.On("SaveJob", mock.Anything, mock.Anything).Return(nil)
	stored := []domain.CrackingJob{{ID: "old", Status: domain.StatusSucceeded, HashType: domain.HashMD5}}
	repo.On("ListJobs", mock.Anything, port.JobFilter{Limit: 1}).Return(stored, nil)
	repo.On("ListJobs", mock.Anything, port.JobFilter{}).Return(stored, nil)
	repo.On("ListJobs", mock.Anything, port.JobFilter{Limit: 2}).Return(stored, nil)

	svc := NewCrackingService(repo, hashing.NewService())
	running, err := svc.StartCracking(context.Background(), unmatchedMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	defer svc.Close()

	tests := []struct {
		name    string
		filter  port.JobFilter
		wantIDs []string
	}{
		{"limit", port.JobFilter{Limit: 1}, []string{running.ID}},
		{"offset", port.JobFilter{Offset: 1}, []string{"old"}},
		{"limit_and_offset", port.JobFilter{Limit: 1, Offset: 1}, []string{"old"}},
		{"offset_past_end", port.JobFilter{Offset: 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := svc.ListJobs(context.Background(), tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, j := range jobs {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFinishedJobsWithoutRepository(t *testing.T) {
	digest, err := hashing.Compute("cab", domain.HashMD5)
	require.NoError(t, err)

	svc := NewCrackingService(nil, hashing.NewService())
	ctx := context.Background()

	job, err := svc.StartCracking(ctx, digest, domain.CrackingSettings{CharacterSet: "abc", Length: 3})
	require.NoError(t, err)
	svc.Wait()

	finished, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, finished.Status)
	assert.Equal(t, "cab", finished.FoundPassword)

	progress, err := svc.GetProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusSucceeded), progress.Status)

	jobs, err := svc.ListJobs(ctx, port.JobFilter{Status: domain.StatusSucceeded})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	// a finished job can no longer be stopped
	assert.True(t, errors.Is(svc.StopCracking(ctx, job.ID), domain.ErrJobNotFound))

	require.NoError(t, svc.DeleteJob(ctx, job.ID))
	_, err = svc.GetJob(ctx, job.ID)
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
	assert.True(t, errors.Is(svc.DeleteJob(ctx, job.ID), domain.ErrJobNotFound))
}

func TestDeleteJob(t *testing.T) {
	repo := mocks.NewMockRepository()
	repo.On("SaveJob", mock.Anything, mock.Anything).Return(nil)
	repo.On("DeleteJob", mock.Anything, "old").Return(nil)

	svc := NewCrackingService(repo, hashing.NewService())
	ctx := context.Background()

	running, err := svc.StartCracking(ctx, unmatchedMD5, domain.CrackingSettings{})
	require.NoError(t, err)
	defer svc.Close()

	err = svc.DeleteJob(ctx, running.ID)
	assert.True(t, errors.Is(err, domain.ErrJobRunning))
	repo.AssertNotCalled(t, "DeleteJob", mock.Anything, running.ID)

	require.NoError(t, svc.DeleteJob(ctx, "old"))
	repo.AssertCalled(t, "DeleteJob", mock.Anything, "old")
}
