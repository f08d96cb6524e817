package service

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"digestCracker/internal/core/algorithm"
	"digestCracker/internal/core/domain"
	"digestCracker/internal/pkg/logging"
	"digestCracker/internal/pkg/metrics"
	"digestCracker/internal/port"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	MetricsUpdateInterval = time.Second
	ReportCategory        = "runs"
)

var _ port.CrackingService = (*CrackingService)(nil)

type CrackingService struct {
	repo        port.Repository
	finished    *memoryJobs
	hashService port.HashService
	defaults    domain.CrackingSettings
	activeJobs  sync.Map
	metrics     *metrics.Collector
	reporter    *metrics.Reporter
	prom        *metrics.Prometheus
	wg          sync.WaitGroup
}

type activeJob struct {
	mu          sync.RWMutex
	job         *domain.CrackingJob
	coordinator *Coordinator
	cancel      context.CancelFunc
}

type Option func(*CrackingService)

// WithDefaults fills settings a caller leaves empty.
func WithDefaults(settings domain.CrackingSettings) Option {
	return func(s *CrackingService) {
		s.defaults = settings
	}
}

func WithReporter(reporter *metrics.Reporter) Option {
	return func(s *CrackingService) {
		s.reporter = reporter
	}
}

func WithPrometheus(prom *metrics.Prometheus) Option {
	return func(s *CrackingService) {
		s.prom = prom
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(s *CrackingService) {
		s.metrics = collector
	}
}

// NewCrackingService builds the session driver. repo may be nil, in which
// case the most recent MaxFinishedJobs finished runs are kept in memory.
func NewCrackingService(repo port.Repository, hashService port.HashService, opts ...Option) *CrackingService {
	s := &CrackingService{
		repo:        repo,
		finished:    newMemoryJobs(MaxFinishedJobs),
		hashService: hashService,
		metrics:     metrics.NewCollector(MetricsUpdateInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crack runs a search to its end and reports the outcome. An invalid digest
// fails before any job exists.
func (s *CrackingService) Crack(ctx context.Context, hash string, settings domain.CrackingSettings) (*domain.CrackResult, error) {
	aj, err := s.prepare(hash, settings)
	if err != nil {
		return nil, err
	}
	s.activeJobs.Store(aj.job.ID, aj)
	return s.run(ctx, aj)
}

// StartCracking starts a search in the background and returns the running
// job. The search outlives ctx; use StopCracking to cancel it.
func (s *CrackingService) StartCracking(ctx context.Context, hash string, settings domain.CrackingSettings) (*domain.CrackingJob, error) {
	aj, err := s.prepare(hash, settings)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	aj.cancel = cancel
	s.activeJobs.Store(aj.job.ID, aj)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if _, err := s.run(jobCtx, aj); err != nil {
			logging.Warnf("job %s ended with error: %v", aj.job.ID, err)
		}
	}()

	return aj.snapshot(), nil
}

func (s *CrackingService) prepare(hash string, settings domain.CrackingSettings) (*activeJob, error) {
	hash = strings.TrimSpace(hash)
	hashType, err := s.hashService.Identify(hash)
	if err != nil {
		return nil, err
	}

	settings, space, err := s.normalize(settings)
	if err != nil {
		return nil, err
	}

	job := &domain.CrackingJob{
		ID:         uuid.NewString(),
		TargetHash: hash,
		HashType:   hashType,
		Status:     domain.StatusRunning,
		StartTime:  time.Now(),
		Algorithm:  domain.AlgoBruteForce,
		Settings:   settings,
	}

	return &activeJob{
		job:         job,
		coordinator: NewCoordinator(s.hashService, WithSpace(space), WithPolicy(settings.Policy)),
	}, nil
}

func (s *CrackingService) normalize(settings domain.CrackingSettings) (domain.CrackingSettings, algorithm.Space, error) {
	if settings.Mode == "" {
		settings.Mode = s.defaults.Mode
	}
	if settings.Mode == "" {
		settings.Mode = domain.ModeSequential
	}
	mode, err := domain.ParseSearchMode(string(settings.Mode))
	if err != nil {
		return settings, algorithm.Space{}, errors.Wrapf(err, "mode %q", settings.Mode)
	}
	settings.Mode = mode

	if settings.Policy == "" {
		settings.Policy = s.defaults.Policy
	}
	policy, err := domain.ParseCompletionPolicy(string(settings.Policy))
	if err != nil {
		return settings, algorithm.Space{}, errors.Wrapf(err, "policy %q", settings.Policy)
	}
	settings.Policy = policy

	switch mode {
	case domain.ModeSequential:
		settings.Threads = 1
	case domain.ModeParallel:
		if settings.Threads == 0 {
			settings.Threads = s.defaults.Threads
		}
		if settings.Threads == 0 {
			settings.Threads = runtime.NumCPU()
		}
		if settings.Threads < 1 {
			return settings, algorithm.Space{}, errors.Wrapf(domain.ErrInvalidWorkerCount, "%d workers", settings.Threads)
		}
	}

	if settings.CharacterSet == "" {
		settings.CharacterSet = s.defaults.CharacterSet
	}
	if settings.Length == 0 {
		settings.Length = s.defaults.Length
	}
	space, err := algorithm.NewSpace(settings.CharacterSet, settings.Length)
	if err != nil {
		return settings, algorithm.Space{}, err
	}
	settings.CharacterSet = space.Alphabet
	settings.Length = space.Length

	return settings, space, nil
}

func (s *CrackingService) run(ctx context.Context, aj *activeJob) (*domain.CrackResult, error) {
	job := aj.job
	coord := aj.coordinator
	log := logging.With("job", job.ID)
	log.Infof("cracking %s digest %s (%s, %d workers)", job.HashType, job.TargetHash, job.Settings.Mode, job.Settings.Threads)

	s.metrics.StartCollection(job.ID, func() (int64, int) {
		return coord.Attempts(), coord.ActiveWorkers()
	})
	if s.prom != nil {
		s.prom.SearchStarted()
	}

	var outcome domain.SearchOutcome
	var searchErr error
	perf := metrics.CapturePerformance(func() {
		switch job.Settings.Mode {
		case domain.ModeParallel:
			outcome, searchErr = coord.SearchParallel(ctx, job.TargetHash, job.HashType, job.Settings.Threads)
		default:
			outcome, searchErr = coord.SearchSequential(ctx, job.TargetHash, job.HashType)
		}
	})
	log.Debugf("search allocated %d bytes over %d GC cycles", perf.MemoryUsage, perf.GCCycles)

	result := s.finalize(ctx, aj, outcome, searchErr, perf.Duration)
	return result, searchErr
}

func (s *CrackingService) finalize(
	ctx context.Context,
	aj *activeJob,
	outcome domain.SearchOutcome,
	searchErr error,
	elapsed time.Duration,
) *domain.CrackResult {
	coord := aj.coordinator
	attempts := coord.Attempts()

	aj.mu.Lock()
	job := aj.job
	switch {
	case searchErr != nil && isCancellation(searchErr):
		job.Status = domain.StatusCancelled
		job.ErrorMessage = searchErr.Error()
	case searchErr != nil:
		job.Status = domain.StatusFailed
		job.ErrorMessage = searchErr.Error()
	case outcome.Found:
		job.Status = domain.StatusSucceeded
		job.FoundPassword = outcome.Password
	default:
		job.Status = domain.StatusExhausted
	}
	job.EndTime = job.StartTime.Add(elapsed)
	job.AttemptCount = attempts
	job.Progress = progressOf(attempts, coord.Space())
	if final := s.metrics.StopCollection(job.ID); final != nil {
		job.ResourceMetrics = *final
	}
	job.ResourceMetrics.TotalAttempts = attempts
	if secs := elapsed.Seconds(); secs > 0 {
		job.ResourceMetrics.AttemptsPerSec = int64(float64(attempts) / secs)
	}
	saved := *job
	aj.mu.Unlock()

	if err := s.store().SaveJob(context.WithoutCancel(ctx), &saved); err != nil {
		logging.Errorf("failed to save job %s: %v", saved.ID, err)
	}
	if s.reporter != nil {
		s.reporter.Record(ReportCategory, saved)
		if err := s.reporter.Flush(); err != nil {
			logging.Errorf("failed to flush report: %v", err)
		}
	}
	if s.prom != nil {
		s.prom.SearchFinished(string(saved.Settings.Mode), string(saved.HashType), outcomeLabel(saved.Status), attempts, elapsed)
	}
	s.activeJobs.Delete(saved.ID)

	if outcome.Found {
		logging.Infof("found password '%s' for hash %s in %.2f seconds", outcome.Password, saved.TargetHash, elapsed.Seconds())
	} else if searchErr == nil {
		logging.Infof("password for hash %s not found", saved.TargetHash)
	}

	return &domain.CrackResult{
		JobID:        saved.ID,
		Hash:         saved.TargetHash,
		HashType:     saved.HashType,
		Password:     saved.FoundPassword,
		Found:        outcome.Found && searchErr == nil,
		TimeTaken:    elapsed,
		Seconds:      elapsed.Seconds(),
		AttemptsUsed: attempts,
		Algorithm:    saved.Algorithm,
		Mode:         saved.Settings.Mode,
		Workers:      saved.Settings.Threads,
	}
}

func (s *CrackingService) GetJob(ctx context.Context, jobID string) (*domain.CrackingJob, error) {
	if v, ok := s.activeJobs.Load(jobID); ok {
		job := v.(*activeJob).snapshot()
		if sampled := s.metrics.GetMetrics(jobID); sampled != nil && job.Status == domain.StatusRunning {
			job.ResourceMetrics.CPUUsage = sampled.CPUUsage
			job.ResourceMetrics.SystemMemoryPercent = sampled.SystemMemoryPercent
			job.ResourceMetrics.MemoryUsageMB = sampled.MemoryUsageMB
			job.ResourceMetrics.LastUpdated = sampled.LastUpdated
		}
		return job, nil
	}
	return s.store().GetJob(ctx, jobID)
}

func (s *CrackingService) GetProgress(ctx context.Context, jobID string) (*domain.JobProgress, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &domain.JobProgress{
		JobID:         job.ID,
		Status:        string(job.Status),
		Progress:      job.Progress,
		Speed:         job.ResourceMetrics.AttemptsPerSec,
		ActiveThreads: job.ResourceMetrics.ActiveThreads,
	}, nil
}

func (s *CrackingService) StopCracking(ctx context.Context, jobID string) error {
	v, exists := s.activeJobs.Load(jobID)
	if !exists {
		return errors.Wrapf(domain.ErrJobNotFound, "no running job %s", jobID)
	}
	aj := v.(*activeJob)
	if aj.cancel == nil {
		return errors.Wrapf(domain.ErrJobNotFound, "job %s is not a background job", jobID)
	}
	aj.cancel()
	return nil
}

// ListJobs returns running jobs, newest first, followed by finished ones.
// Offset and Limit apply to the combined list.
func (s *CrackingService) ListJobs(ctx context.Context, filter port.JobFilter) ([]domain.CrackingJob, error) {
	var jobs []domain.CrackingJob
	if filter.Status == "" || filter.Status == domain.StatusRunning {
		s.activeJobs.Range(func(_, v any) bool {
			job := v.(*activeJob).snapshot()
			if job.Status == domain.StatusRunning && matches(*job, filter) {
				jobs = append(jobs, *job)
			}
			return true
		})
		sortNewestFirst(jobs)
	}

	if filter.Status != domain.StatusRunning {
		// the first Offset+Limit finished jobs are enough to fill the page
		finishedFilter := filter
		finishedFilter.Offset = 0
		if filter.Limit > 0 {
			finishedFilter.Limit = filter.Limit + filter.Offset
		}
		finished, err := s.store().ListJobs(ctx, finishedFilter)
		if err != nil {
			return nil, errors.Wrap(err, "list stored jobs")
		}
		jobs = append(jobs, finished...)
	}

	return page(jobs, filter.Offset, filter.Limit), nil
}

// DeleteJob removes a finished job. Running jobs must be stopped first.
func (s *CrackingService) DeleteJob(ctx context.Context, jobID string) error {
	if _, running := s.activeJobs.Load(jobID); running {
		return errors.Wrapf(domain.ErrJobRunning, "job %s", jobID)
	}
	return s.store().DeleteJob(ctx, jobID)
}

// store is where finished jobs go: the repository when configured,
// otherwise the bounded in-memory history.
func (s *CrackingService) store() port.Repository {
	if s.repo != nil {
		return s.repo
	}
	return s.finished
}

// Wait blocks until every background job has finished.
func (s *CrackingService) Wait() {
	s.wg.Wait()
}

// Close cancels background jobs, waits for them and flushes the report.
func (s *CrackingService) Close() error {
	s.activeJobs.Range(func(_, v any) bool {
		if aj := v.(*activeJob); aj.cancel != nil {
			aj.cancel()
		}
		return true
	})
	s.wg.Wait()
	if s.reporter != nil {
		return s.reporter.Close()
	}
	return nil
}

func (aj *activeJob) snapshot() *domain.CrackingJob {
	aj.mu.RLock()
	job := *aj.job
	aj.mu.RUnlock()

	if job.Status == domain.StatusRunning {
		attempts := aj.coordinator.Attempts()
		job.AttemptCount = attempts
		job.Progress = progressOf(attempts, aj.coordinator.Space())
		job.ResourceMetrics.TotalAttempts = attempts
		job.ResourceMetrics.ActiveThreads = aj.coordinator.ActiveWorkers()
		if secs := time.Since(job.StartTime).Seconds(); secs > 0 {
			job.ResourceMetrics.AttemptsPerSec = int64(float64(attempts) / secs)
		}
	}
	return &job
}

func progressOf(attempts int64, space algorithm.Space) float64 {
	if space.Size() == 0 {
		return 0
	}
	return float64(attempts) / float64(space.Size()) * 100
}

func outcomeLabel(status domain.JobStatus) string {
	return strings.ToLower(string(status))
}
