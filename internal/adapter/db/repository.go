package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"digestCracker/internal/core/domain"
	"digestCracker/internal/port"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Times are stored as unix nanoseconds so the same schema works on both
// drivers without parseTime handling.
const createJobsTable = `
CREATE TABLE IF NOT EXISTS cracking_jobs (
    id               VARCHAR(64)  NOT NULL PRIMARY KEY,
    target_hash      VARCHAR(64)  NOT NULL,
    hash_type        VARCHAR(16)  NOT NULL,
    status           VARCHAR(16)  NOT NULL,
    start_time       BIGINT       NOT NULL,
    end_time         BIGINT       NOT NULL,
    found_password   VARCHAR(255) NOT NULL,
    progress         DOUBLE       NOT NULL,
    algorithm        VARCHAR(32)  NOT NULL,
    settings         TEXT         NOT NULL,
    resource_metrics TEXT         NOT NULL,
    attempt_count    BIGINT       NOT NULL,
    error_message    TEXT         NOT NULL
)`

const jobColumns = `
    id, target_hash, hash_type, status, start_time, end_time,
    found_password, progress, algorithm, settings, resource_metrics,
    attempt_count, error_message`

type sqlRepository struct {
	db     *sql.DB
	driver string
}

// NewSQLRepository opens the run history store and creates its table.
// driver is either DriverSQLite or DriverMySQL.
func NewSQLRepository(ctx context.Context, driver, dsn string) (port.Repository, error) {
	if driver != DriverSQLite && driver != DriverMySQL {
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	if driver == DriverSQLite {
		// a single connection keeps :memory: databases and writers consistent
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connect to %s database", driver)
	}
	if _, err := db.ExecContext(ctx, createJobsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create cracking_jobs table")
	}

	return &sqlRepository{db: db, driver: driver}, nil
}

// SaveJob inserts the job or replaces a stored job with the same id.
func (r *sqlRepository) SaveJob(ctx context.Context, job *domain.CrackingJob) error {
	query := `REPLACE INTO cracking_jobs (` + jobColumns + `
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}
	resources, err := json.Marshal(job.ResourceMetrics)
	if err != nil {
		return errors.Wrap(err, "marshal resource metrics")
	}

	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.TargetHash,
		string(job.HashType),
		string(job.Status),
		unixNano(job.StartTime),
		unixNano(job.EndTime),
		job.FoundPassword,
		job.Progress,
		string(job.Algorithm),
		string(settings),
		string(resources),
		job.AttemptCount,
		job.ErrorMessage,
	)
	return errors.Wrapf(err, "save job %s", job.ID)
}

func (r *sqlRepository) GetJob(ctx context.Context, jobID string) (*domain.CrackingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cracking_jobs WHERE id = ?`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrJobNotFound, "job %s", jobID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", jobID)
	}
	return job, nil
}

func (r *sqlRepository) DeleteJob(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cracking_jobs WHERE id = ?`, jobID)
	if err != nil {
		return errors.Wrapf(err, "delete job %s", jobID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(domain.ErrJobNotFound, "job %s", jobID)
	}
	return nil
}

// ListJobs returns stored jobs, newest first.
func (r *sqlRepository) ListJobs(ctx context.Context, filter port.JobFilter) ([]domain.CrackingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cracking_jobs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if filter.HashType != "" {
		query += " AND hash_type = ?"
		args = append(args, string(filter.HashType))
	}

	query += " ORDER BY start_time DESC"

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := int64(filter.Limit)
		if limit <= 0 {
			limit = math.MaxInt64
		}
		query += " LIMIT ?"
		args = append(args, limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var jobs []domain.CrackingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		jobs = append(jobs, *job)
	}

	return jobs, errors.Wrap(rows.Err(), "list jobs")
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.CrackingJob, error) {
	var (
		job                 domain.CrackingJob
		start, end          int64
		settings, resources string
	)
	err := row.Scan(
		&job.ID,
		&job.TargetHash,
		&job.HashType,
		&job.Status,
		&start,
		&end,
		&job.FoundPassword,
		&job.Progress,
		&job.Algorithm,
		&settings,
		&resources,
		&job.AttemptCount,
		&job.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	job.StartTime = fromUnixNano(start)
	job.EndTime = fromUnixNano(end)
	if err := json.Unmarshal([]byte(settings), &job.Settings); err != nil {
		return nil, errors.Wrap(err, "unmarshal settings")
	}
	if err := json.Unmarshal([]byte(resources), &job.ResourceMetrics); err != nil {
		return nil, errors.Wrap(err, "unmarshal resource metrics")
	}
	return &job, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
