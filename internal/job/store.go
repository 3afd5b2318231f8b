// Package job tracks exam generation jobs. Generation runs off the request
// path; clients hold a job ID and poll until the result or error lands.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sturdystudy/sturdy/internal/log"
)

// ErrNotFound indicates no job exists with the given ID.
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Job is one exam generation request and its outcome. Result holds the exam
// JSON once complete; Error holds the failure message once errored. A failed
// job never carries a partial result.
type Job struct {
	ID           uuid.UUID `json:"id"`
	Collection   string    `json:"collection"`
	NumQuestions int       `json:"num_questions"`
	Status       Status    `json:"status"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Querier defines the database operations Store needs.
type Querier interface {
	InsertJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, status Status, result, errMsg string) error
}

// Store persists jobs.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates a Store. logger may be nil for tests.
func NewStore(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{queries: querier, logger: logger}
}

// Create persists a new pending job for a collection.
func (s *Store) Create(ctx context.Context, collection string, numQuestions int) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:           uuid.New(),
		Collection:   collection,
		NumQuestions: numQuestions,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.queries.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.logger.Debug("created job", "job_id", job.ID, "collection", collection)
	return job, nil
}

// Get loads a job by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := s.queries.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return job, nil
}

// Update transitions a job's status, recording the result or error message.
func (s *Store) Update(ctx context.Context, id uuid.UUID, status Status, result, errMsg string) error {
	if err := s.queries.UpdateJob(ctx, id, status, result, errMsg); err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return nil
}

// PGQuerier implements Querier on a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a pool in a Querier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) InsertJob(ctx context.Context, job *Job) error {
	const stmt = `
		INSERT INTO exam_jobs (id, collection, num_questions, status, result, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::jsonb, $6, $7, $8)`
	_, err := q.pool.Exec(ctx, stmt,
		job.ID, job.Collection, job.NumQuestions, string(job.Status),
		job.Result, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

func (q *PGQuerier) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	const stmt = `
		SELECT id, collection, num_questions, status, COALESCE(result::text, ''), error, created_at, updated_at
		FROM exam_jobs
		WHERE id = $1`
	var job Job
	var status string
	err := q.pool.QueryRow(ctx, stmt, id).Scan(
		&job.ID, &job.Collection, &job.NumQuestions, &status,
		&job.Result, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("selecting job: %w", err)
	}
	job.Status = Status(status)
	return &job, nil
}

func (q *PGQuerier) UpdateJob(ctx context.Context, id uuid.UUID, status Status, result, errMsg string) error {
	const stmt = `
		UPDATE exam_jobs
		SET status = $2, result = NULLIF($3, '')::jsonb, error = $4, updated_at = now()
		WHERE id = $1`
	tag, err := q.pool.Exec(ctx, stmt, id, string(status), result, errMsg)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
