package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// ErrEmptyCorpus indicates exam generation was requested for a collection
// with no documents. Checked before any job record is created, so a rejected
// request leaves no artifact behind.
var ErrEmptyCorpus = errors.New("no documents in collection")

// ErrInvalidQuestionCount indicates the requested question count is out of
// range.
var ErrInvalidQuestionCount = errors.New("invalid question count")

// maxQuestions bounds one exam. The whole corpus already rides in the
// prompt; an unbounded count only multiplies malformed-output risk.
const maxQuestions = 50

// defaultJobTimeout bounds one background generation run.
const defaultJobTimeout = 10 * time.Minute

// statusWriteTimeout bounds a single job-status write.
const statusWriteTimeout = 10 * time.Second

// Counter reports corpus size; satisfied by *knowledge.Store.
type Counter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// ExamChain generates the exam JSON; satisfied by *chain.Chain.
type ExamChain interface {
	Run(ctx context.Context, req chain.Request) (string, error)
}

// Runner starts exam generation jobs and executes them in the background.
// Wait blocks until all in-flight jobs finish; call it on shutdown.
type Runner struct {
	jobs    *Store
	corpus  Counter
	exam    ExamChain
	timeout time.Duration
	logger  log.Logger

	wg sync.WaitGroup
}

// NewRunner creates a Runner. timeout <= 0 uses the default.
func NewRunner(jobs *Store, corpus Counter, exam ExamChain, timeout time.Duration, logger log.Logger) *Runner {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Runner{
		jobs:    jobs,
		corpus:  corpus,
		exam:    exam,
		timeout: timeout,
		logger:  logger,
	}
}

// StartExam validates the request, creates a pending job, and kicks off
// generation in the background. The returned job carries the ID clients poll.
//
// An empty corpus fails with ErrEmptyCorpus before the job record exists.
func (r *Runner) StartExam(ctx context.Context, collection string, numQuestions int) (*Job, error) {
	if numQuestions < 1 || numQuestions > maxQuestions {
		return nil, fmt.Errorf("%w: must be 1-%d, got %d", ErrInvalidQuestionCount, maxQuestions, numQuestions)
	}

	count, err := r.corpus.Count(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("checking corpus: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCorpus, collection)
	}

	created, err := r.jobs.Create(ctx, collection, numQuestions)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Detached from the request context: the client has its job ID and
		// may disconnect while generation runs.
		runCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.execute(runCtx, created)
	}()

	return created, nil
}

// execute drives one job to a terminal state. Failures land in the job's
// error field; the job never holds a partial result.
func (r *Runner) execute(ctx context.Context, j *Job) {
	if err := r.setStatus(ctx, j.ID, StatusRunning, "", ""); err != nil {
		r.logger.Error("marking job running", "job_id", j.ID, "error", err)
		return
	}

	result, err := r.exam.Run(ctx, chain.Request{
		Collection:   j.Collection,
		NumQuestions: j.NumQuestions,
	})
	if err != nil {
		r.logger.Warn("exam generation failed", "job_id", j.ID, "error", err)
		if updateErr := r.setStatus(ctx, j.ID, StatusError, "", err.Error()); updateErr != nil {
			r.logger.Error("recording job failure", "job_id", j.ID, "error", updateErr)
		}
		return
	}

	if err := r.setStatus(ctx, j.ID, StatusComplete, result, ""); err != nil {
		r.logger.Error("recording job result", "job_id", j.ID, "error", err)
		return
	}
	r.logger.Info("exam job completed", "job_id", j.ID, "collection", j.Collection)
}

// setStatus writes a status transition on a context detached from the
// generation deadline. A run that failed because its deadline expired must
// still be able to record that failure, otherwise the job stays running
// forever and clients poll it indefinitely.
func (r *Runner) setStatus(ctx context.Context, id uuid.UUID, status Status, result, errMsg string) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	return r.jobs.Update(writeCtx, id, status, result, errMsg)
}

// Wait blocks until all in-flight jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
