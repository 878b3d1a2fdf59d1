package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// NormalizeJobStatus folds the job-status endpoint's vocabulary into the
// tracker's four-state model. Unrecognized and intermediate statuses count
// as processing.
func NormalizeJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued":
		return JobPending
	case "completed":
		return JobCompleted
	case "failed", "error":
		return JobFailed
	default:
		return JobProcessing
	}
}

// IngestionJob is one outstanding document-ingestion job.
type IngestionJob struct {
	JobID    string
	FileName string
	Status   JobStatus
	Message  string
}

// JobUpdate is delivered to the UI on every observed status change.
// RefreshDocuments is set once, on completion, so the document list can be
// reloaded.
type JobUpdate struct {
	Job              IngestionJob
	Terminal         bool
	RefreshDocuments bool
}

// IngestAPI is the slice of the platform client the tracker needs.
type IngestAPI interface {
	UploadDocument(ctx context.Context, req UploadRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (JobStatusResponse, error)
}

type jobHandle struct {
	job    IngestionJob
	cancel context.CancelFunc
}

// IngestionJobTracker owns every outstanding ingestion job and polls each on
// its own timer. Jobs are fully independent: each poller is sequential (no
// overlapping polls for one job), individually cancelable, and removed from
// the tracker at terminal status.
type IngestionJobTracker struct {
	api         IngestAPI
	logger      *Logger
	interval    time.Duration
	maxAttempts uint

	mu    sync.Mutex
	jobs  map[string]*jobHandle
	order []string

	updates chan JobUpdate
}

func NewIngestionJobTracker(api IngestAPI, logger *Logger, interval time.Duration, maxAttempts uint) *IngestionJobTracker {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxAttempts == 0 {
		maxAttempts = 60
	}
	return &IngestionJobTracker{
		api:         api,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		jobs:        map[string]*jobHandle{},
		updates:     make(chan JobUpdate, 32),
	}
}

// Updates is the channel the UI pumps for job state changes.
func (t *IngestionJobTracker) Updates() <-chan JobUpdate { return t.updates }

// Jobs snapshots the outstanding jobs in registration order.
func (t *IngestionJobTracker) Jobs() []IngestionJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]IngestionJob, 0, len(t.order))
	for _, id := range t.order {
		if h, ok := t.jobs[id]; ok {
			out = append(out, h.job)
		}
	}
	return out
}

// Register uploads the file, records the job the backend assigned and starts
// an independent poller for it. The ctx only covers the upload; the poller
// runs on its own cancelable context owned by the job handle.
func (t *IngestionJobTracker) Register(ctx context.Context, req UploadRequest) (string, error) {
	jobID, err := t.api.UploadDocument(ctx, req)
	if err != nil {
		return "", err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{
		job: IngestionJob{
			JobID:    jobID,
			FileName: filepath.Base(req.Path),
			Status:   JobPending,
		},
		cancel: cancel,
	}

	t.mu.Lock()
	t.jobs[jobID] = handle
	t.order = append(t.order, jobID)
	t.mu.Unlock()

	go t.poll(pollCtx, jobID)
	return jobID, nil
}

var errJobInProgress = errors.New("ingestion still in progress")

func (t *IngestionJobTracker) poll(ctx context.Context, jobID string) {
	err := retry.Do(
		func() error {
			status, err := t.api.JobStatus(ctx, jobID)
			if err != nil {
				// Endpoint hiccups count against the attempt budget but do
				// not fail the job outright.
				t.logger.Warn("job status poll failed", map[string]interface{}{"job_id": jobID, "err": err.Error()})
				return err
			}
			switch NormalizeJobStatus(status.Status) {
			case JobCompleted:
				t.finish(jobID, JobCompleted, status.Message)
				return nil
			case JobFailed:
				t.finish(jobID, JobFailed, status.Message)
				return nil
			case JobPending:
				t.progress(jobID, JobPending, status.Message)
				return errJobInProgress
			default:
				t.progress(jobID, JobProcessing, status.Message)
				return errJobInProgress
			}
		},
		retry.Context(ctx),
		retry.Attempts(t.maxAttempts),
		retry.Delay(t.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		// Canceled: the handle is already being dropped, stay silent.
		return
	}
	t.finish(jobID, JobFailed, "ingestion timed out")
}

// progress updates a live job in place. A poll result landing after the job
// was removed is a no-op.
func (t *IngestionJobTracker) progress(jobID string, status JobStatus, message string) {
	t.mu.Lock()
	handle, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	changed := handle.job.Status != status
	handle.job.Status = status
	handle.job.Message = message
	job := handle.job
	t.mu.Unlock()

	if changed {
		t.notify(JobUpdate{Job: job})
	}
}

// finish marks the terminal status, removes the job from the tracker and
// emits exactly one terminal update.
func (t *IngestionJobTracker) finish(jobID string, status JobStatus, message string) {
	t.mu.Lock()
	handle, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.jobs, jobID)
	handle.job.Status = status
	handle.job.Message = message
	job := handle.job
	t.mu.Unlock()

	handle.cancel()
	t.notify(JobUpdate{
		Job:              job,
		Terminal:         true,
		RefreshDocuments: status == JobCompleted,
	})
}

func (t *IngestionJobTracker) notify(update JobUpdate) {
	select {
	case t.updates <- update:
	default:
		// UI stopped pumping; dropping beats blocking a poller forever.
		t.logger.Warn("dropping job update", map[string]interface{}{"job_id": update.Job.JobID})
	}
}

// Cancel stops one job's poller and removes it. Unknown IDs are a no-op.
func (t *IngestionJobTracker) Cancel(jobID string) {
	t.mu.Lock()
	handle, ok := t.jobs[jobID]
	if ok {
		delete(t.jobs, jobID)
	}
	t.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// Close cancels every outstanding poller. Safe to call on shutdown
// regardless of how many jobs are live.
func (t *IngestionJobTracker) Close() {
	t.mu.Lock()
	handles := make([]*jobHandle, 0, len(t.jobs))
	for id, h := range t.jobs {
		handles = append(handles, h)
		delete(t.jobs, id)
	}
	t.order = nil
	t.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}
