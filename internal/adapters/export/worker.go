package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"surveyscope/internal/blob/core"
	"surveyscope/internal/metrics"
	"surveyscope/internal/survey"
)

// JobStatus describes the lifecycle stage of an export job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Artifact captures one stored rendering of a job's result set.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job tracks an export request and its artifacts.
type Job struct {
	ID          string        `json:"id"`
	Filter      survey.Filter `json:"filter"`
	Formats     []Format      `json:"formats"`
	Status      JobStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
	Artifacts   []Artifact    `json:"artifacts,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Input is an enqueue request.
type Input struct {
	Filter  survey.Filter
	Formats []Format
}

// Scheduler queues export jobs and exposes their status.
type Scheduler interface {
	Enqueue(ctx context.Context, input Input) (Job, error)
	Get(id string) (Job, bool)
}

// Worker renders export jobs in the background and stores the artifacts in a
// blob store. Suppression applies to job results exactly as it does to
// synchronous downloads.
type Worker struct {
	store      survey.Store
	blobs      core.Store
	suppressor survey.Suppressor
	logger     *slog.Logger
	metrics    *metrics.Metrics

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs an export worker. logger and m may be nil.
func NewWorker(store survey.Store, blobs core.Store, suppressor survey.Suppressor, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:      store,
		blobs:      blobs,
		suppressor: suppressor,
		logger:     logger,
		metrics:    m,
		queue:      make(chan task, 32),
		jobs:       make(map[string]*Job),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export job and returns the queued snapshot.
func (w *Worker) Enqueue(_ context.Context, input Input) (Job, error) {
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		if _, err := ParseFormat(string(f)); err != nil {
			return Job{}, err
		}
		uniq = append(uniq, f)
		seen[f] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	job := Job{
		ID:        id,
		Filter:    input.Filter.Normalize(),
		Formats:   uniq,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	w.mu.Lock()
	w.jobs[id] = &job
	snapshot := job.copy()
	w.mu.Unlock()

	select {
	case w.queue <- task{id: id, input: Input{Filter: job.Filter, Formats: uniq}}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return Job{}, fmt.Errorf("export queue full")
	}

	w.logger.Info("export job queued", "job", id, "formats", len(uniq))
	return snapshot, nil
}

// Get returns a snapshot of the job record.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(t task) {
	w.setStatus(t.id, JobStatusRunning, "")

	rows, err := w.store.Query(w.ctx, t.input.Filter)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("query failed: %v", err))
		return
	}
	if w.suppressor.Suppressed(len(rows)) && w.metrics != nil {
		w.metrics.SuppressionTotal.Inc()
	}
	rows = w.suppressor.Apply(rows)

	artifacts := make([]Artifact, 0, len(t.input.Formats))
	for _, format := range t.input.Formats {
		artifact, err := w.materialize(t.id, format, rows)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(t.id, artifacts)
}

func (w *Worker) materialize(jobID string, format Format, rows []survey.Record) (Artifact, error) {
	buf := &bytes.Buffer{}
	var err error
	switch format {
	case FormatCSV:
		err = EncodeCSV(buf, rows)
	case FormatJSON:
		err = EncodeJSON(buf, rows)
	case FormatXLSX:
		err = EncodeXLSX(buf, rows)
	case FormatHTML:
		err = EncodeHTMLTable(buf, rows)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}

	key := fmt.Sprintf("exports/%s/results.%s", jobID, format)
	now := time.Now().UTC()
	artifact := Artifact{
		Key:         key,
		Format:      format,
		ContentType: format.ContentType(),
		SizeBytes:   int64(buf.Len()),
		Rows:        len(rows),
		CreatedAt:   now,
	}
	if w.blobs != nil {
		info, err := w.blobs.Put(w.ctx, key, bytes.NewReader(buf.Bytes()), core.PutOptions{
			ContentType: format.ContentType(),
			Metadata:    map[string]string{"rows": fmt.Sprintf("%d", len(rows))},
		})
		if err != nil {
			return Artifact{}, fmt.Errorf("store artifact %s: %w", key, err)
		}
		artifact.URL = info.URL
		if info.Size > 0 {
			artifact.SizeBytes = info.Size
		}
	}
	return artifact, nil
}

func (w *Worker) setStatus(id string, status JobStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = status
		job.Error = message
		job.UpdatedAt = now
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = JobStatusSucceeded
		job.Error = ""
		job.Artifacts = artifacts
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.ExportJobsTotal.WithLabelValues(string(JobStatusSucceeded)).Inc()
	}
	w.logger.Info("export job complete", "job", id, "artifacts", len(artifacts))
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = JobStatusFailed
		job.Error = reason
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.ExportJobsTotal.WithLabelValues(string(JobStatusFailed)).Inc()
	}
	w.logger.Error("export job failed", "job", id, "reason", reason)
}

func (j Job) copy() Job {
	dup := j
	dup.Formats = append([]Format(nil), j.Formats...)
	if len(j.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), j.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
