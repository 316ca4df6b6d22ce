package export

import (
	"context"
	"io"
	"testing"
	"time"

	blobmemory "surveyscope/internal/infra/blob/memory"
	storememory "surveyscope/internal/infra/persistence/memory"
	"surveyscope/internal/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorker(t *testing.T, suppressor survey.Suppressor) (*Worker, *blobmemory.Store) {
	t.Helper()
	store := storememory.NewStore()
	require.NoError(t, store.Replace(context.Background(), fixture))
	blobs := blobmemory.New()
	w := NewWorker(store, blobs, suppressor, nil, nil)
	w.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	})
	return w, blobs
}

func waitDone(t *testing.T, w *Worker, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := w.Get(id)
		require.True(t, ok)
		if job.Status == JobStatusSucceeded || job.Status == JobStatusFailed {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestWorkerLifecycle(t *testing.T) {
	w, blobs := newWorker(t, survey.NewSuppressor(true))

	job, err := w.Enqueue(context.Background(), Input{
		Filter:  survey.Filter{State: "CA"},
		Formats: []Format{FormatCSV, FormatJSON},
	})
	require.NoError(t, err)
	assert.Equal(t, JobStatusQueued, job.Status)

	done := waitDone(t, w, job.ID)
	require.Equal(t, JobStatusSucceeded, done.Status)
	require.Len(t, done.Artifacts, 2)
	assert.Equal(t, 2, done.Artifacts[0].Rows)
	assert.NotNil(t, done.CompletedAt)

	_, rc, err := blobs.Get(context.Background(), done.Artifacts[0].Key)
	require.NoError(t, err)
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.NotEmpty(t, payload)
}

func TestWorkerAppliesSuppression(t *testing.T) {
	w, _ := newWorker(t, survey.NewSuppressor(false))

	// Two CA rows in the fixture, below the threshold of 5.
	job, err := w.Enqueue(context.Background(), Input{Filter: survey.Filter{State: "CA"}, Formats: []Format{FormatJSON}})
	require.NoError(t, err)

	done := waitDone(t, w, job.ID)
	require.Equal(t, JobStatusSucceeded, done.Status)
	assert.Equal(t, 0, done.Artifacts[0].Rows)
}

func TestWorkerDefaultsFormats(t *testing.T) {
	w, _ := newWorker(t, survey.NewSuppressor(true))
	job, err := w.Enqueue(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatJSON, FormatCSV}, job.Formats)
}

func TestWorkerRejectsUnknownFormat(t *testing.T) {
	w, _ := newWorker(t, survey.NewSuppressor(true))
	_, err := w.Enqueue(context.Background(), Input{Formats: []Format{"parquet"}})
	assert.Error(t, err)
}

func TestWorkerDeduplicatesFormats(t *testing.T) {
	w, _ := newWorker(t, survey.NewSuppressor(true))
	job, err := w.Enqueue(context.Background(), Input{Formats: []Format{FormatCSV, FormatCSV, FormatJSON}})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatJSON}, job.Formats)
}

func TestGetUnknownJob(t *testing.T) {
	w, _ := newWorker(t, survey.NewSuppressor(true))
	_, ok := w.Get("missing")
	assert.False(t, ok)
}
