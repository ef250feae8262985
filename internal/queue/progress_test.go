package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoarena/videoarena/pkg/models"
)

func TestReporter_SetWritesProgressAndMessage(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Create(ctx, models.JobTypeSingleCompare, json.RawMessage(`{}`))
	require.NoError(t, err)

	q.Progress(job.ID).Set(35, "Running 4 models")

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, got.Progress)
	require.NotNil(t, got.ProgressMessage)
	assert.Equal(t, "Running 4 models", *got.ProgressMessage)
}

func TestReporter_EstimateNeverExceedsCeiling(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Create(ctx, models.JobTypeSingleCompare, json.RawMessage(`{}`))
	require.NoError(t, err)

	rep := q.Progress(job.ID)
	// estimate far shorter than the run so the estimator saturates
	stop := rep.StartEstimate(10, 75, 20*time.Millisecond, "models in flight")
	time.Sleep(60 * time.Millisecond)
	stop()

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Progress, 10)
	assert.LessOrEqual(t, got.Progress, 75)
}

func TestReporter_StopJoinsBeforeAuthoritativeWrite(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Create(ctx, models.JobTypeSingleCompare, json.RawMessage(`{}`))
	require.NoError(t, err)

	rep := q.Progress(job.ID)
	stop := rep.StartEstimate(10, 75, 20*time.Millisecond, "models in flight")
	time.Sleep(30 * time.Millisecond)
	stop()

	// after stop returns no stale estimate can land; the checkpoint sticks
	rep.Set(80, "Evaluating model responses")
	time.Sleep(20 * time.Millisecond)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Progress)
	require.NotNil(t, got.ProgressMessage)
	assert.Equal(t, "Evaluating model responses", *got.ProgressMessage)
}

func TestReporter_ProgressMonotoneDuringRun(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Create(ctx, models.JobTypeSingleCompare, json.RawMessage(`{}`))
	require.NoError(t, err)

	rep := q.Progress(job.ID)
	stop := rep.StartEstimate(5, 50, 50*time.Millisecond, "working")

	last := 0
	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		got, err := q.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Progress, last)
		assert.LessOrEqual(t, got.Progress, 100)
		last = got.Progress
	}
	stop()
}
