package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	job := &Job{
		ID:         "job-1",
		Type:       JobTypeBillingEvent,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("provider unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "provider unreachable", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
	assert.False(t, job.IsRetryable())
}

func TestJobIsRetryableExhausted(t *testing.T) {
	t.Parallel()

	job := &Job{Status: JobStatusFailed, RetryCount: 3, MaxRetries: 3}
	assert.False(t, job.IsRetryable())
}

func TestBillingEventJobPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	payload := BillingEventJobPayload{EventID: 42}
	restored, err := BillingEventJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.EventID)
}

func TestSlotExpirySweepJobPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	payload := SlotExpirySweepJobPayload{Limit: 200}
	restored, err := SlotExpirySweepJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, 200, restored.Limit)
}

func TestProjectionSyncJobPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	payload := ProjectionSyncJobPayload{HostID: 7}
	restored, err := ProjectionSyncJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(7), restored.HostID)
}
