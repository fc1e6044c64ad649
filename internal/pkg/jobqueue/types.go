package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeBillingEvent    JobType = "billing_event"
	JobTypeSlotExpirySweep JobType = "slot_expiry_sweep"
	JobTypeProjectionSync  JobType = "projection_sync"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// BillingEventJobPayload references a recorded webhook event to process.
type BillingEventJobPayload struct {
	EventID uint `json:"event_id"`
}

// ToMap converts the payload to a map for storage
func (p BillingEventJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"event_id": p.EventID,
	}
}

// BillingEventJobPayloadFromMap creates a payload from a map
func BillingEventJobPayloadFromMap(data map[string]interface{}) (*BillingEventJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload BillingEventJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// SlotExpirySweepJobPayload bounds one expiry sweep pass.
type SlotExpirySweepJobPayload struct {
	Limit int `json:"limit"`
}

func (p SlotExpirySweepJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"limit": p.Limit,
	}
}

func SlotExpirySweepJobPayloadFromMap(data map[string]interface{}) (*SlotExpirySweepJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload SlotExpirySweepJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ProjectionSyncJobPayload requests a projection rebuild for one host.
type ProjectionSyncJobPayload struct {
	HostID uint `json:"host_id"`
}

func (p ProjectionSyncJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"host_id": p.HostID,
	}
}

func ProjectionSyncJobPayloadFromMap(data map[string]interface{}) (*ProjectionSyncJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload ProjectionSyncJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
