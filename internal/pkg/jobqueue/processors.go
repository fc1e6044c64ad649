package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FeWoHub/fewohub/internal/pkg/billing"
	"github.com/FeWoHub/fewohub/internal/pkg/publisher"
)

// DefaultSweepBatchSize bounds how many slots a single expiry sweep touches.
const DefaultSweepBatchSize = 200

// Processors binds job types to the services that execute them.
type Processors struct {
	Synchronizer *billing.Synchronizer
	Publisher    *publisher.Publisher
}

// NewProcessors creates the processor set used by the queue workers.
func NewProcessors(sync *billing.Synchronizer, pub *publisher.Publisher) *Processors {
	return &Processors{
		Synchronizer: sync,
		Publisher:    pub,
	}
}

// processBillingEventJob applies one recorded webhook event. Returning an
// error lets the queue redeliver just this event; other events in flight
// are unaffected.
func (p *Processors) processBillingEventJob(ctx context.Context, job *Job) error {
	payload, err := BillingEventJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid billing event payload: %w", err)
	}
	if payload.EventID == 0 {
		return fmt.Errorf("billing event job %s has no event id", job.ID)
	}
	return p.Synchronizer.ProcessStoredEvent(ctx, payload.EventID)
}

// processSlotExpirySweepJob tears down slots past their expiry. Partial
// failures inside the sweep are already isolated per slot; the sweep job
// itself only fails when the batch could not run at all.
func (p *Processors) processSlotExpirySweepJob(job *Job) error {
	payload, err := SlotExpirySweepJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid sweep payload: %w", err)
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}

	expired, sweepErr := p.Publisher.ExpireDueSlots(limit)
	if expired > 0 {
		log.Infof("[JobQueue] Expiry sweep tore down %d slots", expired)
	}
	return sweepErr
}

// processProjectionSyncJob rebuilds one host's listing projection from the
// slot store.
func (p *Processors) processProjectionSyncJob(job *Job) error {
	payload, err := ProjectionSyncJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid projection sync payload: %w", err)
	}
	if payload.HostID == 0 {
		return fmt.Errorf("projection sync job %s has no host id", job.ID)
	}
	return p.Publisher.ReconcileHostProjections(payload.HostID)
}
