package scheduler

import (
	"context"
	"fmt"
	"time"

	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncDispatcher periodically queues sync and processing jobs for every
// organization with an active connection. It is the only place that fans
// out across tenants; the worker handlers stay single-tenant.
type SyncDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *integrations.Repository
	interval time.Duration
	log      *logger.Logger
}

func NewSyncDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, interval time.Duration, log *logger.Logger) (*SyncDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &SyncDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     integrations.NewRepository(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *SyncDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SyncDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatchSheets(ctx)
		d.dispatchRecordings(ctx)
	}
}

func (d *SyncDispatcher) dispatchSheets(ctx context.Context) {
	items, err := d.repo.ListActiveByPlatform(ctx, integrations.PlatformGoogleSheets)
	if err != nil {
		d.log.Warn("sheets dispatch: listing integrations failed", "error", err)
		return
	}

	for _, in := range items {
		task, err := NewSheetsSyncTask(SheetsSyncPayload{
			IntegrationID:  in.ID.String(),
			OrganizationID: in.OrganizationID.String(),
		})
		if err != nil {
			continue
		}
		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("sheets dispatch: enqueue failed", "integrationId", in.ID, "error", err)
		}
	}
}

func (d *SyncDispatcher) dispatchRecordings(ctx context.Context) {
	items, err := d.repo.ListActiveByPlatform(ctx, integrations.PlatformGoogle)
	if err != nil {
		d.log.Warn("recordings dispatch: listing integrations failed", "error", err)
		return
	}

	for _, in := range items {
		syncTask, err := NewRecordingsSyncTask(RecordingsSyncPayload{OrganizationID: in.OrganizationID.String()})
		if err != nil {
			continue
		}
		if _, err := d.client.EnqueueContext(ctx, syncTask, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("recordings dispatch: enqueue failed", "orgId", in.OrganizationID, "error", err)
			continue
		}

		// Process whatever the scan imported; the handler caps the batch.
		processTask, err := NewProcessRecordingsTask(ProcessRecordingsPayload{OrganizationID: in.OrganizationID.String()})
		if err != nil {
			continue
		}
		if _, err := d.client.EnqueueContext(ctx, processTask, asynq.Queue(d.queue), asynq.ProcessIn(time.Minute)); err != nil {
			d.log.Warn("recordings dispatch: enqueue processing failed", "orgId", in.OrganizationID, "error", err)
		}
	}
}
