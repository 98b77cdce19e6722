package scheduler

import (
	"context"
	"fmt"

	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/recordings"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// sheetsSyncer pulls one Google Sheets integration. Satisfied by the
// integrations service.
type sheetsSyncer interface {
	Sync(ctx context.Context, id, orgID uuid.UUID) (integrations.ProcessResult, error)
}

// recordingsSyncer scans the org's Drive folder. Satisfied by the
// recordings sync service.
type recordingsSyncer interface {
	Sync(ctx context.Context, orgID uuid.UUID) (recordings.SyncResult, error)
}

// recordingsProcessor runs the bulk AI pipeline. Satisfied by the
// recordings processing service.
type recordingsProcessor interface {
	ProcessPending(ctx context.Context, orgID uuid.UUID) ([]recordings.BulkItem, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	sheets     sheetsSyncer
	recordings recordingsSyncer
	processor  recordingsProcessor
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sheets sheetsSyncer, recordingsSync recordingsSyncer, processor recordingsProcessor, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		sheets:     sheets,
		recordings: recordingsSync,
		processor:  processor,
		log:        log,
	}

	mux.HandleFunc(TaskSheetsSync, w.handleSheetsSync)
	mux.HandleFunc(TaskRecordingsSync, w.handleRecordingsSync)
	mux.HandleFunc(TaskProcessRecordings, w.handleProcessRecordings)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSheetsSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSheetsSyncPayload(task)
	if err != nil {
		return err
	}

	integrationID, err := uuid.Parse(payload.IntegrationID)
	if err != nil {
		return err
	}
	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	result, err := w.sheets.Sync(ctx, integrationID, orgID)
	if err != nil {
		return err
	}
	w.log.Info("scheduled sheets sync finished", "integrationId", integrationID, "created", result.Created, "skipped", result.Skipped)
	return nil
}

func (w *Worker) handleRecordingsSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecordingsSyncPayload(task)
	if err != nil {
		return err
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	result, err := w.recordings.Sync(ctx, orgID)
	if err != nil {
		return err
	}
	w.log.Info("scheduled recording sync finished", "orgId", orgID, "imported", result.Imported, "skipped", result.Skipped)
	return nil
}

func (w *Worker) handleProcessRecordings(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProcessRecordingsPayload(task)
	if err != nil {
		return err
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	items, err := w.processor.ProcessPending(ctx, orgID)
	if err != nil {
		return err
	}

	failed := 0
	for _, item := range items {
		if item.Status == recordings.StatusFailed {
			failed++
		}
	}
	w.log.Info("bulk recording processing finished", "orgId", orgID, "processed", len(items), "failed", failed)
	return nil
}
