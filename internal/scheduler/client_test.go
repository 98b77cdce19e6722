package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type staticSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c staticSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c staticSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c staticSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c staticSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClientEnqueuesTasks(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(staticSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	err = client.ScheduleSheetsSync(context.Background(), SheetsSyncPayload{
		IntegrationID:  "7b8f0b1e-0000-0000-0000-000000000001",
		OrganizationID: "7b8f0b1e-0000-0000-0000-000000000002",
	}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ScheduleSheetsSync: %v", err)
	}

	err = client.EnqueueProcessRecordings(context.Background(), ProcessRecordingsPayload{
		OrganizationID: "7b8f0b1e-0000-0000-0000-000000000002",
	})
	if err != nil {
		t.Fatalf("EnqueueProcessRecordings: %v", err)
	}

	if len(mr.Keys()) == 0 {
		t.Fatal("want tasks persisted in redis")
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(staticSchedulerConfig{}); err == nil {
		t.Fatal("want error without redis url")
	}
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	if _, err := NewClient(staticSchedulerConfig{redisURL: "not-a-url"}); err == nil {
		t.Fatal("want error for malformed redis url")
	}
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewRecordingsSyncTask(RecordingsSyncPayload{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("NewRecordingsSyncTask: %v", err)
	}
	if task.Type() != TaskRecordingsSync {
		t.Fatalf("type = %s", task.Type())
	}

	payload, err := ParseRecordingsSyncPayload(task)
	if err != nil {
		t.Fatalf("ParseRecordingsSyncPayload: %v", err)
	}
	if payload.OrganizationID != "org-1" {
		t.Fatalf("payload = %+v", payload)
	}
}
