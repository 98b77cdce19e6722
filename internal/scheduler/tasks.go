// Package scheduler queues and runs background jobs over asynq: scheduled
// Google Sheets pulls, Drive recording scans, and bulk AI processing.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSheetsSync = "integrations.sheets.sync"

const TaskRecordingsSync = "recordings.drive.sync"

const TaskProcessRecordings = "recordings.process.pending"

type SheetsSyncPayload struct {
	IntegrationID  string `json:"integrationId"`
	OrganizationID string `json:"organizationId"`
}

type RecordingsSyncPayload struct {
	OrganizationID string `json:"organizationId"`
}

type ProcessRecordingsPayload struct {
	OrganizationID string `json:"organizationId"`
}

func NewSheetsSyncTask(payload SheetsSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSheetsSync, data), nil
}

func ParseSheetsSyncPayload(task *asynq.Task) (SheetsSyncPayload, error) {
	var payload SheetsSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SheetsSyncPayload{}, err
	}
	return payload, nil
}

func NewRecordingsSyncTask(payload RecordingsSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordingsSync, data), nil
}

func ParseRecordingsSyncPayload(task *asynq.Task) (RecordingsSyncPayload, error) {
	var payload RecordingsSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecordingsSyncPayload{}, err
	}
	return payload, nil
}

func NewProcessRecordingsTask(payload ProcessRecordingsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessRecordings, data), nil
}

func ParseProcessRecordingsPayload(task *asynq.Task) (ProcessRecordingsPayload, error) {
	var payload ProcessRecordingsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessRecordingsPayload{}, err
	}
	return payload, nil
}
