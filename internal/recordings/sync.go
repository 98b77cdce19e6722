package recordings

import (
	"context"
	"time"

	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
)

const leadMapBatchSize = 1000

// recordingStore is the slice of the repository the sync needs.
type recordingStore interface {
	ImportedFileIDs(ctx context.Context, orgID uuid.UUID) (map[string]bool, error)
	TombstonedFileIDs(ctx context.Context, orgID uuid.UUID) (map[string]bool, error)
	Create(ctx context.Context, params CreateRecordingParams) (Recording, error)
}

// phoneLeadSource pages the organization's leads for phone matching.
type phoneLeadSource interface {
	ListWithPhone(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]leads.PhoneLead, error)
}

// driveIntegrations resolves and maintains the org's Google connection.
type driveIntegrations interface {
	driveIntegrationStore
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SyncResult summarizes one Drive folder scan.
type SyncResult struct {
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
	Unmatched int `json:"unmatched"`
}

// SyncService imports call recordings from the organization's configured
// Drive folder. Files are matched to leads by the phone number embedded in
// the filename; unmatched files are imported anyway so nothing is lost.
type SyncService struct {
	repo         recordingStore
	leadSource   phoneLeadSource
	integrations driveIntegrations
	drive        driveClient
	log          *logger.Logger
}

func NewSyncService(repo recordingStore, leadSource phoneLeadSource, store driveIntegrations, drive driveClient, log *logger.Logger) *SyncService {
	return &SyncService{
		repo:         repo,
		leadSource:   leadSource,
		integrations: store,
		drive:        drive,
		log:          log,
	}
}

// SyncStatus reports the state of the org's Drive connection without
// touching Drive.
type SyncStatus struct {
	Connected      bool       `json:"connected"`
	FolderSelected bool       `json:"folder_selected"`
	SyncStatus     string     `json:"sync_status,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
}

// Status returns the sync state recorded on the integration row. Reading
// it never triggers a scan.
func (s *SyncService) Status(ctx context.Context, orgID uuid.UUID) (SyncStatus, error) {
	integration, err := s.integrations.GetByPlatform(ctx, orgID, integrations.PlatformGoogle)
	if err == integrations.ErrNotFound {
		return SyncStatus{}, nil
	}
	if err != nil {
		return SyncStatus{}, err
	}
	return SyncStatus{
		Connected:      true,
		FolderSelected: integration.Settings.FolderID != "",
		SyncStatus:     integration.SyncStatus,
		LastSyncAt:     integration.LastSyncAt,
		ErrorMessage:   integration.ErrorMessage,
	}, nil
}

// Sync scans the configured folder and inserts new recordings as pending.
// Already-imported and tombstoned file ids are skipped; a tombstoned id is
// never reimported no matter how often the file reappears in the folder.
func (s *SyncService) Sync(ctx context.Context, orgID uuid.UUID) (SyncResult, error) {
	integration, err := s.integrations.GetByPlatform(ctx, orgID, integrations.PlatformGoogle)
	if err == integrations.ErrNotFound {
		return SyncResult{}, apperr.Validation("no Google Drive connection for this organization")
	}
	if err != nil {
		return SyncResult{}, err
	}
	folderID := integration.Settings.FolderID
	if folderID == "" {
		return SyncResult{}, apperr.Validation("no recording folder selected")
	}

	files, err := s.drive.ListFolder(ctx, &integration, folderID)
	if err != nil {
		return SyncResult{}, err
	}

	imported, err := s.repo.ImportedFileIDs(ctx, orgID)
	if err != nil {
		return SyncResult{}, err
	}
	tombstoned, err := s.repo.TombstonedFileIDs(ctx, orgID)
	if err != nil {
		return SyncResult{}, err
	}

	leadByPhone, err := s.buildPhoneLeadMap(ctx, orgID)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	for _, file := range files {
		if imported[file.ID] || tombstoned[file.ID] {
			result.Skipped++
			continue
		}

		params := CreateRecordingParams{
			OrganizationID: orgID,
			DriveFileID:    file.ID,
			FileName:       file.Name,
		}
		if file.MimeType != "" {
			mime := file.MimeType
			params.MimeType = &mime
		}

		if extracted := ExtractPhone(file.Name); extracted != "" {
			params.PhoneNumber = &extracted
			if leadID, ok := matchLead(leadByPhone, extracted); ok {
				params.LeadID = &leadID
			}
		}
		if params.LeadID == nil {
			result.Unmatched++
		}

		if date, ok := ExtractDate(file.Name); ok {
			params.RecordingDate = &date
		} else if !file.CreatedTime.IsZero() {
			created := file.CreatedTime
			params.RecordingDate = &created
		}

		if _, err := s.repo.Create(ctx, params); err != nil {
			s.log.Warn("recording sync: insert failed", "fileId", file.ID, "error", err)
			result.Skipped++
			continue
		}
		result.Imported++
	}

	_ = s.integrations.MarkSynced(ctx, integration.ID, time.Now())
	s.log.SyncEvent("drive_recordings", result.Imported, result.Skipped, 0)
	return result, nil
}

// buildPhoneLeadMap indexes org leads by normalized phone and by last ten
// digits, mirroring the duplicate detector's matching rules.
func (s *SyncService) buildPhoneLeadMap(ctx context.Context, orgID uuid.UUID) (map[string]uuid.UUID, error) {
	index := make(map[string]uuid.UUID)
	for offset := 0; ; offset += leadMapBatchSize {
		batch, err := s.leadSource.ListWithPhone(ctx, orgID, offset, leadMapBatchSize)
		if err != nil {
			return nil, err
		}
		for _, lead := range batch {
			normalized := phone.Normalize(lead.Phone)
			if normalized == "" {
				continue
			}
			if _, seen := index[normalized]; !seen {
				index[normalized] = lead.ID
			}
			if suffix := phone.LastTenDigits(normalized); suffix != "" {
				if _, seen := index["~"+suffix]; !seen {
					index["~"+suffix] = lead.ID
				}
			}
		}
		if len(batch) < leadMapBatchSize {
			break
		}
	}
	return index, nil
}

func matchLead(index map[string]uuid.UUID, normalized string) (uuid.UUID, bool) {
	if id, ok := index[normalized]; ok {
		return id, true
	}
	if suffix := phone.LastTenDigits(normalized); suffix != "" {
		if id, ok := index["~"+suffix]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
