package recordings

import (
	"context"
	"io"
	"strings"
	"time"

	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveFile is the subset of Drive metadata the sync needs.
type DriveFile struct {
	ID          string
	Name        string
	MimeType    string
	CreatedTime time.Time
}

// driveIntegrationStore is the slice of the integrations repository the
// recordings module needs: looking up the Google connection and persisting
// refreshed tokens.
type driveIntegrationStore interface {
	GetByPlatform(ctx context.Context, orgID uuid.UUID, platform string) (integrations.Integration, error)
	UpdateCredentials(ctx context.Context, id uuid.UUID, creds integrations.Credentials) error
}

// driveClient abstracts the Drive API for tests.
type driveClient interface {
	ListFolder(ctx context.Context, integration *integrations.Integration, folderID string) ([]DriveFile, error)
	Download(ctx context.Context, integration *integrations.Integration, fileID string) (io.ReadCloser, error)
}

// googleDriveClient lists and downloads recording files with the stored
// OAuth token, refreshing it blocking when expired.
type googleDriveClient struct {
	store    driveIntegrationStore
	oauthCfg config.GoogleOAuthConfig
	log      *logger.Logger
}

func newGoogleDriveClient(oauthCfg config.GoogleOAuthConfig, store driveIntegrationStore, log *logger.Logger) *googleDriveClient {
	return &googleDriveClient{store: store, oauthCfg: oauthCfg, log: log}
}

func (g *googleDriveClient) service(ctx context.Context, integration *integrations.Integration) (*drive.Service, error) {
	ts := integrations.GoogleTokenSource(ctx, g.oauthCfg, integration.Credentials)

	token, err := ts.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "Google token refresh failed", err)
	}
	if token.AccessToken != integration.Credentials.AccessToken {
		integration.Credentials.AccessToken = token.AccessToken
		integration.Credentials.TokenExpiry = token.Expiry
		if token.RefreshToken != "" {
			integration.Credentials.RefreshToken = token.RefreshToken
		}
		if err := g.store.UpdateCredentials(ctx, integration.ID, integration.Credentials); err != nil {
			g.log.Warn("failed to persist refreshed Google token", "integrationId", integration.ID, "error", err)
		}
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "could not build Drive client", err)
	}
	return svc, nil
}

// ListFolder returns the audio and video files in a Drive folder,
// paginated through to the end.
func (g *googleDriveClient) ListFolder(ctx context.Context, integration *integrations.Integration, folderID string) ([]DriveFile, error) {
	svc, err := g.service(ctx, integration)
	if err != nil {
		return nil, err
	}

	query := "'" + strings.ReplaceAll(folderID, "'", "\\'") + "' in parents" +
		" and trashed = false and (mimeType contains 'audio/' or mimeType contains 'video/')"

	var files []DriveFile
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, createdTime)").
			PageSize(200).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstream, "could not list Drive folder", err)
		}

		for _, f := range resp.Files {
			created, _ := time.Parse(time.RFC3339, f.CreatedTime)
			files = append(files, DriveFile{
				ID:          f.Id,
				Name:        f.Name,
				MimeType:    f.MimeType,
				CreatedTime: created,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return files, nil
}

// Download streams a Drive file's content.
func (g *googleDriveClient) Download(ctx context.Context, integration *integrations.Integration, fileID string) (io.ReadCloser, error) {
	svc, err := g.service(ctx, integration)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "could not download recording", err)
	}
	return resp.Body, nil
}
