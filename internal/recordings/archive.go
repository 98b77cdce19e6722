package recordings

import (
	"context"
	"fmt"
	"io"

	"bharatcrm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores a copy of downloaded recording audio before processing,
// so the original survives even if the Drive file is later removed.
type Archiver interface {
	Archive(ctx context.Context, orgID, recordingID uuid.UUID, fileName string, r io.Reader, size int64) (string, error)
}

// MinIOArchiver writes recording copies to an object storage bucket.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinIOArchiver(cfg config.MinIOConfig) (*MinIOArchiver, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOArchiver{client: client, bucket: cfg.GetMinioBucketRecordingArchive()}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet. Called
// once at startup.
func (a *MinIOArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}

// Archive uploads the audio and returns the object name.
func (a *MinIOArchiver) Archive(ctx context.Context, orgID, recordingID uuid.UUID, fileName string, r io.Reader, size int64) (string, error) {
	objectName := fmt.Sprintf("%s/%s/%s", orgID, recordingID, fileName)
	_, err := a.client.PutObject(ctx, a.bucket, objectName, r, size, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("archive recording: %w", err)
	}
	return objectName, nil
}
