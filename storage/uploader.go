package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores tournament archives in object storage.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ArchiveKey returns a fresh object key for a finished tournament. Every
// completion gets its own object so a re-completed tournament never
// overwrites an earlier archive.
func ArchiveKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/archive-%s.json", tournamentID, uuid.NewString())
}

type disabledUploader struct{}

// NewDisabledUploader is used when no archive bucket is configured. Uploads
// are skipped and report no location.
func NewDisabledUploader() FileUploader { return disabledUploader{} }

func (disabledUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	return nil, ErrArchiveDisabled
}

func (disabledUploader) Delete(ctx context.Context, key string) error { return nil }
func (disabledUploader) GetPublicURL(key string) string             { return "" }
