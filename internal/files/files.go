// Package files is the consumed slice of the portal's file storage: documents
// are uploaded straight to object storage through short-lived presigned URLs,
// and the claims subsystem only ever records the resulting durable URL.
package files

import (
	"context"
	"time"

	dErrors "kvartal/pkg/domain-errors"
)

// Upload is a granted upload slot.
type Upload struct {
	// UploadURL accepts one HTTP PUT of the file body.
	UploadURL string `json:"upload_url"`
	// FileURL is the durable location to record on the claim document.
	FileURL string `json:"file_url"`
	// ExpiresIn bounds how long the upload URL stays valid.
	ExpiresIn time.Duration `json:"expires_in"`
}

// Storage grants upload slots.
type Storage interface {
	PresignUpload(ctx context.Context, key, contentType string) (*Upload, error)
}

// Disabled rejects every upload. Used when no bucket is configured.
type Disabled struct{}

func (Disabled) PresignUpload(context.Context, string, string) (*Upload, error) {
	return nil, dErrors.New(dErrors.CodePrecondition, "document uploads are not configured")
}
