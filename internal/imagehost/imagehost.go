// Package imagehost publishes food photos at a URL the vision model can fetch.
package imagehost

import (
	"context"
	"fmt"
)

// Image is an in-memory photo selected by the user.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (i Image) Size() int64 {
	return int64(len(i.Data))
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
	// Service names the host in metrics, e.g. "imgbb".
	Service() string
}

// UploadError carries the user-facing reason an upload failed.
type UploadError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("Image upload failed: %s", e.Reason)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
