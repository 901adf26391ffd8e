// Package storage keeps CV attachments in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the narrow object storage surface the services use.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// allowedExt maps accepted attachment extensions to their content type.
var allowedExt = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// AttachmentKey builds "<username>/<projectID>/<uuid><ext>" from the
// uploaded file name.  Unsupported extensions are rejected.
func AttachmentKey(username string, projectID uint64, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := allowedExt[ext]; !ok {
		return "", fmt.Errorf("unsupported attachment type %q", ext)
	}
	return fmt.Sprintf("%s/%d/%s%s", username, projectID, uuid.NewString(), ext), nil
}

// ContentType picks the download content type from the key's extension.
func ContentType(key string) string {
	if ct, ok := allowedExt[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
