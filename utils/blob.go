package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path prefix under which stored blobs are served.
const URLPrefix = "/uploads"

// BlobStore persists uploaded images on local disk and addresses them by a
// relative URL under URLPrefix. Deletions are fire-and-forget: failures are
// logged, never surfaced to the request that triggered them.
type BlobStore struct {
	root     string
	maxBytes int64
}

// NewBlobStore creates the upload directory if needed and returns a store.
func NewBlobStore(root string, maxUploadMB int) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &BlobStore{root: root, maxBytes: int64(maxUploadMB) * 1024 * 1024}, nil
}

// Root returns the filesystem directory backing the store.
func (s *BlobStore) Root() string { return s.root }

// SaveImage stores an uploaded image file under a unique name and returns its
// relative URL. Only image content types are accepted.
func (s *BlobStore) SaveImage(header *multipart.FileHeader) (string, error) {
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return "", fmt.Errorf("not an image: %s", header.Header.Get("Content-Type"))
	}
	if header.Size > s.maxBytes {
		return "", fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}

	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := fmt.Sprintf("post-%s%s", uuid.NewString(), ext)
	dstPath := filepath.Join(s.root, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// Size is re-checked while copying; multipart headers are client supplied.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		_ = os.Remove(dstPath)
		return "", err
	}
	if written > s.maxBytes {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}

	return URLPrefix + "/" + name, nil
}

// RemoveAsync deletes the blob behind a relative URL in a detached goroutine.
// It never blocks or fails the caller.
func (s *BlobStore) RemoveAsync(url string) {
	rel, ok := strings.CutPrefix(url, URLPrefix+"/")
	if !ok || rel == "" {
		return
	}
	// Reject anything trying to climb out of the upload dir.
	if cleaned := path.Clean(rel); cleaned != rel || strings.Contains(rel, "/") {
		if Sugar != nil {
			Sugar.Warnf("refusing to delete suspicious blob path %q", url)
		}
		return
	}
	target := filepath.Join(s.root, rel)
	go func() {
		if err := os.Remove(target); err != nil {
			if Sugar != nil {
				Sugar.Warnf("failed to delete blob %s: %v", target, err)
			}
			return
		}
		if Sugar != nil {
			Sugar.Debugf("deleted blob %s", target)
		}
	}()
}
