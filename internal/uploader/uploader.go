// Package uploader stores uploaded files and hands back durable URLs.
package uploader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mural/internal/observability"
)

const MaxUploadSizeBytes = 10 * 1024 * 1024

// Uploader persists a local file and returns the URL it will be served from.
// Implementations must not delete the source file; the caller owns it.
type Uploader interface {
	Upload(localPath string, originalName string) (string, error)
}

// DiskUploader writes files under a local directory, content-addressed by
// sha256 so re-uploading the same bytes is idempotent.
type DiskUploader struct {
	dir     string
	baseURL string
}

func NewDiskUploader(dir, baseURL string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &DiskUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (u *DiskUploader) Upload(localPath string, originalName string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("opening upload source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("stat upload source: %w", err)
	}
	if info.Size() == 0 {
		observability.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", errors.New("empty file")
	}
	if info.Size() > MaxUploadSizeBytes {
		observability.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("file too large (max %dMB)", MaxUploadSizeBytes/(1024*1024))
	}

	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("reading upload source: %w", err)
	}
	if !isAllowedContentType(http.DetectContentType(head[:n])) {
		observability.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", errors.New("unsupported file type")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("rewinding upload source: %w", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, src); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("hashing upload: %w", err)
	}
	name := hex.EncodeToString(hasher.Sum(nil)) + normalizeExt(originalName)
	dest := filepath.Join(u.dir, name)

	if _, err := os.Stat(dest); err == nil {
		// Same bytes already stored.
		observability.UploadsTotal.WithLabelValues("ok").Inc()
		return u.url(name), nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("rewinding upload source: %w", err)
	}
	if err := writeAtomically(dest, src); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	observability.UploadsTotal.WithLabelValues("ok").Inc()
	return u.url(name), nil
}

func (u *DiskUploader) url(name string) string {
	return u.baseURL + "/" + path.Clean(name)
}

// writeAtomically writes through a temp file and renames, so a crashed upload
// never leaves a partial file at the served path.
func writeAtomically(dest string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("publishing upload: %w", err)
	}
	return nil
}

func normalizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".bin"
	}
}

func isAllowedContentType(ct string) bool {
	switch strings.Split(ct, ";")[0] {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
