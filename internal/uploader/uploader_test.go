package uploader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid 1x1 PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incoming")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDiskUploaderStoresFile(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/uploads/")
	require.NoError(t, err)

	src := writeTempFile(t, pngBytes)
	url, err := u.Upload(src, "avatar.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored := filepath.Join(dir, strings.TrimPrefix(url, "/uploads/"))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	// The caller still owns the source file.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestDiskUploaderIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/uploads")
	require.NoError(t, err)

	first, err := u.Upload(writeTempFile(t, pngBytes), "a.png")
	require.NoError(t, err)
	second, err := u.Upload(writeTempFile(t, pngBytes), "b.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDiskUploaderRejectsEmptyFile(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = u.Upload(writeTempFile(t, nil), "a.png")
	assert.ErrorContains(t, err, "empty file")
}

func TestDiskUploaderRejectsNonImage(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = u.Upload(writeTempFile(t, []byte("#!/bin/sh\necho hi\n")), "a.png")
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestDiskUploaderMissingSource(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = u.Upload(filepath.Join(t.TempDir(), "nope"), "a.png")
	assert.Error(t, err)
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, ".jpg", normalizeExt("photo.JPG"))
	assert.Equal(t, ".webp", normalizeExt("x.webp"))
	assert.Equal(t, ".bin", normalizeExt("archive.tar.gz"))
	assert.Equal(t, ".bin", normalizeExt("noext"))
}
