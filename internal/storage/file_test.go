package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_UploadCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStorage(root, "https://blog.example.com/")
	require.NoError(t, err)

	err = s.Upload(context.Background(), "/usr/uploads/2024/05/1.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, "usr", "uploads", "2024", "05", "1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestFileStorage_UploadReplaces(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a/b.txt", strings.NewReader("first version"), -1, ""))
	require.NoError(t, s.Upload(ctx, "a/b.txt", strings.NewReader("second"), -1, ""))

	p, err := s.Path("a/b.txt")
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestFileStorage_UploadRemovesPartialFile(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)

	err = s.Upload(context.Background(), "x/y.bin", failingReader{}, -1, "")
	require.Error(t, err)

	p, _ := s.Path("x/y.bin")
	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStorage_Delete(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "d/e.txt", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, "d/e.txt"))
	assert.ErrorIs(t, s.Delete(ctx, "d/e.txt"), ErrNotFound)
}

func TestFileStorage_KeysStayBelowRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStorage(root, "")
	require.NoError(t, err)

	p, err := s.Path("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), p)

	p, err = s.Path(`..\..\x.txt`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "x.txt"), p)

	_, err = s.Path("/")
	assert.Error(t, err)
}

func TestFileStorage_PublicURL(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "https://blog.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/usr/uploads/a.pdf", s.PublicURL("/usr/uploads/a.pdf"))
	assert.Equal(t, "https://blog.example.com/usr/uploads/a.pdf", s.PublicURL("usr/uploads/a.pdf"))
}

func TestMinioStorage_KeysAndURLs(t *testing.T) {
	s := &MinioStorage{bucket: "attachments", publicBase: "https://cdn.example.com/attachments"}
	assert.Equal(t, "usr/uploads/a.pdf", objectKey("/usr/uploads/a.pdf"))
	assert.Equal(t, "https://cdn.example.com/attachments/usr/uploads/a.pdf", s.PublicURL("/usr/uploads/a.pdf"))
	assert.Contains(t, publicReadPolicy("attachments"), `"Resource":"arn:aws:s3:::attachments/*"`)
}
