// Package local stores attachments the image host does not take, using the
// CMS's default layout: {uploadDir}/{YYYY}/{MM}/{random}.{ext}.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/lskyplus/bridge/internal/attachment"
	"github.com/lskyplus/bridge/internal/storage"
)

// ErrNoContent is returned when a descriptor has neither a temp file nor bytes.
var ErrNoContent = attachment.ErrNoContent

// Uploader implements attachment.Fallback on top of a storage.Storage.
type Uploader struct {
	store     storage.Storage
	uploadDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewUploader returns an Uploader writing below uploadDir, e.g. "/usr/uploads".
func NewUploader(store storage.Storage, uploadDir string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:     store,
		uploadDir: "/" + strings.Trim(uploadDir, "/"),
		logger:    logger.With("component", "local"),
		now:       time.Now,
	}
}

// Upload stores f under a fresh dated path.
func (u *Uploader) Upload(ctx context.Context, f attachment.File, ext string) (*attachment.Attachment, error) {
	now := u.now()
	dir := path.Join(u.uploadDir, strconv.Itoa(now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	rel := path.Join(dir, fileName(ext))

	size, mimeType, err := u.write(ctx, rel, f, ext)
	if err != nil {
		return nil, err
	}
	if f.Size > 0 {
		size = f.Size
	}

	u.logger.Info("file stored", "path", rel, "size", size)
	return &attachment.Attachment{
		Name: f.Name,
		Path: rel,
		Size: size,
		Type: ext,
		Mime: mimeType,
	}, nil
}

// Modify overwrites the file at old.Path with f. Everything but the size is
// taken from the old record.
func (u *Uploader) Modify(ctx context.Context, old attachment.Attachment, f attachment.File) (*attachment.Attachment, error) {
	if !f.HasContent() {
		return nil, ErrNoContent
	}
	if err := u.store.Delete(ctx, old.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		u.logger.Warn("could not remove replaced file", "path", old.Path, "error", err)
	}

	size, _, err := u.write(ctx, old.Path, f, old.Type)
	if err != nil {
		return nil, err
	}
	if f.Size > 0 {
		size = f.Size
	}

	return &attachment.Attachment{
		Name: old.Name,
		Path: old.Path,
		Size: size,
		Type: old.Type,
		Mime: old.Mime,
	}, nil
}

// Delete removes the file at rel.
func (u *Uploader) Delete(ctx context.Context, rel string) error {
	return u.store.Delete(ctx, rel)
}

// URL returns the public URL of rel. Values that are already absolute URLs
// are returned unchanged.
func (u *Uploader) URL(rel string) string {
	if parsed, err := url.Parse(rel); err == nil && parsed.IsAbs() && parsed.Host != "" {
		return rel
	}
	return u.store.PublicURL(rel)
}

// write stores f at rel and reports the byte count and detected mime type.
// A staged temp file is moved: it is removed once copied.
func (u *Uploader) write(ctx context.Context, rel string, f attachment.File, ext string) (int64, string, error) {
	if f.TmpName != "" {
		return u.moveFile(ctx, rel, f.TmpName, ext)
	}

	content := f.Content()
	if len(content) == 0 {
		return 0, "", ErrNoContent
	}
	mimeType := detectMime(mimetype.Detect(content), ext)
	if err := u.store.Upload(ctx, rel, bytes.NewReader(content), int64(len(content)), mimeType); err != nil {
		return 0, "", fmt.Errorf("%w: %w", attachment.ErrLocalIO, err)
	}
	return int64(len(content)), mimeType, nil
}

func (u *Uploader) moveFile(ctx context.Context, rel, tmp, ext string) (int64, string, error) {
	src, err := os.Open(tmp)
	if err != nil {
		return 0, "", fmt.Errorf("%w: open staged file: %w", attachment.ErrLocalIO, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, "", fmt.Errorf("%w: stat staged file: %w", attachment.ErrLocalIO, err)
	}
	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return 0, "", fmt.Errorf("%w: sniff staged file: %w", attachment.ErrLocalIO, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, "", fmt.Errorf("%w: rewind staged file: %w", attachment.ErrLocalIO, err)
	}

	mimeType := detectMime(detected, ext)
	if err := u.store.Upload(ctx, rel, src, info.Size(), mimeType); err != nil {
		return 0, "", fmt.Errorf("%w: %w", attachment.ErrLocalIO, err)
	}
	src.Close()
	if err := os.Remove(tmp); err != nil {
		u.logger.Warn("could not remove staged file", "path", tmp, "error", err)
	}
	return info.Size(), mimeType, nil
}

// detectMime prefers the sniffed type and falls back to the extension when
// sniffing only found an opaque binary.
func detectMime(detected *mimetype.MIME, ext string) string {
	if !detected.Is("application/octet-stream") {
		return stripParams(detected.String())
	}
	if byExt := mime.TypeByExtension("." + ext); byExt != "" {
		return stripParams(byExt)
	}
	return "application/octet-stream"
}

func stripParams(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		return strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

func fileName(ext string) string {
	name := strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(uuid.NewString()))), 10)
	if ext != "" {
		name += "." + ext
	}
	return name
}
