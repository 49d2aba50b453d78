package attachment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/lskyplus/bridge/internal/lsky"
)

// RemoteHost is the image host API the router needs. *lsky.Client implements it.
type RemoteHost interface {
	Upload(ctx context.Context, localPath string) (*lsky.Response, error)
	Delete(ctx context.Context, key string) (*lsky.Response, error)
}

// Fallback stores attachments that do not go to the image host.
type Fallback interface {
	// Upload stores a new file with extension ext under a fresh path.
	Upload(ctx context.Context, f File, ext string) (*Attachment, error)
	// Modify replaces the content at old.Path, keeping the old metadata except size.
	Modify(ctx context.Context, old Attachment, f File) (*Attachment, error)
	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL of path.
	URL(path string) string
}

// Observer is told about every image the router stored on or removed from
// the image host. It must not block for long.
type Observer interface {
	ImageStored(ctx context.Context, att Attachment)
	ImageDeleted(ctx context.Context, key string)
}

type nopObserver struct{}

func (nopObserver) ImageStored(context.Context, Attachment) {}
func (nopObserver) ImageDeleted(context.Context, string)    {}

// Router implements the four CMS attachment hooks. It keeps no state between
// calls and is safe for concurrent use when its collaborators are.
type Router struct {
	remote   RemoteHost
	local    Fallback
	types    TypePolicy
	observer Observer
	logger   *slog.Logger
}

// NewRouter wires a Router.
func NewRouter(remote RemoteHost, local Fallback, types TypePolicy, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		remote:   remote,
		local:    local,
		types:    types,
		observer: nopObserver{},
		logger:   logger.With("component", "attachment"),
	}
}

// WithObserver returns a copy of r reporting remote changes to o.
func (r *Router) WithObserver(o Observer) *Router {
	c := *r
	c.observer = o
	return &c
}

// Upload handles a new upload. Images with a staged temp file go to the image
// host; everything else goes to local storage unchanged. A failed remote
// upload is an error: images never silently land on local storage.
func (r *Router) Upload(ctx context.Context, f File) (*Attachment, error) {
	if f.Name == "" {
		return nil, ErrEmptyName
	}
	_, ext := SafeName(f.Name)
	if !r.types.Allowed(ext) {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedType, ext)
	}

	if f.TmpName != "" && IsImage(ext) {
		return r.uploadRemote(ctx, f, ext)
	}
	return r.local.Upload(ctx, f, ext)
}

// Modify replaces the content of an existing attachment. The file type may not change.
func (r *Router) Modify(ctx context.Context, old Content, f File) (*Attachment, error) {
	if f.Name == "" {
		return nil, ErrEmptyName
	}
	_, ext := SafeName(f.Name)
	if ext != old.Attachment.Type {
		return nil, fmt.Errorf("%w: %q -> %q", ErrTypeMismatch, old.Attachment.Type, ext)
	}

	rem, ok := old.Attachment.Location(ext).(Remote)
	if !ok {
		return r.local.Modify(ctx, old.Attachment, f)
	}
	if !f.HasContent() {
		return nil, ErrNoContent
	}

	if err := r.deleteRemote(ctx, rem.Key); err != nil {
		r.logger.Warn("could not delete replaced image", "key", rem.Key, "error", err)
	}
	if f.TmpName != "" {
		return r.uploadRemote(ctx, f, ext)
	}

	// The old path is a remote URL, so there is nothing to overwrite in place.
	att, err := r.local.Upload(ctx, f, ext)
	if err != nil {
		return nil, err
	}
	att.Name = old.Attachment.Name
	return att, nil
}

// Delete removes an attachment from wherever it lives. It returns nil only
// when the image host confirmed the deletion or the local file was unlinked.
func (r *Router) Delete(ctx context.Context, c Content) error {
	_, ext := SafeName(c.Title)

	switch loc := c.Attachment.Location(ext).(type) {
	case Remote:
		return r.deleteRemote(ctx, loc.Key)
	case Local:
		if err := r.local.Delete(ctx, loc.Path); err != nil {
			return fmt.Errorf("%w: delete %q: %w", ErrLocalIO, loc.Path, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown attachment location %T", loc)
	}
}

// ResolveURL returns the public URL of an attachment. Images are returned
// with their stored path as is, whether or not they carry a remote key.
func (r *Router) ResolveURL(c Content) string {
	_, ext := SafeName(c.Title)
	if IsImage(ext) {
		return c.Attachment.Path
	}
	return r.local.URL(c.Attachment.Path)
}

// uploadRemote gives the staged file its extension, sends it to the image
// host and removes the local copy whatever the outcome.
func (r *Router) uploadRemote(ctx context.Context, f File, ext string) (*Attachment, error) {
	imgFile := f.TmpName + "." + ext
	if err := os.Rename(f.TmpName, imgFile); err != nil {
		return nil, fmt.Errorf("%w: rename staged file: %w", ErrLocalIO, err)
	}
	defer func() {
		if err := os.Remove(imgFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("could not remove staged file", "path", imgFile, "error", err)
		}
	}()

	resp, err := r.remote.Upload(ctx, imgFile)
	if err != nil {
		return nil, fmt.Errorf("%w: upload: %w", ErrRemoteFailed, err)
	}
	if !resp.Status || resp.Data == nil {
		return nil, fmt.Errorf("%w: upload rejected: %s", ErrRemoteFailed, resp.Message)
	}

	d := resp.Data
	att := &Attachment{
		ImgID: d.Key,
		Name:  d.Name,
		Path:  d.Links.URL,
		Size:  int64(math.Round(d.Size)),
		Type:  ext,
		Mime:  d.Mimetype,
	}
	r.logger.Info("image uploaded", "key", att.ImgID, "url", att.Path)
	r.observer.ImageStored(ctx, *att)
	return att, nil
}

func (r *Router) deleteRemote(ctx context.Context, key string) error {
	resp, err := r.remote.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: delete %q: %w", ErrRemoteFailed, key, err)
	}
	if !resp.Status {
		return fmt.Errorf("%w: delete %q rejected: %s", ErrRemoteFailed, key, resp.Message)
	}
	r.observer.ImageDeleted(ctx, key)
	return nil
}
