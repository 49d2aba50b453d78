package ledger

import (
	"context"
	"log/slog"

	"github.com/lskyplus/bridge/internal/attachment"
)

// Recorder writes the router's remote changes to a Journal. Journal errors
// are logged and never fail the hook that caused them.
type Recorder struct {
	journal Journal
	logger  *slog.Logger
}

var _ attachment.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder backed by journal.
func NewRecorder(journal Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{journal: journal, logger: logger.With("component", "ledger")}
}

// ImageStored records a new remote image.
func (r *Recorder) ImageStored(ctx context.Context, att attachment.Attachment) {
	obj := Object{
		Key:  att.ImgID,
		URL:  att.Path,
		Name: att.Name,
		Size: att.Size,
		Mime: att.Mime,
	}
	if err := r.journal.Uploaded(ctx, obj); err != nil {
		r.logger.Error("could not record uploaded image", "key", att.ImgID, "error", err)
	}
}

// ImageDeleted marks key as gone from the image host.
func (r *Recorder) ImageDeleted(ctx context.Context, key string) {
	if err := r.journal.Deleted(ctx, key); err != nil {
		r.logger.Error("could not record deleted image", "key", key, "error", err)
	}
}
