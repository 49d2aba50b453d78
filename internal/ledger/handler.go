package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lskyplus/bridge/internal/response"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handler serves the journal over HTTP.
type Handler struct {
	journal Journal
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(journal Journal, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{journal: journal, logger: logger}
}

// List godoc
//
//	@Summary		List remote objects
//	@Description	Returns the images this service stored on the image host, newest first. Deleted objects carry deletedAt.
//	@Tags			objects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum number of objects (default 50, max 500)"
//	@Success		200		{object}	response.Envelope{data=[]Object}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/objects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	objs, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("could not list remote objects", "error", err)
		response.InternalError(w)
		return
	}
	response.OK(w, objs)
}
