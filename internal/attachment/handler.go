package attachment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/lskyplus/bridge/internal/metrics"
	"github.com/lskyplus/bridge/internal/middleware"
	"github.com/lskyplus/bridge/internal/response"
)

// Handler exposes the Router to the CMS over HTTP.
type Handler struct {
	router    *Router
	tmpDir    string
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates a Handler. Uploaded files are staged in tmpDir and
// bodies larger than maxUpload bytes are refused.
func NewHandler(router *Router, tmpDir string, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{router: router, tmpDir: tmpDir, maxUpload: maxUpload, logger: logger}
}

type modifyRequest struct {
	Content Content `json:"content"`
	File    File    `json:"file"`
}

// deleteData answers a successful delete. Deleted is always true: a failed
// delete is reported as an error envelope instead.
type deleteData struct {
	Deleted bool `json:"deleted" example:"true"`
}

type urlData struct {
	URL string `json:"url" example:"https://img.example.com/i/2024/05/07/abc.png"`
}

// Upload godoc
//
//	@Summary		Upload attachment
//	@Description	Stores a new attachment. Images go to the image host, other files to local storage. Accepts multipart (field "file", optional "name") or a JSON file descriptor with base64 "bytes"/"bits".
//	@Tags			attachments
//	@Accept			multipart/form-data,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	false	"Uploaded file"
//	@Success		201		{object}	response.Envelope{data=Attachment}
//	@Failure		400		{object}	response.Envelope
//	@Failure		422		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/attachments [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	f, cleanup, err := h.readFile(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	defer cleanup()

	att, err := h.router.Upload(r.Context(), f)
	if err != nil {
		h.fail(w, r, "upload", err)
		return
	}
	metrics.ObserveHook("upload", target(att), metrics.OutcomeOK)
	response.Created(w, att)
}

// Modify godoc
//
//	@Summary		Replace attachment content
//	@Description	Replaces the content of an existing attachment. The file type may not change. Multipart requests carry the old record as JSON in form field "content".
//	@Tags			attachments
//	@Accept			multipart/form-data,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	false	"Replacement file"
//	@Param			content	formData	string	false	"Existing attachment record (JSON)"
//	@Success		200		{object}	response.Envelope{data=Attachment}
//	@Failure		400		{object}	response.Envelope
//	@Failure		422		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/attachments [put]
func (h *Handler) Modify(w http.ResponseWriter, r *http.Request) {
	var (
		old     Content
		f       File
		cleanup = func() {}
		err     error
	)
	if isMultipart(r) {
		f, cleanup, err = h.readFile(w, r)
		if err == nil {
			err = json.Unmarshal([]byte(r.FormValue("content")), &old)
		}
	} else {
		var req modifyRequest
		err = h.decodeJSON(w, r, &req)
		old, f = req.Content, req.File
		f.TmpName = ""
	}
	defer cleanup()
	if err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	att, err := h.router.Modify(r.Context(), old, f)
	if err != nil {
		h.fail(w, r, "modify", err)
		return
	}
	metrics.ObserveHook("modify", target(att), metrics.OutcomeOK)
	response.OK(w, att)
}

// Delete godoc
//
//	@Summary		Delete attachment
//	@Description	Removes an attachment from the image host or local storage.
//	@Tags			attachments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Content	true	"Existing attachment record"
//	@Success		200		{object}	response.Envelope{data=deleteData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/attachments/delete [post]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var c Content
	if err := h.decodeJSON(w, r, &c); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.router.Delete(r.Context(), c); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	metrics.ObserveHook("delete", "", metrics.OutcomeOK)
	response.OK(w, deleteData{Deleted: true})
}

// ResolveURL godoc
//
//	@Summary		Resolve attachment URL
//	@Description	Returns the public URL of an attachment. Has no side effects.
//	@Tags			attachments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Content	true	"Existing attachment record"
//	@Success		200		{object}	response.Envelope{data=urlData}
//	@Failure		400		{object}	response.Envelope
//	@Router			/attachments/url [post]
func (h *Handler) ResolveURL(w http.ResponseWriter, r *http.Request) {
	var c Content
	if err := h.decodeJSON(w, r, &c); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	response.OK(w, urlData{URL: h.router.ResolveURL(c)})
}

// readFile builds a File from a multipart or JSON request. Multipart uploads
// are staged in a temp file that cleanup removes if the router left it behind.
// A JSON descriptor may not name a server-side temp file.
func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (File, func(), error) {
	noop := func() {}
	if !isMultipart(r) {
		var f File
		if err := h.decodeJSON(w, r, &f); err != nil {
			return File{}, noop, errors.New("invalid request body")
		}
		f.TmpName = ""
		return f, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return File{}, noop, errors.New("could not parse multipart form")
	}
	src, hdr, err := r.FormFile("file")
	if err != nil {
		return File{}, noop, errors.New(`multipart field "file" is required`)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(h.tmpDir, "attachment-*")
	if err != nil {
		h.logger.Error("could not create staging file", "dir", h.tmpDir, "error", err)
		return File{}, noop, errors.New("could not stage upload")
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("could not remove staging file", "path", tmp.Name(), "error", err)
		}
	}
	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		cleanup()
		return File{}, noop, fmt.Errorf("could not stage upload: %w", errors.Join(copyErr, closeErr))
	}

	name := r.FormValue("name")
	if name == "" {
		name = hdr.Filename
	}
	return File{Name: name, TmpName: tmp.Name(), Size: hdr.Size}, cleanup, nil
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	return json.NewDecoder(r.Body).Decode(v)
}

// fail maps router errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, hook string, err error) {
	log := h.logger.With("hook", hook, "site", middleware.Site(r.Context()), "error", err)

	switch {
	case errors.Is(err, ErrInvalidInput):
		metrics.ObserveHook(hook, "", metrics.OutcomeRejected)
		log.Info("attachment request rejected")
		response.UnprocessableEntity(w, err.Error())
	case errors.Is(err, ErrRemoteFailed):
		metrics.ObserveHook(hook, "remote", metrics.OutcomeError)
		log.Warn("image host request failed")
		response.BadGateway(w, "image host request failed")
	default:
		metrics.ObserveHook(hook, "local", metrics.OutcomeError)
		log.Error("attachment request failed")
		response.InternalError(w)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func target(att *Attachment) string {
	if att.ImgID != "" {
		return "remote"
	}
	return "local"
}
