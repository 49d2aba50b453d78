package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lskyplus/bridge/internal/attachment"
)

type fakeJournal struct {
	uploaded []Object
	deleted  []string
	limits   []int
	objs     []Object
	err      error
}

func (f *fakeJournal) Uploaded(_ context.Context, obj Object) error {
	f.uploaded = append(f.uploaded, obj)
	return f.err
}

func (f *fakeJournal) Deleted(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.err
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]Object, error) {
	f.limits = append(f.limits, limit)
	return f.objs, f.err
}

func TestRecorder_ImageStored(t *testing.T) {
	j := &fakeJournal{}
	NewRecorder(j, nil).ImageStored(context.Background(), attachment.Attachment{
		ImgID: "k1",
		Name:  "a.png",
		Path:  "https://img.example.com/a.png",
		Size:  42,
		Type:  "png",
		Mime:  "image/png",
	})

	require.Len(t, j.uploaded, 1)
	assert.Equal(t, Object{
		Key:  "k1",
		URL:  "https://img.example.com/a.png",
		Name: "a.png",
		Size: 42,
		Mime: "image/png",
	}, j.uploaded[0])
}

func TestRecorder_SwallowsJournalErrors(t *testing.T) {
	j := &fakeJournal{err: errors.New("connection refused")}
	r := NewRecorder(j, nil)

	assert.NotPanics(t, func() {
		r.ImageStored(context.Background(), attachment.Attachment{ImgID: "k1"})
		r.ImageDeleted(context.Background(), "k1")
	})
	assert.Equal(t, []string{"k1"}, j.deleted)
}

func TestHandler_List(t *testing.T) {
	created := time.Date(2024, 5, 7, 10, 0, 0, 0, time.UTC)
	j := &fakeJournal{objs: []Object{{Key: "k1", URL: "https://img.example.com/a.png", CreatedAt: created}}}
	h := NewHandler(j, nil)

	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, defaultLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=100000", http.StatusOK, maxLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			j.limits = nil
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/objects"+tt.query, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.Empty(t, j.limits)
				return
			}
			assert.Equal(t, []int{tt.wantLimit}, j.limits)

			var env struct {
				Success bool     `json:"success"`
				Data    []Object `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.True(t, env.Success)
			require.Len(t, env.Data, 1)
			assert.Equal(t, "k1", env.Data[0].Key)
			assert.True(t, created.Equal(env.Data[0].CreatedAt))
		})
	}
}

func TestHandler_List_JournalError(t *testing.T) {
	h := NewHandler(&fakeJournal{err: errors.New("boom")}, nil)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/objects", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNoop_RecentIsEmptyList(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(Noop{}, nil).List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/objects", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
}
