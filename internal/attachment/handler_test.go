package attachment

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lskyplus/bridge/internal/lsky"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestHandler(t *testing.T, remote *fakeRemote, local *fakeFallback) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	return NewHandler(newTestRouter(remote, local), dir, 1<<20, nil), dir
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func serve(h http.HandlerFunc, method, contentType string, body *bytes.Buffer) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, "/api/v1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestHandler_Upload_MultipartImage(t *testing.T) {
	remote := &fakeRemote{uploadResp: okUpload}
	local := &fakeFallback{}
	h, tmpDir := newTestHandler(t, remote, local)

	body, ct := multipartBody(t, nil, "Holiday.PNG", "png bytes")
	rec, env := serve(h.Upload, http.MethodPost, ct, body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	var att Attachment
	require.NoError(t, json.Unmarshal(env.Data, &att))
	assert.Equal(t, "k1", att.ImgID)
	assert.Equal(t, "https://h/x.png", att.Path)
	assert.Equal(t, "png bytes", string(remote.uploadedBytes))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must be cleaned up")
}

func TestHandler_Upload_NameFieldOverridesFileName(t *testing.T) {
	remote := &fakeRemote{}
	local := &fakeFallback{uploadResult: &Attachment{Path: "/usr/uploads/2024/05/1.pdf"}}
	h, _ := newTestHandler(t, remote, local)

	body, ct := multipartBody(t, map[string]string{"name": "report.pdf"}, "blob", "%PDF-1.4")
	rec, _ := serve(h.Upload, http.MethodPost, ct, body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, local.uploads, 1)
	assert.Equal(t, "report.pdf", local.uploads[0].Name)
	assert.NotEmpty(t, local.uploads[0].TmpName)
}

func TestHandler_Upload_JSONBytesIgnoresTmpName(t *testing.T) {
	remote := &fakeRemote{uploadResp: okUpload}
	local := &fakeFallback{uploadResult: &Attachment{Path: "/usr/uploads/2024/05/2.png"}}
	h, _ := newTestHandler(t, remote, local)

	body := jsonBody(t, map[string]any{"name": "a.png", "tmp_name": "/etc/passwd", "bytes": []byte("img")})
	rec, env := serve(h.Upload, http.MethodPost, "application/json", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	require.Len(t, local.uploads, 1)
	assert.Empty(t, local.uploads[0].TmpName)
	assert.Equal(t, []byte("img"), local.uploads[0].Bytes)
	assert.Empty(t, remote.uploaded)
}

func TestHandler_Upload_Failures(t *testing.T) {
	tests := []struct {
		name     string
		remote   *fakeRemote
		fileName string
		want     int
	}{
		{"remote rejected", &fakeRemote{uploadResp: &lsky.Response{Status: false}}, "a.png", http.StatusBadGateway},
		{"remote unreachable", &fakeRemote{uploadErr: lsky.ErrNoResponse}, "a.png", http.StatusBadGateway},
		{"disallowed type", &fakeRemote{}, "a.php", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := &fakeFallback{uploadResult: &Attachment{}}
			h, _ := newTestHandler(t, tt.remote, local)

			body, ct := multipartBody(t, nil, tt.fileName, "data")
			rec, env := serve(h.Upload, http.MethodPost, ct, body)

			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, local.uploads)
		})
	}
}

func TestHandler_Upload_MissingFileField(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRemote{}, &fakeFallback{})
	body, ct := multipartBody(t, map[string]string{"name": "a.png"}, "", "")
	rec, env := serve(h.Upload, http.MethodPost, ct, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_Modify_Multipart(t *testing.T) {
	remote := &fakeRemote{deleteResp: &lsky.Response{Status: true}, uploadResp: okUpload}
	h, _ := newTestHandler(t, remote, &fakeFallback{})

	old, err := json.Marshal(Content{Title: "a.png", Attachment: Attachment{ImgID: "k0", Type: "png", Path: "https://h/old.png"}})
	require.NoError(t, err)
	body, ct := multipartBody(t, map[string]string{"content": string(old)}, "b.png", "new")
	rec, env := serve(h.Modify, http.MethodPut, ct, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, []string{"k0"}, remote.deleted)
	assert.Len(t, remote.uploaded, 1)
}

func TestHandler_Modify_TypeMismatch(t *testing.T) {
	remote := &fakeRemote{}
	h, _ := newTestHandler(t, remote, &fakeFallback{})

	body := jsonBody(t, modifyRequest{
		Content: Content{Title: "a.png", Attachment: Attachment{ImgID: "k0", Type: "png"}},
		File:    File{Name: "a.gif", Bytes: []byte("gif")},
	})
	rec, env := serve(h.Modify, http.MethodPut, "application/json", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Success)
	assert.Empty(t, remote.deleted)
}

func TestHandler_Modify_MissingContentField(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRemote{}, &fakeFallback{})
	body, ct := multipartBody(t, nil, "b.png", "new")
	rec, _ := serve(h.Modify, http.MethodPut, ct, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	c := Content{Title: "a.png", Attachment: Attachment{ImgID: "k1", Path: "https://h/x.png"}}

	h, _ := newTestHandler(t, &fakeRemote{deleteResp: &lsky.Response{Status: true}}, &fakeFallback{})
	rec, env := serve(h.Delete, http.MethodPost, "application/json", jsonBody(t, c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"deleted":true}`, string(env.Data))

	h, _ = newTestHandler(t, &fakeRemote{deleteResp: &lsky.Response{Status: false}}, &fakeFallback{})
	rec, env = serve(h.Delete, http.MethodPost, "application/json", jsonBody(t, c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_ResolveURL(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRemote{}, &fakeFallback{})

	c := Content{Title: "doc.pdf", Attachment: Attachment{Path: "/usr/uploads/doc.pdf"}}
	rec, env := serve(h.ResolveURL, http.MethodPost, "application/json", jsonBody(t, c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://blog.example.com/usr/uploads/doc.pdf"}`, string(env.Data))

	rec, _ = serve(h.ResolveURL, http.MethodPost, "application/json", bytes.NewBufferString("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIsMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	assert.True(t, isMultipart(req))

	req.Header.Set("Content-Type", "application/json")
	assert.False(t, isMultipart(req))
}
