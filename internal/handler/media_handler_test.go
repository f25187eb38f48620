package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chilahati-archive-api/internal/middleware"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	"github.com/noah-isme/chilahati-archive-api/pkg/storage"
)

type mediaServiceMock struct {
	uploaded []byte
	filename string
	download *service.MediaDownload
}

func (m *mediaServiceMock) Upload(ctx context.Context, actor *models.JWTClaims, upload service.MediaUpload, meta service.AuditMeta) (*models.MediaAsset, error) {
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, err
	}
	m.uploaded = data
	m.filename = upload.Filename
	return &models.MediaAsset{ID: "m1", OriginalName: upload.Filename, URL: "https://archive.example.org/api/media/m1"}, nil
}

func (m *mediaServiceMock) Open(ctx context.Context, id string) (*service.MediaDownload, error) {
	return m.download, nil
}

func TestMediaHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &mediaServiceMock{}
	h := NewMediaHandler(mock)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "bridge.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/media", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Set(middleware.ContextUserKey, editorClaims)

	h.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "png-bytes", string(mock.uploaded))
	assert.Equal(t, "bridge.png", mock.filename)
	assert.Contains(t, w.Body.String(), "/api/media/m1")
}

func TestMediaHandlerUploadRequiresFile(t *testing.T) {
	h := NewMediaHandler(&mediaServiceMock{})
	c, w := jsonContext(http.MethodPost, "/admin/media", `{}`)
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaHandlerServe(t *testing.T) {
	content := []byte("%PDF-1.4")
	h := NewMediaHandler(&mediaServiceMock{download: &service.MediaDownload{
		Asset:  &models.MediaAsset{ID: "m1", OriginalName: "deed.pdf"},
		Object: &storage.Object{Body: io.NopCloser(bytes.NewReader(content)), Size: int64(len(content)), ContentType: "application/pdf"},
	}})
	c, w := jsonContext(http.MethodGet, "/media/m1", "")
	h.Serve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, content, w.Body.Bytes())

	h = NewMediaHandler(&mediaServiceMock{download: &service.MediaDownload{
		Asset:       &models.MediaAsset{ID: "m1"},
		RedirectURL: "https://bucket.example.org/2024/01/deed.pdf?sig=1",
	}})
	c, w = jsonContext(http.MethodGet, "/media/m1", "")
	h.Serve(c)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://bucket.example.org/2024/01/deed.pdf?sig=1", w.Header().Get("Location"))
}

func TestPagesHandlerFallsBackToIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.svg"), []byte("<svg/>"), 0o644))

	router := gin.New()
	router.NoRoute(NewPagesHandler(dir, "/api").Serve)

	cases := map[string]struct {
		path   string
		status int
		body   string
	}{
		"asset":        {path: "/logo.svg", status: http.StatusOK, body: "<svg/>"},
		"client route": {path: "/archive/people", status: http.StatusOK, body: "app"},
		"unknown api":  {path: "/api/nope", status: http.StatusNotFound, body: "NOT_FOUND"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}
