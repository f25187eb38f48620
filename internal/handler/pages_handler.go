package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

// PagesHandler serves the built front-end with an index.html fallback for
// client-side routes.
type PagesHandler struct {
	dir       string
	apiPrefix string
}

// NewPagesHandler constructs the handler. An empty dir disables page serving.
func NewPagesHandler(dir, apiPrefix string) *PagesHandler {
	return &PagesHandler{dir: dir, apiPrefix: apiPrefix}
}

// Serve resolves the request path inside the pages directory.
func (h *PagesHandler) Serve(c *gin.Context) {
	if h.dir == "" || (h.apiPrefix != "" && strings.HasPrefix(c.Request.URL.Path, h.apiPrefix+"/")) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
		return
	}

	clean := path.Clean("/" + c.Request.URL.Path)
	candidate := filepath.Join(h.dir, filepath.FromSlash(clean))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		c.File(candidate)
		return
	}
	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "page not found"))
		return
	}
	c.File(index)
}
