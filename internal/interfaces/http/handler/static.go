package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/dto"
)

// StaticHandler serves the pre-built frontend bundle.
// Unknown GET paths receive index.html so the client router can resolve them.
type StaticHandler struct {
	BaseHandler
	dir string
}

// NewStaticHandler creates a handler serving files from dir
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

// Serve answers GET and HEAD with a file from the bundle or index.html
func (h *StaticHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		NotFound(c)
		return
	}

	name := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		c.File(name)
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		NotFound(c)
		return
	}
	c.File(index)
}

// NotFound answers with the JSON not found body
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.MsgNotFound))
}
