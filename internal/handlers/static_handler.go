package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/getmentor/getmentor-edge/pkg/errors"
	"github.com/getmentor/getmentor-edge/pkg/logger"
	"github.com/getmentor/getmentor-edge/pkg/tracing"
)

const indexFile = "index.html"

// StaticHandler serves files from a public directory for any unmatched route.
// Directories resolve to their index.html; listings are never produced.
type StaticHandler struct {
	root string
	fs   http.FileSystem
}

// NewStaticHandler serves from root. An empty root turns every request into a 404.
func NewStaticHandler(root string) *StaticHandler {
	h := &StaticHandler{root: root}
	if root != "" {
		h.fs = http.Dir(root)
	}
	return h
}

// Ready reports whether the public directory is usable
func (h *StaticHandler) Ready() bool {
	if h.fs == nil {
		return true
	}
	info, err := os.Stat(h.root)
	return err == nil && info.IsDir()
}

func (h *StaticHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		respondError(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	name := path.Clean("/" + c.Request.URL.Path)
	if h.fs == nil {
		respondError(c, http.StatusNotFound, "Not found", apperrors.NotFoundError(name))
		return
	}

	ctx, span := tracing.StartSpan(c.Request.Context(), "static.serve")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	f, info, err := h.open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			respondError(c, http.StatusNotFound, "Not found", apperrors.NotFoundError(name))
			return
		}
		logger.LogError(err, "Failed to open static file", zap.String("path", name))
		respondError(c, http.StatusInternalServerError, "Internal server error", apperrors.InternalError("open "+name))
		return
	}
	defer f.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// open resolves name to a regular file, following a directory to its index
func (h *StaticHandler) open(name string) (http.File, fs.FileInfo, error) {
	f, err := h.fs.Open(name)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.IsDir() {
		return f, info, nil
	}

	f.Close()
	index, err := h.fs.Open(path.Join(name, indexFile))
	if err != nil {
		return nil, nil, err
	}
	info, err = index.Stat()
	if err != nil || info.IsDir() {
		index.Close()
		return nil, nil, fs.ErrNotExist
	}
	return index, info, nil
}
