package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errEndpointNotFound = errors.New("endpoint not found")

func (s *Server) handleNotFound(c *gin.Context) {
	s.respondError(c, http.StatusNotFound, errEndpointNotFound)
}

// exists reports whether path is present and, when dir is set, a directory.
func exists(path string, dir bool) bool {
	info, err := os.Stat(path)
	return err == nil && (!dir || info.IsDir())
}

// mountStatic serves the built dashboard. Paths outside /api/ that match no
// route get index.html so the client router can take over; /api/ misses get
// the JSON envelope.
func (s *Server) mountStatic() {
	index := filepath.Join(s.staticDir, "index.html")
	if s.staticDir == "" || !exists(s.staticDir, true) || !exists(index, false) {
		s.logger.Warn("dashboard build not found; serving API only", zap.String("static", s.staticDir))
		s.engine.NoRoute(s.handleNotFound)
		return
	}

	s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			s.handleNotFound(c)
			return
		}
		c.File(index)
	})

	if assets := filepath.Join(s.staticDir, "assets"); exists(assets, true) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}
	for _, name := range []string{"favicon.ico", "og-image.png"} {
		if p := filepath.Join(s.staticDir, name); exists(p, false) {
			s.engine.StaticFile("/"+name, p)
		}
	}
}
