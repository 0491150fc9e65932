package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"notionboard/internal/seo"
)

func (s *Server) handleRobots(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(seo.Robots(seo.DefaultRobots(s.cfg.Site.URL))))
}

func (s *Server) handleSitemap(c *gin.Context) {
	body, err := seo.Sitemap(seo.DefaultURLs(s.cfg.Site.URL, s.now().Truncate(24*time.Hour)))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
