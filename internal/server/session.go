package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notionboard/internal/models"
	"notionboard/internal/storage/sqlite"
)

const (
	stateCookie     = "notion_oauth_state"
	sessionCookie   = "notion_access_token"
	workspaceCookie = "notion_workspace"

	stateTTL   = 10 * time.Minute
	sessionTTL = 30 * 24 * time.Hour
)

// Session is the caller's resolved identity. An anonymous session has an
// empty ID and Token.
type Session struct {
	ID        string
	Token     string
	Workspace models.Workspace
}

// Key identifies the caller for rate limiting.
func (s Session) Key(c *gin.Context) string {
	if s.ID != "" {
		return "session:" + s.ID
	}
	return "ip:" + c.ClientIP()
}

// withSession resolves the session cookie and hands the result to h.
func (s *Server) withSession(h func(*gin.Context, Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, s.resolveSession(c))
	}
}

// withAuth is withSession for routes that act on a Notion workspace: the
// caller must hold a live session. The integration key never serves HTTP
// callers.
func (s *Server) withAuth(h func(*gin.Context, Session)) gin.HandlerFunc {
	return s.withSession(func(c *gin.Context, sess Session) {
		if sess.Token == "" {
			s.respondError(c, http.StatusUnauthorized, errNotAuthenticated)
			return
		}
		h(c, sess)
	})
}

func (s *Server) resolveSession(c *gin.Context) Session {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" || s.store == nil {
		return Session{}
	}

	rec, err := s.store.GetSession(c.Request.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		return Session{}
	}
	if err != nil {
		s.logger.Warn("session lookup failed", zap.Error(err))
		return Session{}
	}
	return Session{ID: rec.ID, Token: rec.AccessToken, Workspace: rec.Workspace}
}

func (s *Server) setCookie(c *gin.Context, name, value string, ttl time.Duration, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", s.cfg.Production(), httpOnly)
}

func (s *Server) clearCookie(c *gin.Context, name string, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", s.cfg.Production(), httpOnly)
}

func (s *Server) setSessionCookies(c *gin.Context, sess models.Session) {
	s.setCookie(c, sessionCookie, sess.ID, sessionTTL, true)
	if sess.Workspace.Name == "" {
		return
	}
	ws, err := json.Marshal(sess.Workspace)
	if err != nil {
		s.logger.Warn("encode workspace cookie", zap.Error(err))
		return
	}
	s.setCookie(c, workspaceCookie, string(ws), sessionTTL, false)
}
