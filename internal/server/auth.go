package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"notionboard/internal/models"
)

const (
	dashboardPath = "/notion/sprint-dashboard"
	authErrorPath = "/notion/auth-error"
)

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// handleAuth issues an authorization URL and records its CSRF state.
func (s *Server) handleAuth(c *gin.Context) {
	fail := errors.New("Failed to generate authorization URL")
	if s.oauth == nil || !s.oauth.Configured() {
		s.respondError(c, http.StatusInternalServerError, fail)
		return
	}

	state, err := randomState()
	if err != nil {
		s.logger.Error("generate state", zap.Error(err))
		s.respondError(c, http.StatusInternalServerError, fail)
		return
	}
	if err := s.store.SaveState(c.Request.Context(), state, stateTTL); err != nil {
		s.logger.Error("save state", zap.Error(err))
		s.respondError(c, http.StatusInternalServerError, fail)
		return
	}

	s.setCookie(c, stateCookie, state, stateTTL, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "authUrl": s.oauth.AuthCodeURL(state)})
}

func (s *Server) redirectAuthError(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, authErrorPath+"?error="+url.QueryEscape(msg))
}

// handleCallback completes the OAuth flow and opens a session.
func (s *Server) handleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		desc := c.Query("error_description")
		if desc == "" {
			desc = e
		}
		s.redirectAuthError(c, desc)
		return
	}

	ctx := c.Request.Context()
	state := c.Query("state")
	stored, _ := c.Cookie(stateCookie)
	if state == "" || state != stored {
		s.redirectAuthError(c, "Invalid state parameter - possible CSRF attack")
		return
	}
	valid, err := s.store.ConsumeState(ctx, state)
	if err != nil {
		s.logger.Error("consume state", zap.Error(err))
	}
	if !valid {
		s.redirectAuthError(c, "Invalid state parameter - possible CSRF attack")
		return
	}

	code := c.Query("code")
	if code == "" {
		s.redirectAuthError(c, "No authorization code received")
		return
	}

	grant, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Token exchange failed"
		}
		s.logger.Warn("token exchange failed", zap.Error(err))
		s.redirectAuthError(c, msg)
		return
	}

	sess, err := s.store.CreateSession(ctx, models.Session{
		ID:          uuid.NewString(),
		AccessToken: grant.AccessToken,
		BotID:       grant.BotID,
		Workspace:   grant.Workspace,
	}, sessionTTL)
	if err != nil {
		s.logger.Error("create session", zap.Error(err))
		s.redirectAuthError(c, "Token exchange failed")
		return
	}

	s.clearCookie(c, stateCookie, true)
	s.setSessionCookies(c, sess)
	s.logger.Info("workspace connected", zap.String("workspace", sess.Workspace.Name))
	c.Redirect(http.StatusFound, dashboardPath)
}

var authErrorPage = template.Must(template.New("auth-error").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Notion connection failed</title></head>
<body>
<h1>Could not connect to Notion</h1>
<p>{{.}}</p>
<p><a href="/">Back</a></p>
</body>
</html>
`))

// handleAuthError renders the OAuth failure reason.
func (s *Server) handleAuthError(c *gin.Context) {
	msg := c.Query("error")
	if msg == "" {
		msg = "Unknown error"
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := authErrorPage.Execute(c.Writer, msg); err != nil {
		s.logger.Warn("render auth error page", zap.Error(err))
	}
}

// handleLogout drops the session and its cookies.
func (s *Server) handleLogout(c *gin.Context, sess Session) {
	if sess.ID != "" {
		if err := s.store.DeleteSession(c.Request.Context(), sess.ID); err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	s.clearCookie(c, sessionCookie, true)
	s.clearCookie(c, workspaceCookie, false)
	respondSuccess(c, http.StatusOK, gin.H{"loggedOut": true})
}
