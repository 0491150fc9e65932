package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	emailUnsafe  = regexp.MustCompile(`[^\w@.\-+]`)
	emailPattern = regexp.MustCompile(`^[\w.\-+]+@[\w.\-]+\.[a-zA-Z]{2,}$`)
)

type waitlistRequest struct {
	Email string `json:"email"`
}

// sanitizeEmail strips characters outside the accepted set and lowercases.
func sanitizeEmail(raw string) string {
	return strings.ToLower(emailUnsafe.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// handleWaitlist records an email address once.
func (s *Server) handleWaitlist(c *gin.Context) {
	var req waitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	email := sanitizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		s.respondError(c, http.StatusBadRequest, errors.New("Please enter a valid email address"))
		return
	}

	added, err := s.store.AddToWaitlist(c.Request.Context(), email)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	respondSuccess(c, status, gin.H{"email": email, "alreadyJoined": !added})
}
