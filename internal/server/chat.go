package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notionboard/internal/command"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string        `json:"reply"`
	State command.State `json:"state"`
}

// handleChat runs one chat command against the caller's first database
// and returns the reply with the refreshed state.
func (s *Server) handleChat(c *gin.Context, sess Session) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("Message is required"))
		return
	}

	ctx := c.Request.Context()
	var completer command.Completer
	if s.llm != nil {
		completer = s.llm
	}
	in := command.New(s.notion.ForToken(sess.Token), completer, s.logger)

	st, err := in.Load(ctx)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	reply := in.Handle(ctx, st, req.Message)

	if refreshed, err := in.Load(ctx); err == nil {
		st = refreshed
	}
	respondSuccess(c, http.StatusOK, chatResponse{Reply: reply, State: st})
}
