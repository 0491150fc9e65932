package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notionboard/internal/notion"
)

type queryRequest struct {
	DatabaseID  string          `json:"databaseId"`
	Filter      json.RawMessage `json:"filter"`
	Sorts       json.RawMessage `json:"sorts"`
	StartCursor string          `json:"startCursor"`
	PageSize    int             `json:"pageSize"`
}

type createPageRequest struct {
	DatabaseID string          `json:"databaseId"`
	Properties json.RawMessage `json:"properties"`
	Children   json.RawMessage `json:"children"`
}

type updatePageRequest struct {
	PageID     string          `json:"pageId"`
	Properties json.RawMessage `json:"properties"`
}

var (
	errDatabaseID = errors.New("Database ID is required")
	errPageID     = errors.New("Page ID is required")
	errProperties = errors.New("Properties are required")
)

// handleGetDatabases lists shared databases, gets one with ?id=, or lists
// the inline databases of a page with ?pageId=.
func (s *Server) handleGetDatabases(c *gin.Context, sess Session) {
	ctx := c.Request.Context()

	if id := c.Query("id"); id != "" {
		db, err := s.notion.GetDatabase(ctx, sess.Token, id)
		if err != nil {
			s.respondNotionError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, db)
		return
	}

	if pageID := c.Query("pageId"); pageID != "" {
		dbs, err := s.notion.ChildDatabases(ctx, sess.Token, pageID)
		if err != nil {
			s.respondNotionError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, dbs)
		return
	}

	dbs, err := s.notion.ListDatabases(ctx, sess.Token)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dbs)
}

// handleQueryDatabase runs one page of a database query.
func (s *Server) handleQueryDatabase(c *gin.Context, sess Session) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.DatabaseID == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}

	filter, err := notion.ParseFilter(req.Filter)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sorts, err := notion.ParseSorts(req.Sorts)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.notion.QueryDatabase(c.Request.Context(), sess.Token, req.DatabaseID, notion.QueryRequest{
		Filter:      filter,
		Sorts:       sorts,
		StartCursor: req.StartCursor,
		PageSize:    req.PageSize,
	})
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

func (s *Server) handleGetPage(c *gin.Context, sess Session) {
	id := c.Query("id")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errPageID)
		return
	}
	page, err := s.notion.GetPage(c.Request.Context(), sess.Token, id)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (s *Server) handleCreatePage(c *gin.Context, sess Session) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.DatabaseID == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	if len(req.Properties) == 0 || string(req.Properties) == "null" {
		s.respondError(c, http.StatusBadRequest, errProperties)
		return
	}

	props, err := notion.ParseProperties(req.Properties)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	children, err := notion.ParseChildren(req.Children)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	page, err := s.notion.CreatePage(c.Request.Context(), sess.Token, req.DatabaseID, props, children)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (s *Server) handleUpdatePage(c *gin.Context, sess Session) {
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.PageID == "" {
		s.respondError(c, http.StatusBadRequest, errPageID)
		return
	}
	if len(req.Properties) == 0 || string(req.Properties) == "null" {
		s.respondError(c, http.StatusBadRequest, errProperties)
		return
	}

	props, err := notion.ParseProperties(req.Properties)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	page, err := s.notion.UpdatePage(c.Request.Context(), sess.Token, req.PageID, props)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

// handleArchivePage soft-deletes a page.
func (s *Server) handleArchivePage(c *gin.Context, sess Session) {
	id := c.Query("id")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errPageID)
		return
	}
	page, err := s.notion.ArchivePage(c.Request.Context(), sess.Token, id)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (s *Server) handlePageBlocks(c *gin.Context, sess Session) {
	blocks, err := s.notion.ListBlocks(c.Request.Context(), sess.Token, c.Param("pageId"))
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, blocks)
}
