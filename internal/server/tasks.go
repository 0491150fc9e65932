package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"notionboard/internal/models"
	"notionboard/internal/notion"
)

type taskRequest struct {
	DatabaseID  string              `json:"databaseId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *dueDate            `json:"dueDate" copier:"-"`
	StoryPoints *float64            `json:"storyPoints"`
	Labels      []string            `json:"labels"`
}

type taskPatchRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     *dueDate             `json:"dueDate" copier:"-"`
	StoryPoints *float64             `json:"storyPoints"`
	Labels      []string             `json:"labels"`
}

// dueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
type dueDate time.Time

func (d *dueDate) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("dueDate must be a string: %w", err)
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			*d = dueDate(t)
			return nil
		}
	}
	return fmt.Errorf("invalid dueDate %q, want YYYY-MM-DD or RFC 3339", raw)
}

func (d *dueDate) value() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}

func validateEnums(status *models.TaskStatus, priority *models.TaskPriority) error {
	if status != nil {
		if _, ok := models.ValidTaskStatuses[*status]; !ok {
			return fmt.Errorf("invalid status %q", *status)
		}
	}
	if priority != nil {
		if _, ok := models.ValidTaskPriorities[*priority]; !ok {
			return fmt.Errorf("invalid priority %q", *priority)
		}
	}
	return nil
}

func (s *Server) mapper() notion.Mapper {
	return notion.Mapper{Now: s.now}
}

// loadTasks reads every page of a task database with the given default
// status for pages that have none.
func (s *Server) loadTasks(c *gin.Context, sess Session, databaseID string, def models.TaskStatus) ([]models.Task, error) {
	pages, err := s.notion.QueryAll(c.Request.Context(), sess.Token, databaseID)
	if err != nil {
		return nil, err
	}
	return s.mapper().TasksFromPages(pages, def), nil
}

// handleTasks returns the task read model of a database.
func (s *Server) handleTasks(c *gin.Context, sess Session) {
	id := c.Query("databaseId")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	tasks, err := s.loadTasks(c, sess, id, models.StatusBacklog)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask writes a task under the default property names.
func (s *Server) handleCreateTask(c *gin.Context, sess Session) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.DatabaseID == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	if req.Title == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("title is required"))
		return
	}
	if req.Status == "" {
		req.Status = models.StatusTodo
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if err := validateEnums(&req.Status, &req.Priority); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	var task models.Task
	if err := copier.Copy(&task, &req); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	task.DueDate = req.DueDate.value()
	page, err := s.notion.CreatePage(c.Request.Context(), sess.Token, req.DatabaseID, notion.TaskProperties(task), nil)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, s.mapper().Task(notion.Decode(*page), models.StatusBacklog))
}

// handlePatchTask updates the given fields of a task page.
func (s *Server) handlePatchTask(c *gin.Context, sess Session) {
	var req taskPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := validateEnums(req.Status, req.Priority); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	var patch models.TaskPatch
	if err := copier.Copy(&patch, &req); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	patch.DueDate = req.DueDate.value()
	props := notion.PatchProperties(patch)
	if len(props) == 0 {
		s.respondError(c, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}

	page, err := s.notion.UpdatePage(c.Request.Context(), sess.Token, c.Param("id"), props)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, s.mapper().Task(notion.Decode(*page), models.StatusBacklog))
}

// handleBoard buckets a task database into Kanban columns.
func (s *Server) handleBoard(c *gin.Context, sess Session) {
	id := c.Query("databaseId")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	tasks, err := s.loadTasks(c, sess, id, models.StatusTodo)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, models.NewBoard(id, tasks))
}

// memberTasks loads the optional task database that sprints and epics
// reference.
func (s *Server) memberTasks(c *gin.Context, sess Session) ([]models.Task, error) {
	id := c.Query("tasksDatabaseId")
	if id == "" {
		return nil, nil
	}
	return s.loadTasks(c, sess, id, models.StatusBacklog)
}

func (s *Server) handleSprints(c *gin.Context, sess Session) {
	id := c.Query("databaseId")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	tasks, err := s.memberTasks(c, sess)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	pages, err := s.notion.QueryAll(c.Request.Context(), sess.Token, id)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}

	m := s.mapper()
	sprints := make([]models.Sprint, 0, len(pages))
	for _, p := range pages {
		sprints = append(sprints, m.Sprint(notion.Decode(p), tasks))
	}
	respondSuccess(c, http.StatusOK, sprints)
}

func (s *Server) handleEpics(c *gin.Context, sess Session) {
	id := c.Query("databaseId")
	if id == "" {
		s.respondError(c, http.StatusBadRequest, errDatabaseID)
		return
	}
	tasks, err := s.memberTasks(c, sess)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}
	pages, err := s.notion.QueryAll(c.Request.Context(), sess.Token, id)
	if err != nil {
		s.respondNotionError(c, err)
		return
	}

	m := s.mapper()
	epics := make([]models.Epic, 0, len(pages))
	for _, p := range pages {
		epics = append(epics, m.Epic(notion.Decode(p), tasks))
	}
	respondSuccess(c, http.StatusOK, epics)
}
