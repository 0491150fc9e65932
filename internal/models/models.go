package models

import "time"

// TaskStatus is the board column a task belongs to.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

// ValidTaskStatuses enumerates the statuses supported by the board columns.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	StatusBacklog:    {},
	StatusTodo:       {},
	StatusInProgress: {},
	StatusReview:     {},
	StatusDone:       {},
}

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidTaskPriorities enumerates the accepted priorities.
var ValidTaskPriorities = map[TaskPriority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

// PhaseStatus is the lifecycle of sprints and epics.
type PhaseStatus string

const (
	PhasePlanning  PhaseStatus = "planning"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

// User is a Notion person or bot referenced by a task.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Task represents a single card on the board, backed by a Notion page.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	Assignee     *User        `json:"assignee,omitempty"`
	DueDate      *time.Time   `json:"dueDate,omitempty"`
	StoryPoints  *float64     `json:"storyPoints,omitempty"`
	EpicID       string       `json:"epicId,omitempty"`
	SprintID     string       `json:"sprintId,omitempty"`
	Labels       []string     `json:"labels"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	NotionPageID string       `json:"notionPageId,omitempty"`
}

// Points returns the story points or zero when unestimated.
func (t Task) Points() float64 {
	if t.StoryPoints == nil {
		return 0
	}
	return *t.StoryPoints
}

// TaskPatch carries the fields a caller wants to write to a task page.
// Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDate     *time.Time
	StoryPoints *float64
	Labels      []string
}

// Epic groups tasks toward a larger deliverable.
type Epic struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Status       PhaseStatus `json:"status"`
	Progress     int         `json:"progress"`
	Tasks        []Task      `json:"tasks"`
	Color        string      `json:"color,omitempty"`
	StartDate    *time.Time  `json:"startDate,omitempty"`
	EndDate      *time.Time  `json:"endDate,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	NotionPageID string      `json:"notionPageId,omitempty"`
}

// Sprint is a time box of tasks. Status and velocity are derived on read.
type Sprint struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Goal             string      `json:"goal,omitempty"`
	Status           PhaseStatus `json:"status"`
	StartDate        *time.Time  `json:"startDate,omitempty"`
	EndDate          *time.Time  `json:"endDate,omitempty"`
	Tasks            []Task      `json:"tasks"`
	Velocity         float64     `json:"velocity"`
	Capacity         *float64    `json:"capacity,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	NotionDatabaseID string      `json:"notionDatabaseId,omitempty"`
}

// SuggestionType classifies what an LLM suggestion proposes.
type SuggestionType string

const (
	SuggestionNewTask        SuggestionType = "new_task"
	SuggestionTaskUpdate     SuggestionType = "task_update"
	SuggestionPriorityChange SuggestionType = "priority_change"
	SuggestionSprintPlanning SuggestionType = "sprint_planning"
)

// Suggestion is an ephemeral LLM recommendation. It is never persisted.
type Suggestion struct {
	ID              string         `json:"id"`
	Type            SuggestionType `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Reasoning       string         `json:"reasoning"`
	Confidence      float64        `json:"confidence"`
	RelatedTaskIDs  []string       `json:"relatedTaskIds"`
	SuggestedValues map[string]any `json:"suggestedValues"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Analysis is the result of one suggestion request.
type Analysis struct {
	Suggestions []Suggestion `json:"suggestions"`
	Summary     string       `json:"summary"`
	Insights    []string     `json:"insights"`
}

// Workspace describes the Notion workspace an OAuth token belongs to.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Column is one status lane of the board.
type Column struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
	Tasks  []Task     `json:"tasks"`
}

// SprintMetrics aggregates task counts and points for a dashboard.
type SprintMetrics struct {
	TotalTasks           int     `json:"totalTasks"`
	CompletedTasks       int     `json:"completedTasks"`
	InProgressTasks      int     `json:"inProgressTasks"`
	TotalStoryPoints     float64 `json:"totalStoryPoints"`
	CompletedStoryPoints float64 `json:"completedStoryPoints"`
}

// Board is the Kanban read model of a task database.
type Board struct {
	DatabaseID string        `json:"databaseId"`
	Columns    []Column      `json:"columns"`
	Metrics    SprintMetrics `json:"metrics"`
}

var columnTitles = map[TaskStatus]string{
	StatusBacklog:    "Backlog",
	StatusTodo:       "To Do",
	StatusInProgress: "In Progress",
	StatusReview:     "Review",
	StatusDone:       "Done",
}

// NewBoard buckets tasks into the status columns and computes metrics.
func NewBoard(databaseID string, tasks []Task) Board {
	board := Board{DatabaseID: databaseID}
	index := make(map[TaskStatus]int, len(TaskStatuses))
	for i, status := range TaskStatuses {
		index[status] = i
		board.Columns = append(board.Columns, Column{
			ID:     string(status),
			Title:  columnTitles[status],
			Status: status,
			Tasks:  []Task{},
		})
	}

	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			i = index[StatusBacklog]
		}
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, t)
	}
	board.Metrics = ComputeMetrics(tasks)
	return board
}

// ComputeMetrics summarizes task counts and story points.
func ComputeMetrics(tasks []Task) SprintMetrics {
	var m SprintMetrics
	for _, t := range tasks {
		m.TotalTasks++
		m.TotalStoryPoints += t.Points()
		switch t.Status {
		case StatusDone:
			m.CompletedTasks++
			m.CompletedStoryPoints += t.Points()
		case StatusInProgress:
			m.InProgressTasks++
		}
	}
	return m
}

// Session binds an opaque browser cookie to a Notion access token.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"-"`
	BotID       string    `json:"botId,omitempty"`
	Workspace   Workspace `json:"workspace"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
