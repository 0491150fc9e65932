package llm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"notionboard/internal/models"
)

const systemPrompt = `You are an expert agile project manager and software development assistant.
Your role is to analyze tasks, sprints, and epics to provide intelligent suggestions for:
1. Breaking down large tasks into smaller, actionable items
2. Prioritizing tasks based on dependencies and business value
3. Identifying potential blockers or risks
4. Suggesting sprint planning improvements
5. Recommending task status updates based on context

Always respond with structured JSON in the following format:
{
  "suggestions": [
    {
      "type": "new_task" | "task_update" | "priority_change" | "sprint_planning",
      "title": "Brief suggestion title",
      "description": "Detailed description of the suggestion",
      "reasoning": "Why this suggestion is being made",
      "confidence": 0.0-1.0,
      "relatedTaskIds": ["task-id-1", "task-id-2"],
      "suggestedValues": { /* partial task object */ }
    }
  ],
  "summary": "Brief overall summary",
  "insights": ["Insight 1", "Insight 2"]
}`

// Request is the context sent for analysis.
type Request struct {
	Context    string          `json:"context"`
	Tasks      []models.Task   `json:"tasks,omitempty"`
	Sprints    []models.Sprint `json:"sprints,omitempty"`
	Epics      []models.Epic   `json:"epics,omitempty"`
	UserPrompt string          `json:"userPrompt,omitempty"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTasks(tasks []models.Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		points := "?"
		if t.Points() != 0 {
			points = strconv.FormatFloat(t.Points(), 'f', -1, 64)
		}
		due := formatDate(t.DueDate)
		if due == "" {
			due = "None"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %q | Status: %s | Priority: %s | Points: %s | Due: %s",
			t.ID, t.Title, t.Status, t.Priority, points, due))
	}
	return strings.Join(lines, "\n")
}

func formatSprints(sprints []models.Sprint) string {
	lines := make([]string, 0, len(sprints))
	for _, s := range sprints {
		lines = append(lines, fmt.Sprintf("- [%s] %q | Status: %s | %s to %s | Velocity: %s | Tasks: %d",
			s.ID, s.Name, s.Status, formatDate(s.StartDate), formatDate(s.EndDate),
			strconv.FormatFloat(s.Velocity, 'f', -1, 64), len(s.Tasks)))
	}
	return strings.Join(lines, "\n")
}

func formatEpics(epics []models.Epic) string {
	lines := make([]string, 0, len(epics))
	for _, e := range epics {
		lines = append(lines, fmt.Sprintf("- [%s] %q | Status: %s | Progress: %d%% | Tasks: %d",
			e.ID, e.Title, e.Status, e.Progress, len(e.Tasks)))
	}
	return strings.Join(lines, "\n")
}

// userPrompt renders the request into the user message.
func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n\n", req.Context)
	if len(req.Tasks) > 0 {
		fmt.Fprintf(&b, "Tasks:\n%s\n\n", formatTasks(req.Tasks))
	}
	if len(req.Sprints) > 0 {
		fmt.Fprintf(&b, "Sprints:\n%s\n\n", formatSprints(req.Sprints))
	}
	if len(req.Epics) > 0 {
		fmt.Fprintf(&b, "Epics:\n%s\n\n", formatEpics(req.Epics))
	}
	if req.UserPrompt != "" {
		fmt.Fprintf(&b, "User Request: %s\n\n", req.UserPrompt)
	}
	b.WriteString("Please analyze this data and provide suggestions.")
	return b.String()
}
