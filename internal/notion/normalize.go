package notion

import (
	"strings"

	"notionboard/internal/models"
)

type statusRule struct {
	keywords []string
	status   models.TaskStatus
}

// First matching rule wins.
var statusLadder = []statusRule{
	{keywords: []string{"done", "complete"}, status: models.StatusDone},
	{keywords: []string{"progress", "doing"}, status: models.StatusInProgress},
	{keywords: []string{"review", "testing"}, status: models.StatusReview},
	{keywords: []string{"todo", "to do"}, status: models.StatusTodo},
}

type priorityRule struct {
	keywords []string
	priority models.TaskPriority
}

var priorityLadder = []priorityRule{
	{keywords: []string{"urgent", "critical"}, priority: models.PriorityUrgent},
	{keywords: []string{"high"}, priority: models.PriorityHigh},
	{keywords: []string{"low"}, priority: models.PriorityLow},
}

// NormalizeStatus maps free status text onto a board column. Unmatched
// text, including the empty string, becomes backlog.
func NormalizeStatus(s string) models.TaskStatus {
	lower := strings.ToLower(s)
	for _, rule := range statusLadder {
		if containsAny(lower, rule.keywords) {
			return rule.status
		}
	}
	return models.StatusBacklog
}

// NormalizePriority maps free priority text onto a priority. Unmatched
// text becomes medium.
func NormalizePriority(s string) models.TaskPriority {
	lower := strings.ToLower(s)
	for _, rule := range priorityLadder {
		if containsAny(lower, rule.keywords) {
			return rule.priority
		}
	}
	return models.PriorityMedium
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
