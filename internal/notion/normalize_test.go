package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"notionboard/internal/models"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want models.TaskStatus
	}{
		{"Done", models.StatusDone},
		{"COMPLETED", models.StatusDone},
		{"In Progress", models.StatusInProgress},
		{"doing", models.StatusInProgress},
		{"In Review", models.StatusReview},
		{"Testing", models.StatusReview},
		{"Todo", models.StatusTodo},
		{"To Do", models.StatusTodo},
		{"Not started", models.StatusBacklog},
		{"", models.StatusBacklog},
		{"Done but in review", models.StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.in))
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want models.TaskPriority
	}{
		{"Urgent", models.PriorityUrgent},
		{"critical", models.PriorityUrgent},
		{"High", models.PriorityHigh},
		{"P1 - high", models.PriorityHigh},
		{"Low", models.PriorityLow},
		{"Medium", models.PriorityMedium},
		{"whatever", models.PriorityMedium},
		{"", models.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePriority(tt.in))
		})
	}
}
