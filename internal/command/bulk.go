package command

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const bulkPrompt = `You are a task parser. Parse the task list and return ONLY a JSON array. For each task extract:
- name: clear task title (remove checkmarks/bullets)
- priority: Critical/High/Medium/Low (extract from parentheses or infer from task importance)
- status: In Progress/Not started/Backlog/Done (extract from text like "In Progress", "Backlog" or default to "Not started")
- description: 2-3 sentences explaining what this task involves, key deliverables, and technical considerations.

Return ONLY valid JSON array, no markdown, no explanation:
[{"name":"...","priority":"...","status":"...","description":"..."}]`

// maxBulkTasks caps how many pages one paste may create.
const maxBulkTasks = 10

type bulkTask struct {
	Name        string `json:"name"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

var (
	arraySpan      = regexp.MustCompile(`\[[\s\S]*\]`)
	leadingBullet  = regexp.MustCompile(`^(?:[✅\-•]|\d+\.)\s*`)
	priorityInline = regexp.MustCompile(`(?i)\((Critical|High|Medium|Low)[^)]*\)`)
	statusInline   = regexp.MustCompile(`(?i)\b(In Progress|Backlog|Not started|Done|Completed)\b`)
	parenthetical  = regexp.MustCompile(`\s*\([^)]*\)\s*`)
)

// parseBulk extracts tasks from pasted text, asking the completer first and
// falling back to parsing lines locally.
func (in *Interpreter) parseBulk(ctx context.Context, text string, lines []string) []bulkTask {
	if in.llm != nil {
		tasks, err := in.parseBulkRemote(ctx, text)
		if err == nil && len(tasks) > 0 {
			return tasks
		}
		in.logger.Info("bulk parse falling back to local parser", zap.Error(err))
	}
	return parseBulkLocal(lines)
}

func (in *Interpreter) parseBulkRemote(ctx context.Context, text string) ([]bulkTask, error) {
	content, err := in.llm.Complete(ctx, bulkPrompt, text)
	if err != nil {
		return nil, err
	}
	span := arraySpan.FindString(content)
	if span == "" {
		return nil, fmt.Errorf("no JSON array in reply")
	}
	var tasks []bulkTask
	if err := json.Unmarshal([]byte(span), &tasks); err != nil {
		return nil, fmt.Errorf("decode task array: %w", err)
	}
	return dedupe(tasks), nil
}

func parseBulkLocal(lines []string) []bulkTask {
	tasks := make([]bulkTask, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.TrimSpace(leadingBullet.ReplaceAllString(strings.TrimSpace(line), ""))

		t := bulkTask{Priority: "Medium", Status: "Not started"}
		if m := priorityInline.FindStringSubmatch(cleaned); m != nil {
			t.Priority = m[1]
		}
		if m := statusInline.FindStringSubmatch(cleaned); m != nil {
			t.Status = m[1]
		}
		name := parenthetical.ReplaceAllString(cleaned, " ")
		name = strings.ReplaceAll(name, checkmark, "")
		t.Name = strings.Join(strings.Fields(name), " ")
		tasks = append(tasks, t)
	}
	return dedupe(tasks)
}

// dedupe drops unnamed tasks and repeats by case-insensitive name, keeping
// the first.
func dedupe(tasks []bulkTask) []bulkTask {
	seen := make(map[string]struct{}, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
