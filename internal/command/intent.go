// Package command interprets chat messages into task operations against a
// Notion task database.
package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies what a chat message asks for.
type Kind int

const (
	KindUnknown Kind = iota
	KindBulkPaste
	KindGenerate
	KindList
	KindCreate
	KindMove
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindBulkPaste:
		return "bulk_paste"
	case KindGenerate:
		return "generate"
	case KindList:
		return "list"
	case KindCreate:
		return "create"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Intent is a classified message. Only the payload fields of its Kind are
// set.
type Intent struct {
	Kind Kind
	// Text is the original message.
	Text string
	// Lines holds the detected task lines of a bulk paste.
	Lines []string
	// Name is the task name of a create.
	Name string
	// Index is the 1-based task number of a move or delete, 0 when absent.
	Index int
	// Ref is the task number as typed, for messages.
	Ref string
	// Status is the lowercased target phrase of a move, empty when absent.
	Status string
}

const checkmark = "✅"

var (
	numberedLine   = regexp.MustCompile(`^\d+\.`)
	priorityMarker = regexp.MustCompile(`(?i)\((Critical|High|Medium|Low)`)
	taskNumber     = regexp.MustCompile(`(?i)task\s+(\d+)`)
	moveTarget     = regexp.MustCompile(`(?i)to\s+(\w+(?:\s+\w+)?)`)

	createPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)create\s+(a\s+)?task\s+(to\s+)?`),
		regexp.MustCompile(`(?i)add\s+(a\s+)?task\s+(to\s+)?`),
		regexp.MustCompile(`(?i)new task\s+(to\s+)?`),
	}
)

// Classify maps a message to an intent. Rules are tried in order: bulk
// paste, generate, list, create, move, delete.
func Classify(message string) Intent {
	lower := strings.ToLower(message)
	in := Intent{Text: message}

	lines := taskLines(message)
	if len(lines) >= 3 && !containsAny(lower, "generate", "show", "delete") {
		in.Kind = KindBulkPaste
		in.Lines = lines
		return in
	}

	switch {
	case containsAny(lower, "generate", "sample", "create multiple"):
		in.Kind = KindGenerate
	case containsAny(lower, "show", "list"):
		in.Kind = KindList
	case containsAny(lower, "create", "add", "new task"):
		in.Kind = KindCreate
		in.Name = taskName(message)
	case containsAny(lower, "move", "change status"):
		in.Kind = KindMove
		in.Index, in.Ref = taskIndex(message)
		if m := moveTarget.FindStringSubmatch(message); m != nil {
			in.Status = strings.ToLower(m[1])
		}
	case containsAny(lower, "delete", "remove"):
		in.Kind = KindDelete
		in.Index, in.Ref = taskIndex(message)
	}
	return in
}

// taskLines returns the lines that look like list items. A single line
// holding three or more checkmarks is split on them instead.
func taskLines(message string) []string {
	var lines []string
	for _, line := range strings.Split(message, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, checkmark) ||
			strings.HasPrefix(trimmed, "-") ||
			strings.HasPrefix(trimmed, "•") ||
			numberedLine.MatchString(trimmed) ||
			priorityMarker.MatchString(trimmed) {
			lines = append(lines, line)
		}
	}

	if len(lines) <= 1 && strings.Count(message, checkmark) >= 3 {
		lines = lines[:0]
		for _, chunk := range strings.Split(message, checkmark) {
			if len(strings.TrimSpace(chunk)) > 10 {
				lines = append(lines, chunk)
			}
		}
	}
	return lines
}

func taskName(message string) string {
	name := message
	for _, re := range createPrefixes {
		if loc := re.FindStringIndex(name); loc != nil {
			name = name[:loc[0]] + name[loc[1]:]
		}
	}
	return strings.TrimSpace(name)
}

func taskIndex(message string) (int, string) {
	m := taskNumber.FindStringSubmatch(message)
	if m == nil {
		return 0, ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, m[1]
	}
	return n, m[1]
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
