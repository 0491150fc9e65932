package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"notionboard/internal/metrics"
	"notionboard/internal/models"
	"notionboard/internal/notion"
)

// Gateway is the slice of the Notion client the interpreter needs, bound to
// one workspace.
type Gateway interface {
	ListDatabases(ctx context.Context) ([]notionapi.Database, error)
	GetDatabase(ctx context.Context, databaseID string) (*notionapi.Database, error)
	QueryAll(ctx context.Context, databaseID string) ([]notionapi.Page, error)
	CreatePage(ctx context.Context, databaseID string, props notionapi.Properties, children []notionapi.Block) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error)
	ArchivePage(ctx context.Context, pageID string) (*notionapi.Page, error)
}

// Completer returns a raw chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// State is what the interpreter knows about the workspace when a message
// arrives. Task numbers in messages index into Tasks, 1-based.
type State struct {
	DatabaseID string         `json:"databaseId,omitempty"`
	Schema     *notion.Schema `json:"schema,omitempty"`
	Tasks      []models.Task  `json:"tasks"`
}

// Interpreter executes chat commands.
type Interpreter struct {
	gw     Gateway
	llm    Completer
	logger *zap.Logger
}

// New builds an interpreter. llm may be nil, in which case bulk pastes are
// always parsed locally.
func New(gw Gateway, llm Completer, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{gw: gw, llm: llm, logger: logger}
}

const (
	msgNoDatabase = "❌ No database found. Please connect a Notion database first."
	msgNoSchema   = "❌ Database schema not loaded. Please refresh and try again."
	msgNotReady   = "❌ Database not ready. Please refresh and try again."
	msgHelp       = "🤔 I didn't understand that. Try:\n• \"Show all tasks\"\n• \"Create a task to [description]\"\n• \"Move task [number] to [status]\"\n• \"Delete task [number]\""
)

// Load discovers the workspace's databases and reads the schema and tasks
// of the first one. A workspace without databases yields an empty state.
func (in *Interpreter) Load(ctx context.Context) (State, error) {
	st := State{Tasks: []models.Task{}}

	dbs, err := in.gw.ListDatabases(ctx)
	if err != nil {
		return st, fmt.Errorf("list databases: %w", err)
	}
	if len(dbs) == 0 {
		return st, nil
	}
	st.DatabaseID = dbs[0].ID.String()

	db, err := in.gw.GetDatabase(ctx, st.DatabaseID)
	if err != nil {
		return st, fmt.Errorf("get database %s: %w", st.DatabaseID, err)
	}
	schema := notion.InspectSchema(db)
	st.Schema = &schema

	pages, err := in.gw.QueryAll(ctx, st.DatabaseID)
	if err != nil {
		return st, fmt.Errorf("query database %s: %w", st.DatabaseID, err)
	}
	st.Tasks = notion.Mapper{}.TasksFromPages(pages, models.StatusTodo)
	return st, nil
}

// Handle classifies message and executes it against st, returning the
// reply shown to the user.
func (in *Interpreter) Handle(ctx context.Context, st State, message string) string {
	intent := Classify(message)
	metrics.ChatCommands.WithLabelValues(intent.Kind.String()).Inc()
	in.logger.Debug("chat command", zap.Stringer("intent", intent.Kind))

	switch intent.Kind {
	case KindBulkPaste:
		return in.bulkCreate(ctx, st, intent)
	case KindGenerate:
		return in.generate(ctx, st)
	case KindList:
		return listTasks(st.Tasks)
	case KindCreate:
		return in.create(ctx, st, intent.Name)
	case KindMove:
		return in.move(ctx, st, intent)
	case KindDelete:
		return in.remove(ctx, st, intent)
	default:
		return msgHelp
	}
}

func (in *Interpreter) bulkCreate(ctx context.Context, st State, intent Intent) string {
	if st.Schema == nil || st.DatabaseID == "" {
		return msgNotReady
	}

	tasks := in.parseBulk(ctx, intent.Text, intent.Lines)
	if len(tasks) == 0 {
		return "❌ Failed to parse tasks. Try 'Generate sample tasks' instead."
	}
	if len(tasks) > maxBulkTasks {
		tasks = tasks[:maxBulkTasks]
	}

	var logs []string
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = "Not started"
		}
		if t.Priority == "" {
			t.Priority = "Medium"
		}
		props := st.Schema.Properties(notion.TaskInput{Name: t.Name, Status: t.Status, Priority: t.Priority})
		var children []notionapi.Block
		if t.Description != "" {
			children = []notionapi.Block{notion.Paragraph(t.Description)}
		}
		if _, err := in.gw.CreatePage(ctx, st.DatabaseID, props, children); err != nil {
			in.logger.Warn("bulk create failed", zap.String("task", t.Name), zap.Error(err))
			continue
		}
		logs = append(logs, fmt.Sprintf("✅ %s...", truncate(t.Name, 40)))
	}

	return fmt.Sprintf("🤖 Detected %d tasks!\n✅ Created %d:\n\n%s%s\n\n💡 Type \"Show all tasks\" to see them!",
		len(intent.Lines), len(logs), strings.Join(head(logs, 5), "\n"), more(logs, 5, ""))
}

func (in *Interpreter) generate(ctx context.Context, st State) string {
	if st.DatabaseID == "" {
		return msgNoDatabase
	}
	if st.Schema == nil {
		return msgNoSchema
	}
	schema := *st.Schema

	var logs []string
	created, failed := 0, 0
	for _, t := range sampleTasks {
		status := matchLogged(t.Status, schema.StatusOptions, "status", &logs)
		priority := matchLogged(t.Priority, schema.PriorityOptions, "priority", &logs)

		input := notion.TaskInput{Name: t.Name}
		if schema.StatusProperty != "" {
			input.Status = status
		}
		if schema.PriorityProperty != "" {
			input.Priority = priority
		}
		if _, err := in.gw.CreatePage(ctx, st.DatabaseID, schema.Properties(input), nil); err != nil {
			in.logger.Warn("sample create failed", zap.String("task", t.Name), zap.Error(err))
			logs = append(logs, fmt.Sprintf("⚠️ Skipped: %s...", truncate(t.Name, 30)))
			failed++
			continue
		}
		created++
		logs = append(logs, "✅ Created: "+t.Name)
	}

	skipped := ""
	if failed > 0 {
		skipped = fmt.Sprintf(" (%d skipped)", failed)
	}
	return fmt.Sprintf("✅ Generated %d sample tasks!%s\n\n%s%s\n\n💡 Type \"Show all tasks\" to see them!",
		created, skipped, strings.Join(head(logs, 5), "\n"), more(logs, 5, " actions"))
}

// matchLogged resolves value against options and notes any substitution.
func matchLogged(value string, options []string, kind string, logs *[]string) string {
	if len(options) == 0 {
		*logs = append(*logs, fmt.Sprintf("🆕 Creating new %s: %q", kind, value))
		return value
	}
	matched := notion.MatchOption(value, options)
	if matched != value {
		*logs = append(*logs, fmt.Sprintf("📝 Mapped %s %q → %q", kind, value, matched))
	}
	return matched
}

var statusGlyphs = map[models.TaskStatus]string{
	models.StatusTodo:       "⚪",
	models.StatusInProgress: "🔵",
	models.StatusReview:     "🟡",
	models.StatusDone:       "✅",
	models.StatusBacklog:    "⚫",
}

func listTasks(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "📋 No tasks found. Try creating one first!"
	}
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		lines = append(lines, fmt.Sprintf("%d. %s **%s** (%s)", i+1, statusGlyphs[t.Status], t.Title, t.Status))
	}
	return "📋 **Your Tasks:**\n\n" + strings.Join(lines, "\n") +
		"\n\n💡 You can move tasks by saying \"Move task 1 to In Progress\""
}

func (in *Interpreter) create(ctx context.Context, st State, name string) string {
	if st.DatabaseID == "" {
		return msgNoDatabase
	}
	if st.Schema == nil {
		return msgNoSchema
	}
	if name == "" {
		return "❌ Please specify a task name. Example: \"Create a task to implement login\""
	}

	props := st.Schema.Properties(notion.TaskInput{Name: name})
	if st.Schema.StatusProperty != "" {
		props[st.Schema.StatusProperty] = st.Schema.StatusValue("Todo")
	}
	if _, err := in.gw.CreatePage(ctx, st.DatabaseID, props, nil); err != nil {
		return "❌ Failed to create task: " + err.Error()
	}
	return fmt.Sprintf("✅ Created task: **%s**\n\nWhat else would you like to do?", name)
}

var moveStatuses = map[string]string{
	"todo":        "Todo",
	"to do":       "Todo",
	"in progress": "In Progress",
	"progress":    "In Progress",
	"review":      "Review",
	"done":        "Done",
	"completed":   "Done",
	"backlog":     "Backlog",
}

func (in *Interpreter) move(ctx context.Context, st State, intent Intent) string {
	if st.Schema == nil {
		return msgNoSchema
	}
	if intent.Ref == "" || intent.Status == "" {
		return "❌ Please specify: \"Move task [number] to [status]\"\n\nExample: \"Move task 1 to In Progress\""
	}
	task, ok := pick(st.Tasks, intent.Index)
	if !ok {
		return notFound(intent.Ref, len(st.Tasks))
	}

	status, ok := moveStatuses[intent.Status]
	if !ok {
		status = "Todo"
	}
	if st.Schema.StatusProperty == "" {
		return "❌ Could not find status property in database."
	}

	props := notionapi.Properties{st.Schema.StatusProperty: st.Schema.StatusValue(status)}
	if _, err := in.gw.UpdatePage(ctx, task.ID, props); err != nil {
		return "❌ Failed to update task: " + err.Error()
	}
	return fmt.Sprintf("✅ Moved **%s** to **%s**", task.Title, status)
}

func (in *Interpreter) remove(ctx context.Context, st State, intent Intent) string {
	if intent.Ref == "" {
		return "❌ Please specify: \"Delete task [number]\"\n\nExample: \"Delete task 3\""
	}
	task, ok := pick(st.Tasks, intent.Index)
	if !ok {
		return notFound(intent.Ref, len(st.Tasks))
	}
	if _, err := in.gw.ArchivePage(ctx, task.ID); err != nil {
		return "❌ Failed to delete task: " + err.Error()
	}
	return fmt.Sprintf("🗑️ Deleted task: **%s**", task.Title)
}

func pick(tasks []models.Task, index int) (models.Task, bool) {
	if index < 1 || index > len(tasks) {
		return models.Task{}, false
	}
	return tasks[index-1], true
}

func notFound(ref string, n int) string {
	return fmt.Sprintf("❌ Task %s not found. You have %d tasks.", ref, n)
}

func head(logs []string, n int) []string {
	if len(logs) > n {
		return logs[:n]
	}
	return logs
}

func more(logs []string, n int, noun string) string {
	if len(logs) <= n {
		return ""
	}
	return fmt.Sprintf("\n... and %d more%s", len(logs)-n, noun)
}
