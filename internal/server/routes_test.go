package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionboard/internal/config"
	"notionboard/internal/models"
)

const taskDatabase = `{"object":"database","id":"db-1",
	"title":[{"type":"text","text":{"content":"Sprint board"},"plain_text":"Sprint board"}],
	"properties":{
		"Name":{"id":"title","type":"title","title":{}},
		"Status":{"id":"st","type":"status","status":{"options":[
			{"id":"1","name":"Not started","color":"default"},
			{"id":"2","name":"In Progress","color":"blue"},
			{"id":"3","name":"Done","color":"green"}]}},
		"Story Points":{"id":"sp","type":"number","number":{"format":"number"}}
	}}`

func taskPage(id, title, status string, points int) string {
	return `{"object":"page","id":"` + id + `",
		"created_time":"2024-01-01T00:00:00.000Z","last_edited_time":"2024-01-02T00:00:00.000Z",
		"parent":{"type":"database_id","database_id":"db-1"},
		"properties":{
			"Name":{"id":"title","type":"title","title":[{"type":"text","text":{"content":"` + title + `"},"plain_text":"` + title + `"}]},
			"Status":{"id":"st","type":"status","status":{"id":"x","name":"` + status + `","color":"default"}},
			"Story Points":{"id":"sp","type":"number","number":` + itoa(points) + `}
		}}`
}

func itoa(n int) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}

func pageList(pages ...string) string {
	return `{"object":"list","results":[` + strings.Join(pages, ",") + `],"has_more":false,"next_cursor":null}`
}

// serveTaskDatabase registers a one-database workspace holding three tasks
// and counts page updates.
func serveTaskDatabase(f *fixture) *atomic.Int32 {
	var updates atomic.Int32
	f.upstream.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"object":"list","results":[`+taskDatabase+`],"has_more":false,"next_cursor":null}`)
	})
	f.upstream.HandleFunc("GET /v1/databases/db-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, taskDatabase)
	})
	f.upstream.HandleFunc("POST /v1/databases/db-1/query", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, pageList(
			taskPage("p-1", "Write docs", "Not started", 2),
			taskPage("p-2", "Build API", "In Progress", 3),
			taskPage("p-3", "Ship it", "Done", 5),
		))
	})
	f.upstream.HandleFunc("PATCH /v1/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		updates.Add(1)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(f.t, strings.ToLower(string(body)), `"done"`)
		writeJSON(w, taskPage(r.PathValue("id"), "Build API", "Done", 3))
	})
	return &updates
}

func withIntegrationKey(c *config.Config) { c.Notion.APIKey = "secret_integration" }

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	f := newSignedInFixture(t)
	f.upstream.HandleFunc("GET /v1/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`)
	})

	rec := f.do(t, http.MethodGet, "/api/notion/pages?id=missing", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "Could not find page")
}

func TestPageRoutesValidateInput(t *testing.T) {
	f := newSignedInFixture(t)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   string
	}{
		{"get without id", http.MethodGet, "/api/notion/pages", nil, "Page ID is required"},
		{"create without database", http.MethodPost, "/api/notion/pages", map[string]any{"properties": map[string]any{}}, "Database ID is required"},
		{"create without properties", http.MethodPost, "/api/notion/pages", map[string]any{"databaseId": "db-1"}, "Properties are required"},
		{"update without page", http.MethodPatch, "/api/notion/pages", map[string]any{"properties": map[string]any{}}, "Page ID is required"},
		{"archive without id", http.MethodDelete, "/api/notion/pages", nil, "Page ID is required"},
		{"query without database", http.MethodPost, "/api/notion/databases", map[string]any{}, "Database ID is required"},
		{"tasks without database", http.MethodGet, "/api/notion/tasks", nil, "Database ID is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec).Error)
		})
	}
	assert.Zero(t, f.calls.Load())
}

func TestBoardBucketsTasks(t *testing.T) {
	f := newSignedInFixture(t)
	serveTaskDatabase(f)

	rec := f.do(t, http.MethodGet, "/api/notion/board?databaseId=db-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var board models.Board
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &board))
	assert.Equal(t, "db-1", board.DatabaseID)

	byStatus := map[models.TaskStatus][]string{}
	for _, col := range board.Columns {
		for _, task := range col.Tasks {
			byStatus[col.Status] = append(byStatus[col.Status], task.Title)
		}
	}
	assert.Equal(t, []string{"Build API"}, byStatus[models.StatusInProgress])
	assert.Equal(t, []string{"Ship it"}, byStatus[models.StatusDone])
	assert.Equal(t, 3, board.Metrics.TotalTasks)
	assert.Equal(t, 1, board.Metrics.CompletedTasks)
}

func TestPatchTaskRejectsUnknownStatus(t *testing.T) {
	f := newSignedInFixture(t)

	rec := f.do(t, http.MethodPatch, "/api/notion/tasks/p-2", map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/notion/tasks/p-2", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no fields to update", decode(t, rec).Error)
	assert.Zero(t, f.calls.Load())
}

func TestPatchTaskWritesStatus(t *testing.T) {
	f := newSignedInFixture(t)
	updates := serveTaskDatabase(f)

	rec := f.do(t, http.MethodPatch, "/api/notion/tasks/p-2", map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, updates.Load())

	var task models.Task
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &task))
	assert.Equal(t, "p-2", task.ID)
	assert.Equal(t, models.StatusDone, task.Status)
}

func TestChatMovesTask(t *testing.T) {
	f := newSignedInFixture(t)
	updates := serveTaskDatabase(f)

	rec := f.do(t, http.MethodPost, "/api/notion/chat", map[string]any{"message": "Move task 2 to done"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Contains(t, resp.Reply, "Build API")
	assert.Contains(t, resp.Reply, "Done")
	assert.Equal(t, "db-1", resp.State.DatabaseID)
	assert.Len(t, resp.State.Tasks, 3)
	assert.EqualValues(t, 1, updates.Load())
}

func TestChatRequiresMessage(t *testing.T) {
	f := newSignedInFixture(t)

	rec := f.do(t, http.MethodPost, "/api/notion/chat", map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", decode(t, rec).Error)
}

func TestSuggestionsNotConfigured(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/llm/suggestions", map[string]any{"context": "sprint review"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, errLLMNotConfigured.Error(), decode(t, rec).Error)
}

func serveCompletion(f *fixture, content string) {
	f.upstream.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "deepseek-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}

func withLLM(perMinute int) option {
	return func(c *config.Config) {
		c.DeepSeek.APIKey = "test-key"
		c.DeepSeek.RatePerMinute = perMinute
	}
}

func TestSuggestionsAnalyze(t *testing.T) {
	f := newFixture(t, withLLM(10))
	serveCompletion(f, `Here you go: {"summary":"On track","suggestions":[
		{"type":"new_task","title":"Scope creep","description":"Three new tasks","confidence":0.8}]}`)

	rec := f.do(t, http.MethodPost, "/api/llm/suggestions", map[string]any{"context": "sprint review"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis models.Analysis
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &analysis))
	assert.Equal(t, "On track", analysis.Summary)
	require.Len(t, analysis.Suggestions, 1)
	assert.Equal(t, "Scope creep", analysis.Suggestions[0].Title)
}

func TestSuggestionsValidateMode(t *testing.T) {
	f := newFixture(t, withLLM(10))

	tests := []struct {
		body map[string]any
		want string
	}{
		{map[string]any{}, "Context is required"},
		{map[string]any{"mode": "task_breakdown"}, "A task is required"},
		{map[string]any{"mode": "sprint_planning"}, "A sprint is required"},
		{map[string]any{"mode": "poetry"}, "unknown mode poetry"},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodPost, "/api/llm/suggestions", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tt.want, decode(t, rec).Error)
	}
	assert.Zero(t, f.calls.Load())
}

func TestSuggestionsRateLimited(t *testing.T) {
	f := newFixture(t, withLLM(1))
	serveCompletion(f, `{"summary":"ok","suggestions":[]}`)

	first := f.do(t, http.MethodPost, "/api/llm/suggestions", map[string]any{"context": "a"})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := f.do(t, http.MethodPost, "/api/llm/suggestions", map[string]any{"context": "b"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, errRateLimited.Error(), decode(t, second).Error)
}

func TestWaitlist(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/waitlist", map[string]any{"email": " Ada<b>@Example.com "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var joined struct {
		Email         string `json:"email"`
		AlreadyJoined bool   `json:"alreadyJoined"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &joined))
	assert.Equal(t, "adab@example.com", joined.Email)
	assert.False(t, joined.AlreadyJoined)

	rec = f.do(t, http.MethodPost, "/api/waitlist", map[string]any{"email": "adab@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &joined))
	assert.True(t, joined.AlreadyJoined)

	n, err := f.store.WaitlistSize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec = f.do(t, http.MethodPost, "/api/waitlist", map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter a valid email address", decode(t, rec).Error)
}

func TestRobotsAndSitemap(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/robots.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Disallow: /api/")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://board.example.com/sitemap.xml")

	rec = f.do(t, http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<loc>https://board.example.com/waitlist</loc>")
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestStaticFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	f := newFixture(t, func(c *config.Config) { c.Server.Static = dir })

	rec := f.do(t, http.MethodGet, "/notion/sprint-dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board")

	rec = f.do(t, http.MethodGet, "/assets/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", decode(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/notion/sprint-dashboard", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func suggestFrom(f *fixture, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/llm/suggestions", strings.NewReader(`{"context":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)
	return rec.Code
}

func TestSuggestionsRateLimitIgnoresForwardedFor(t *testing.T) {
	f := newFixture(t, withLLM(1))
	serveCompletion(f, `{"summary":"ok","suggestions":[]}`)

	var codes []int
	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		codes = append(codes, suggestFrom(f, ip))
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestSuggestionsRateLimitHonorsTrustedProxy(t *testing.T) {
	f := newFixture(t, withLLM(1), func(c *config.Config) {
		c.Server.TrustedProxies = []string{"192.0.2.0/24"}
	})
	serveCompletion(f, `{"summary":"ok","suggestions":[]}`)

	assert.Equal(t, http.StatusOK, suggestFrom(f, "1.1.1.1"))
	assert.Equal(t, http.StatusOK, suggestFrom(f, "2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, suggestFrom(f, "2.2.2.2"))
}

func TestPatchTaskAcceptsDateOnlyDueDate(t *testing.T) {
	f := newSignedInFixture(t)
	var body string
	f.upstream.HandleFunc("PATCH /v1/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		writeJSON(w, taskPage(r.PathValue("id"), "Build API", "In Progress", 3))
	})

	rec := f.do(t, http.MethodPatch, "/api/notion/tasks/p-2", map[string]any{"dueDate": "2024-05-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, body, "2024-05-01")
	assert.Contains(t, body, "Due Date")

	rec = f.do(t, http.MethodPatch, "/api/notion/tasks/p-2", map[string]any{"dueDate": "next friday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
