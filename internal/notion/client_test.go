package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionboard/internal/config"
)

// rewriteTransport sends every request to the test server.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := config.NotionConfig{APIKey: apiKey, APIVersion: "2022-06-28"}
	return NewClient(cfg, &http.Client{Transport: rewriteTransport{target: target}})
}

func TestClientRequiresToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.ListDatabases(context.Background(), "")
	require.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, "Notion API key or access token is required", err.Error())
	assert.Zero(t, calls.Load(), "no request may be sent without a token")
}

func TestListDatabasesUsesTokenAndVersion(t *testing.T) {
	c := newTestClient(t, "integration-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"property": "object", "value": "database"}, body["filter"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","results":[
			{"object":"database","id":"db-1","title":[{"type":"text","text":{"content":"Tasks"},"plain_text":"Tasks"}],"properties":{}}
		],"has_more":false,"next_cursor":null}`)
	})

	dbs, err := c.ListDatabases(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "db-1", dbs[0].ID.String())
	assert.Equal(t, "Tasks", PlainText(dbs[0].Title))
}

func TestFallsBackToIntegrationKey(t *testing.T) {
	c := newTestClient(t, "integration-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer integration-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"page","id":"p-1","properties":{}}`)
	})

	p, err := c.GetPage(context.Background(), "", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID.String())
}

func TestUpstreamErrorMessageIsSurfaced(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"object":"error","status":400,"code":"validation_error","message":"body failed validation"}`)
	})

	_, err := c.GetDatabase(context.Background(), "", "db-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "body failed validation", apiErr.Error())
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestArchivePageSendsArchivedFlag(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/pages/p-9", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["archived"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"page","id":"p-9","archived":true,"properties":{}}`)
	})

	p, err := c.ArchivePage(context.Background(), "", "p-9")
	require.NoError(t, err)
	assert.True(t, p.Archived)
	assert.EqualValues(t, 1, calls.Load())
}

func TestQueryAllFollowsCursor(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/v1/databases/db-1/query", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			assert.Nil(t, body["start_cursor"])
			_, _ = io.WriteString(w, `{"object":"list","results":[{"object":"page","id":"p-1","properties":{}}],"has_more":true,"next_cursor":"c-2"}`)
			return
		}
		assert.Equal(t, "c-2", body["start_cursor"])
		_, _ = io.WriteString(w, `{"object":"list","results":[{"object":"page","id":"p-2","properties":{}}],"has_more":false,"next_cursor":null}`)
	})

	pages, err := c.QueryAll(context.Background(), "", "db-1")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "p-2", pages[1].ID.String())
	assert.EqualValues(t, 2, calls.Load())
}

func TestChildDatabases(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/blocks/page-1/children", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","results":[
			{"object":"block","id":"b-1","type":"paragraph","paragraph":{"rich_text":[]}},
			{"object":"block","id":"db-7","type":"child_database","child_database":{"title":"Sprints"}}
		],"has_more":false,"next_cursor":null}`)
	})

	dbs, err := c.ChildDatabases(context.Background(), "", "page-1")
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, ChildDatabase{ID: "db-7", Title: "Sprints"}, dbs[0])
}
