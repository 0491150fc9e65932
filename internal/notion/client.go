// Package notion wraps the Notion REST API and maps its pages onto board
// records.
package notion

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jomei/notionapi"

	"notionboard/internal/config"
	"notionboard/internal/metrics"
)

// ErrNoToken is returned before any network I/O when neither a workspace
// access token nor an integration key is available.
var ErrNoToken = errors.New("Notion API key or access token is required")

// APIError carries the message of a failed Notion call.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// QueryRequest holds the optional pass-through parameters of a database query.
type QueryRequest struct {
	Filter      notionapi.Filter
	Sorts       []notionapi.SortObject
	StartCursor string
	PageSize    int
}

// QueryResult is one page of database query results.
type QueryResult struct {
	Results    []notionapi.Page `json:"results"`
	NextCursor string           `json:"nextCursor,omitempty"`
	HasMore    bool             `json:"hasMore"`
}

// ChildDatabase is an inline database found among a page's blocks.
type ChildDatabase struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client performs Notion calls. Every operation takes the caller's access
// token and falls back to the configured integration key when it is empty.
type Client struct {
	apiKey     string
	version    string
	httpClient *http.Client
}

// NewClient builds a client. httpClient may be nil.
func NewClient(cfg config.NotionConfig, httpClient *http.Client) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		version:    cfg.APIVersion,
		httpClient: httpClient,
	}
}

func (c *Client) api(token string) (*notionapi.Client, error) {
	if token == "" {
		token = c.apiKey
	}
	if token == "" {
		return nil, ErrNoToken
	}

	opts := []notionapi.ClientOption{}
	if c.version != "" {
		opts = append(opts, notionapi.WithVersion(c.version))
	}
	if c.httpClient != nil {
		opts = append(opts, notionapi.WithHTTPClient(c.httpClient))
	}
	return notionapi.NewClient(notionapi.Token(token), opts...), nil
}

// do runs one Notion call, records it and normalizes its error.
func do(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveNotion(op, start, err)
	if err == nil {
		return nil
	}

	var nerr *notionapi.Error
	if errors.As(err, &nerr) {
		return &APIError{Op: op, Status: nerr.Status, Message: nerr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Op: op, Message: err.Error()}
}

// ListDatabases returns every database the token can see.
func (c *Client) ListDatabases(ctx context.Context, token string) ([]notionapi.Database, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	var resp *notionapi.SearchResponse
	err = do("search", func() error {
		var err error
		resp, err = api.Search.Do(ctx, &notionapi.SearchRequest{
			Filter: notionapi.SearchFilter{Property: "object", Value: "database"},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	dbs := make([]notionapi.Database, 0, len(resp.Results))
	for _, obj := range resp.Results {
		if db, ok := obj.(*notionapi.Database); ok {
			dbs = append(dbs, *db)
		}
	}
	return dbs, nil
}

// GetDatabase fetches a database and its property schema.
func (c *Client) GetDatabase(ctx context.Context, token, databaseID string) (*notionapi.Database, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	var db *notionapi.Database
	err = do("get_database", func() error {
		var err error
		db, err = api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
		return err
	})
	return db, err
}

// QueryDatabase returns one page of results.
func (c *Client) QueryDatabase(ctx context.Context, token, databaseID string, q QueryRequest) (QueryResult, error) {
	api, err := c.api(token)
	if err != nil {
		return QueryResult{}, err
	}

	req := &notionapi.DatabaseQueryRequest{
		Filter:      q.Filter,
		Sorts:       q.Sorts,
		StartCursor: notionapi.Cursor(q.StartCursor),
		PageSize:    q.PageSize,
	}

	var resp *notionapi.DatabaseQueryResponse
	err = do("query_database", func() error {
		var err error
		resp, err = api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}

	results := resp.Results
	if results == nil {
		results = []notionapi.Page{}
	}
	return QueryResult{
		Results:    results,
		NextCursor: string(resp.NextCursor),
		HasMore:    resp.HasMore,
	}, nil
}

// QueryAll follows cursors until the database is exhausted.
func (c *Client) QueryAll(ctx context.Context, token, databaseID string) ([]notionapi.Page, error) {
	var (
		pages  []notionapi.Page
		cursor string
	)
	for {
		res, err := c.QueryDatabase(ctx, token, databaseID, QueryRequest{StartCursor: cursor, PageSize: 100})
		if err != nil {
			return nil, err
		}
		pages = append(pages, res.Results...)
		if !res.HasMore || res.NextCursor == "" {
			return pages, nil
		}
		cursor = res.NextCursor
	}
}

// GetPage fetches a single page.
func (c *Client) GetPage(ctx context.Context, token, pageID string) (*notionapi.Page, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	var page *notionapi.Page
	err = do("get_page", func() error {
		var err error
		page, err = api.Page.Get(ctx, notionapi.PageID(pageID))
		return err
	})
	return page, err
}

// CreatePage adds a row to a database, optionally with body blocks.
func (c *Client) CreatePage(ctx context.Context, token, databaseID string, props notionapi.Properties, children []notionapi.Block) (*notionapi.Page, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
		Children:   children,
	}

	var page *notionapi.Page
	err = do("create_page", func() error {
		var err error
		page, err = api.Page.Create(ctx, req)
		return err
	})
	return page, err
}

// UpdatePage writes the given properties to a page.
func (c *Client) UpdatePage(ctx context.Context, token, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = notionapi.Properties{}
	}

	var page *notionapi.Page
	err = do("update_page", func() error {
		var err error
		page, err = api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props})
		return err
	})
	return page, err
}

// ArchivePage soft-deletes a page.
func (c *Client) ArchivePage(ctx context.Context, token, pageID string) (*notionapi.Page, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	var page *notionapi.Page
	err = do("archive_page", func() error {
		var err error
		page, err = api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
			Properties: notionapi.Properties{},
			Archived:   true,
		})
		return err
	})
	return page, err
}

// ListBlocks returns the first 100 child blocks of a page.
func (c *Client) ListBlocks(ctx context.Context, token, pageID string) (*notionapi.GetChildrenResponse, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, err
	}

	var resp *notionapi.GetChildrenResponse
	err = do("list_blocks", func() error {
		var err error
		resp, err = api.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{PageSize: 100})
		return err
	})
	return resp, err
}

// ChildDatabases lists the inline databases placed on a page.
func (c *Client) ChildDatabases(ctx context.Context, token, pageID string) ([]ChildDatabase, error) {
	resp, err := c.ListBlocks(ctx, token, pageID)
	if err != nil {
		return nil, err
	}

	var out []ChildDatabase
	for _, block := range resp.Results {
		switch b := block.(type) {
		case *notionapi.ChildDatabaseBlock:
			out = append(out, ChildDatabase{ID: string(b.ID), Title: b.ChildDatabase.Title})
		case notionapi.ChildDatabaseBlock:
			out = append(out, ChildDatabase{ID: string(b.ID), Title: b.ChildDatabase.Title})
		}
	}
	return out, nil
}

// Workspace binds a client to one access token.
type Workspace struct {
	client *Client
	token  string
}

// ForToken returns a view of the client bound to token.
func (c *Client) ForToken(token string) *Workspace {
	return &Workspace{client: c, token: token}
}

// ListDatabases see Client.ListDatabases.
func (w *Workspace) ListDatabases(ctx context.Context) ([]notionapi.Database, error) {
	return w.client.ListDatabases(ctx, w.token)
}

// GetDatabase see Client.GetDatabase.
func (w *Workspace) GetDatabase(ctx context.Context, databaseID string) (*notionapi.Database, error) {
	return w.client.GetDatabase(ctx, w.token, databaseID)
}

// QueryAll see Client.QueryAll.
func (w *Workspace) QueryAll(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	return w.client.QueryAll(ctx, w.token, databaseID)
}

// CreatePage see Client.CreatePage.
func (w *Workspace) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties, children []notionapi.Block) (*notionapi.Page, error) {
	return w.client.CreatePage(ctx, w.token, databaseID, props, children)
}

// UpdatePage see Client.UpdatePage.
func (w *Workspace) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	return w.client.UpdatePage(ctx, w.token, pageID, props)
}

// ArchivePage see Client.ArchivePage.
func (w *Workspace) ArchivePage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	return w.client.ArchivePage(ctx, w.token, pageID)
}
