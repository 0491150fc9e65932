package notion

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionboard/internal/config"
)

func oauthConfig() config.NotionConfig {
	return config.NotionConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/api/notion/callback",
	}
}

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth(oauthConfig(), nil)
	raw := o.AuthCodeURL("state-123")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.notion.com", u.Host)
	assert.Equal(t, "/v1/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "user", q.Get("owner"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:3000/api/notion/callback", q.Get("redirect_uri"))
}

func TestExchangeRequiresCredentials(t *testing.T) {
	o := NewOAuth(config.NotionConfig{}, nil)
	assert.False(t, o.Configured())

	_, err := o.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"access_token": "secret_abc",
			"token_type": "bearer",
			"bot_id": "bot-1",
			"workspace_id": "ws-1",
			"workspace_name": "Acme",
			"workspace_icon": "🚀"
		}`)
	}))
	defer srv.Close()

	o := NewOAuth(oauthConfig(), srv.Client()).WithEndpoint(srv.URL+"/authorize", srv.URL+"/token")
	grant, err := o.Exchange(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "secret_abc", grant.AccessToken)
	assert.Equal(t, "bot-1", grant.BotID)
	assert.Equal(t, "ws-1", grant.Workspace.ID)
	assert.Equal(t, "Acme", grant.Workspace.Name)
	assert.Equal(t, "🚀", grant.Workspace.Icon)
}

func TestExchangeSurfacesErrorDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid code."}`)
	}))
	defer srv.Close()

	o := NewOAuth(oauthConfig(), srv.Client()).WithEndpoint(srv.URL+"/authorize", srv.URL+"/token")
	_, err := o.Exchange(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid code.", err.Error())
}
