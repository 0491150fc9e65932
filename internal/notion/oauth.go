package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"notionboard/internal/config"
	"notionboard/internal/models"
)

const (
	authURL  = "https://api.notion.com/v1/oauth/authorize"
	tokenURL = "https://api.notion.com/v1/oauth/token"
)

// ErrNotConfigured is returned when OAuth client credentials are missing.
var ErrNotConfigured = errors.New("Notion OAuth client credentials are not configured")

// Grant is the result of a successful code exchange.
type Grant struct {
	AccessToken string
	BotID       string
	Workspace   models.Workspace
}

// OAuth drives the public-integration authorization flow.
type OAuth struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewOAuth builds the flow from configuration. httpClient may be nil.
func NewOAuth(cfg config.NotionConfig, httpClient *http.Client) *OAuth {
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// WithEndpoint overrides the authorize and token URLs.
func (o *OAuth) WithEndpoint(auth, token string) *OAuth {
	o.cfg.Endpoint.AuthURL = auth
	o.cfg.Endpoint.TokenURL = token
	return o
}

// Configured reports whether both client id and secret are set.
func (o *OAuth) Configured() bool {
	return o.cfg.ClientID != "" && o.cfg.ClientSecret != ""
}

// AuthCodeURL returns the consent URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("owner", "user"))
}

// Exchange trades an authorization code for a workspace token.
func (o *OAuth) Exchange(ctx context.Context, code string) (Grant, error) {
	if !o.Configured() {
		return Grant{}, ErrNotConfigured
	}
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			switch {
			case rerr.ErrorDescription != "":
				return Grant{}, errors.New(rerr.ErrorDescription)
			case rerr.ErrorCode != "":
				return Grant{}, errors.New(rerr.ErrorCode)
			case rerr.Response != nil:
				return Grant{}, fmt.Errorf("Token exchange failed: %d", rerr.Response.StatusCode)
			}
		}
		return Grant{}, fmt.Errorf("exchange code: %w", err)
	}

	return Grant{
		AccessToken: tok.AccessToken,
		BotID:       extraString(tok, "bot_id"),
		Workspace: models.Workspace{
			ID:   extraString(tok, "workspace_id"),
			Name: extraString(tok, "workspace_name"),
			Icon: extraString(tok, "workspace_icon"),
		},
	}, nil
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}
