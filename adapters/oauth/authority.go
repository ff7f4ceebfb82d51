// Package oauth talks to the Microsoft identity platform with the
// authorization code flow.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/lborres/kontak/core"
)

// Authority is a core.MicrosoftAuthority backed by x/oauth2.
type Authority struct {
	config     *oauth2.Config
	httpClient *http.Client
}

var _ core.MicrosoftAuthority = (*Authority)(nil)

type Option func(*Authority)

// WithEndpoint replaces the tenant endpoint, e.g. with a test server.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(a *Authority) { a.config.Endpoint = ep }
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *Authority) { a.httpClient = c }
}

func New(cfg core.MicrosoftConfig, opts ...Option) (*Authority, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	endpoint := microsoft.AzureADEndpoint(cfg.TenantID)
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	a := &Authority{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       append([]string(nil), cfg.Scopes...),
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AuthCodeURL returns the sign-in URL carrying state.
func (a *Authority) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// Exchange redeems an authorization code. A used or expired code yields
// core.ErrInvalidGrant.
func (a *Authority) Exchange(ctx context.Context, code string) (*core.ExternalToken, error) {
	token, err := a.config.Exchange(a.context(ctx), code)
	if err != nil {
		return nil, classify(err, "failed to exchange authorization code")
	}
	return fromOAuth(token, ""), nil
}

// Refresh redeems the refresh token for a new token pair. The previous
// refresh token is kept when the authority does not rotate it.
func (a *Authority) Refresh(ctx context.Context, token *core.ExternalToken) (*core.ExternalToken, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, goerr.Wrap(core.ErrReauthRequired, "no refresh token cached")
	}

	// An expired token with only the refresh token set forces a refresh.
	src := a.config.TokenSource(a.context(ctx), &oauth2.Token{RefreshToken: token.RefreshToken})
	refreshed, err := src.Token()
	if err != nil {
		return nil, classify(err, "failed to refresh microsoft token")
	}
	return fromOAuth(refreshed, token.RefreshToken), nil
}

func (a *Authority) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func fromOAuth(t *oauth2.Token, previousRefresh string) *core.ExternalToken {
	refresh := t.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &core.ExternalToken{
		AccessToken:  t.AccessToken,
		RefreshToken: refresh,
		TokenType:    t.Type(),
		Expiry:       t.Expiry,
	}
}

func classify(err error, msg string) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode == "invalid_grant" {
			return goerr.Wrap(fmt.Errorf("%w: %s", core.ErrInvalidGrant, rerr.ErrorDescription), msg)
		}
		return goerr.Wrap(fmt.Errorf("%w: %w", core.ErrUpstream, err), msg,
			goerr.V("status", rerr.Response.StatusCode), goerr.V("error_code", rerr.ErrorCode))
	}
	return goerr.Wrap(fmt.Errorf("%w: %w", core.ErrUpstream, err), msg)
}
