// Package salesforce talks to Salesforce's OAuth2 endpoints: the
// authorization-code-for-token exchange and the bearer-authenticated
// identity fetch.
//
// The two-call shape is fixed by Salesforce's API, not chosen here:
//
//  1. POST {login_url}/services/oauth2/token — form-encoded
//     grant_type/client_id/client_secret/code/redirect_uri; the JSON response
//     carries access_token, refresh_token, issued_at, and an `id` field that
//     is a URL.
//  2. POST {id URL} with "Authorization: Bearer {access_token}" — Salesforce's
//     identity URL doubles as the profile endpoint, returning the user's
//     email and username among other attributes.
//
// Salesforce API docs:
// https://help.salesforce.com/s/articleView?id=sf.remoteaccess_oauth_web_server_flow.htm
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/nkoleva/sflogin/internal/apperror"
)

// requestTimeout bounds each outbound call to Salesforce. An unbounded hang
// on the identity provider would pin the serving goroutine for the whole
// request; 10s is generous for two short HTTPS round-trips.
const requestTimeout = 10 * time.Second

// Config is the connected-app configuration the provider needs. The values
// come from the persisted settings store, so a Provider is built per callback
// rather than at startup — settings edits take effect immediately.
type Config struct {
	LoginURL     string // base URL, e.g. "https://login.salesforce.com"
	ClientID     string // consumer key
	ClientSecret string // consumer secret
	RedirectURI  string // must match the connected app's callback URL exactly
}

// TokenResponse is the result of a successful code-for-token exchange.
//
// IdentityURL is Salesforce's `id` field — a URL that both identifies the
// user and serves as the profile-fetch endpoint. IssuedAt is kept as the
// opaque string Salesforce sends (epoch milliseconds); nothing here parses it.
type TokenResponse struct {
	IdentityURL  string
	AccessToken  string
	RefreshToken string
	IssuedAt     string
}

// Profile is the slice of the identity response the login flow needs.
// Salesforce returns a much larger object — only these fields are decoded.
type Profile struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Provider performs the OAuth2 Authorization Code flow against a Salesforce
// connected app.
type Provider struct {
	oauth  *oauth2.Config
	client *http.Client
}

// New builds a Provider for the given connected-app settings.
//
// AuthStyleInParams makes oauth2.Exchange send client_id and client_secret in
// the form body rather than a Basic auth header, which is the request shape
// Salesforce documents for the web-server flow.
func New(cfg Config) *Provider {
	base := strings.TrimRight(cfg.LoginURL, "/")
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/services/oauth2/authorize",
				TokenURL:  base + "/services/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: requestTimeout},
	}
}

// AuthURL returns the Salesforce authorization URL to redirect the browser
// to. No state parameter is sent — see the note on HandleCallback in the
// handler package.
func (p *Provider) AuthURL() string {
	return p.oauth.AuthCodeURL("")
}

// ExchangeCode trades a one-time authorization code for Salesforce tokens.
//
// The code is used verbatim as it arrived on the callback redirect. Any
// transport error, non-2xx status, or unparseable body — and a 2xx response
// missing `id` or `access_token` — fails the exchange; the login attempt is
// not retried on transient failures.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	// oauth2 reads its HTTP client out of the context; this is how the
	// per-call timeout gets applied to the token request.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("salesforce: exchanging authorization code: %w: %w", apperror.ErrTokenExchange, err)
	}

	resp := &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IdentityURL:  extraString(tok, "id"),
		IssuedAt:     extraString(tok, "issued_at"),
	}

	if resp.AccessToken == "" || resp.IdentityURL == "" {
		return nil, fmt.Errorf("salesforce: token response missing id or access_token: %w", apperror.ErrTokenExchange)
	}

	return resp, nil
}

// FetchProfile calls the identity URL from the token response and extracts
// the authenticated user's email and username.
//
// Salesforce's identity endpoint accepts a bearer-authenticated POST with no
// body. A 2xx response that lacks either required field fails closed rather
// than letting an empty email reach the account linker.
func (p *Provider) FetchProfile(ctx context.Context, identityURL, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, identityURL, nil)
	if err != nil {
		return nil, fmt.Errorf("salesforce: building identity request: %w: %w", apperror.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce: calling identity endpoint: %w: %w", apperror.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("salesforce: identity endpoint returned status %d: %w", resp.StatusCode, apperror.ErrProfileFetch)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("salesforce: decoding identity response: %w: %w", apperror.ErrProfileFetch, err)
	}

	if profile.Email == "" || profile.Username == "" {
		return nil, fmt.Errorf("salesforce: identity response missing email or username: %w", apperror.ErrMalformedProfile)
	}

	return &profile, nil
}

// extraString reads a non-standard token-response field. Salesforce sends
// both `id` and `issued_at` as JSON strings.
func extraString(tok *oauth2.Token, key string) string {
	if v, ok := tok.Extra(key).(string); ok {
		return v
	}
	return ""
}
