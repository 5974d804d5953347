package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ideamans/go-sheetsync"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrStateMismatch is returned when a redirect does not carry the state of the consent URL
var ErrStateMismatch = errors.New("oauth state mismatch")

// OAuthFlow obtains user credentials through Google's consent screen.
// The caller serves the redirect and hands the returned code to Exchange.
type OAuthFlow struct {
	config *oauth2.Config
}

// NewOAuthFlow creates a flow from a client secrets file downloaded from the API console.
// The redirect URL must match one registered for the client.
func NewOAuthFlow(clientSecrets []byte, redirectURL string) (*OAuthFlow, error) {
	config, err := google.ConfigFromJSON(clientSecrets, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	if redirectURL != "" {
		config.RedirectURL = EnsureHTTPS(redirectURL)
	}
	return &OAuthFlow{config: config}, nil
}

// AuthCodeURL returns the consent page URL. Offline access with a forced
// consent prompt makes Google issue a refresh token every time.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"))
}

// CodeFromRedirect returns the authorization code of the URL the consent page
// redirected to, after checking it carries state.
func CodeFromRedirect(redirected, state string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(redirected))
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	q := u.Query()
	if reason := q.Get("error"); reason != "" {
		return "", fmt.Errorf("%w: authorization denied: %s", sheetsync.ErrUnauthenticated, reason)
	}
	if state == "" || q.Get("state") != state {
		return "", fmt.Errorf("%w: redirect carries state %q", ErrStateMismatch, q.Get("state"))
	}

	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: no authorization code in redirect URL", sheetsync.ErrUnauthenticated)
	}
	return code, nil
}

// Exchange trades an authorization code for a credential ready to be stored
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*StoredCredential, error) {
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange authorization code: %w", sheetsync.ErrUnauthenticated, err)
	}

	return &StoredCredential{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     f.config.Endpoint.TokenURL,
		ClientID:     f.config.ClientID,
		ClientSecret: f.config.ClientSecret,
		Scopes:       append([]string(nil), f.config.Scopes...),
		Expiry:       tok.Expiry,
		CreatedAt:    time.Now(),
	}, nil
}

// EnsureHTTPS upgrades an http callback URL to https. Loopback hosts keep
// plain http, which Google accepts for installed applications.
func EnsureHTTPS(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "http" {
		return rawURL
	}

	host := u.Hostname()
	if host == "localhost" {
		return rawURL
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return rawURL
	}

	u.Scheme = "https"
	return u.String()
}
