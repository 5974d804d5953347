package googlesheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested by every credential provider
var Scopes = []string{sheets.SpreadsheetsScope}

// ErrNoCredentials is returned by a CredentialStore that holds no credential
var ErrNoCredentials = errors.New("no stored credentials")

// CredentialProvider resolves the token source that authenticates requests
type CredentialProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// CredentialProviderFunc adapts a function to CredentialProvider
type CredentialProviderFunc func(ctx context.Context) (oauth2.TokenSource, error)

// TokenSource implements CredentialProvider
func (f CredentialProviderFunc) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	return f(ctx)
}

// ServiceAccountKey represents the structure of a service account JSON key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// StoredCredential is an OAuth user credential kept after the consent flow
type StoredCredential struct {
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       time.Time // zero when unknown
	CreatedAt    time.Time
}

// CredentialStore persists OAuth user credentials
type CredentialStore interface {
	// Latest returns the most recently created credential, or ErrNoCredentials
	Latest(ctx context.Context) (*StoredCredential, error)
}

// Config returns the OAuth client configuration the credential was issued for
func (c *StoredCredential) Config() *oauth2.Config {
	endpoint := google.Endpoint
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}
}

// TokenSource returns a source that refreshes the access token when it expires.
// An access token of unknown age is refreshed before first use.
func (c *StoredCredential) TokenSource(ctx context.Context) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  c.Token,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
	if tok.Expiry.IsZero() && tok.RefreshToken != "" {
		tok.AccessToken = ""
	}
	return c.Config().TokenSource(ctx, tok)
}

// FromStore authenticates with the latest credential of store
func FromStore(store CredentialStore) CredentialProvider {
	return CredentialProviderFunc(func(ctx context.Context) (oauth2.TokenSource, error) {
		cred, err := store.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored credentials: %w", err)
		}
		if cred.RefreshToken == "" && cred.Token == "" {
			return nil, fmt.Errorf("stored credential has neither access nor refresh token")
		}
		return cred.TokenSource(ctx), nil
	})
}

// FromJSONKeyFile authenticates with a JSON key file. An empty path falls back
// to the GOOGLE_APPLICATION_CREDENTIALS environment variable.
func FromJSONKeyFile(jsonPath string) CredentialProvider {
	return CredentialProviderFunc(func(ctx context.Context) (oauth2.TokenSource, error) {
		path := jsonPath
		if path == "" {
			path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			if path == "" {
				return nil, fmt.Errorf("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
			}
		}

		jsonData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON key file: %w", err)
		}
		return tokenSourceFromJSON(ctx, jsonData)
	})
}

// FromJSONKeyData authenticates with the contents of a JSON key file
func FromJSONKeyData(jsonData []byte) CredentialProvider {
	return CredentialProviderFunc(func(ctx context.Context) (oauth2.TokenSource, error) {
		return tokenSourceFromJSON(ctx, jsonData)
	})
}

// FromServiceAccountKey authenticates as a service account using a JWT grant
func FromServiceAccountKey(key *ServiceAccountKey) CredentialProvider {
	return CredentialProviderFunc(func(ctx context.Context) (oauth2.TokenSource, error) {
		if key == nil || key.ClientEmail == "" || key.PrivateKey == "" {
			return nil, fmt.Errorf("missing required fields in service account key")
		}

		tokenURL := key.TokenURI
		if tokenURL == "" {
			tokenURL = google.JWTTokenURL
		}
		jwtConfig := &jwt.Config{
			Email:        key.ClientEmail,
			PrivateKey:   []byte(key.PrivateKey),
			PrivateKeyID: key.PrivateKeyID,
			Scopes:       Scopes,
			TokenURL:     tokenURL,
		}
		return jwtConfig.TokenSource(ctx), nil
	})
}

// FromDefaultCredentials uses Application Default Credentials:
// GOOGLE_APPLICATION_CREDENTIALS, gcloud application-default login, or the GCE metadata server.
func FromDefaultCredentials() CredentialProvider {
	return CredentialProviderFunc(func(ctx context.Context) (oauth2.TokenSource, error) {
		ts, err := google.DefaultTokenSource(ctx, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to get default token source: %w", err)
		}
		return ts, nil
	})
}

// ParseServiceAccountJSON parses a service account JSON file or data
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("missing required fields in service account key")
	}

	return &key, nil
}

// tokenSourceFromJSON accepts any credential file google understands; service
// account keys are checked up front so a truncated key fails here.
func tokenSourceFromJSON(ctx context.Context, jsonData []byte) (oauth2.TokenSource, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(jsonData, &head); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if head.Type == "service_account" {
		if _, err := ParseServiceAccountJSON(jsonData); err != nil {
			return nil, err
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, jsonData, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}
