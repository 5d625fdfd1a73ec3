package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrTokenExchange = errors.New("provider token exchange failed")
	ErrTokenRefresh  = errors.New("provider token refresh failed")
	ErrProviderCall  = errors.New("provider call failed")
)

// Credential is the tagged union of the two token shapes providers issue.
// OAuth2 providers (google, youtube, facebook, linkedin) hand out bearer
// tokens with an optional refresh token; Twitter's classic API hands out an
// OAuth1.0a token/secret pair instead.
type Credential interface {
	credential()
}

type OAuth2 struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type OAuth1 struct {
	Token       string
	TokenSecret string
}

func (OAuth2) credential() {}
func (OAuth1) credential() {}

// ExpiresAt converts the relative expires_in to an absolute timestamp.
// Nil when the provider did not report a lifetime.
func (c OAuth2) ExpiresAt() *time.Time {
	if c.ExpiresIn <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(c.ExpiresIn) * time.Second)
	return &t
}

// Profile is the provider-side identity attached to a SocialAccount row.
type Profile struct {
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// Adapter is the capability every provider shares. Publishing and identity
// calls are provider-specific and live on the concrete types.
type Adapter interface {
	Name() string
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (Credential, error)
}

// Refresher is implemented by adapters whose tokens can be renewed without
// sending the user back through the consent screen.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*OAuth2, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func readBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return body
}

func statusErr(sentinel error, resp *http.Response) error {
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, readBody(resp))
}
