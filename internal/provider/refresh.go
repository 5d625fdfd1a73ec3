package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ddmitrenko/crossposter/internal/models"
)

var (
	// ErrRefreshUnavailable: the provider said 401 and there is no stored
	// refresh token to recover with. The user has to reconnect.
	ErrRefreshUnavailable = errors.New("no refresh token available, reconnect the provider")

	// ErrRefreshExhausted: one refresh-and-retry cycle was spent and the
	// provider still refuses the call.
	ErrRefreshExhausted = errors.New("provider call failed even after refreshing the access token")
)

// TokenStore persists refreshed tokens; the repo satisfies it.
type TokenStore interface {
	UpdateSocialTokens(ctx context.Context, accountID uint, accessToken, refreshToken string) error
}

// CallFunc performs the provider call with the given access token and
// reports the raw status so the coordinator can recognize a 401.
type CallFunc func(accessToken string) (status int, body []byte, err error)

// RefreshFunc renews the access token from the stored refresh token.
type RefreshFunc func(ctx context.Context, refreshToken string) (*OAuth2, error)

// Coordinator runs a provider call and, on a 401, spends exactly one
// refresh-and-retry before giving up. One retry is enough: if the refresh
// token itself has been revoked provider-side, looping would never converge.
// Refreshes for the same (user, provider) pair are serialized so two
// concurrent requests cannot clobber each other's stored access token.
type Coordinator struct {
	Store TokenStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(store TokenStore) *Coordinator {
	return &Coordinator{
		Store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) lockFor(acct *models.SocialAccount) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", acct.UserID, acct.Provider)
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// Do executes call with the account's stored access token. Any response
// other than 401 is returned unchanged, success or not; only an auth
// failure triggers the refresh path. On a successful refresh the new access
// token (and rotated refresh token, when the provider returns one) is
// persisted and mirrored into acct.
func (c *Coordinator) Do(ctx context.Context, acct *models.SocialAccount, refresh RefreshFunc, call CallFunc) (int, []byte, error) {
	lock := c.lockFor(acct)
	lock.Lock()
	defer lock.Unlock()

	status, body, err := call(acct.AccessToken)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, body, nil
	}

	if acct.RefreshToken == "" {
		return 0, nil, ErrRefreshUnavailable
	}

	tok, err := refresh(ctx, acct.RefreshToken)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
	}

	if err := c.Store.UpdateSocialTokens(ctx, acct.ID, tok.AccessToken, tok.RefreshToken); err != nil {
		return 0, nil, err
	}
	acct.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		acct.RefreshToken = tok.RefreshToken
	}

	status, body, err = call(acct.AccessToken)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		return 0, nil, ErrRefreshExhausted
	}
	return status, body, nil
}
