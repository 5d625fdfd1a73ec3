package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestGoogleExchangeReturnsIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		require.Equal(t, "the-code", r.PostForm.Get("code"))
		require.Equal(t, "http://localhost/callback", r.PostForm.Get("redirect_uri"))

		fmt.Fprint(w, `{"access_token":"at","expires_in":3599,"id_token":"header.payload.sig"}`)
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	g.TokenURL = srv.URL

	cred, idTok, err := g.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "at", cred.AccessToken)
	require.Equal(t, "header.payload.sig", idTok)
}

func TestGoogleVerifyIDToken(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	g.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		require.Equal(t, "header.payload.sig", token)
		require.Equal(t, "client-id", audience, "the token must be issued for this app")
		return &idtoken.Payload{
			Subject: "google-sub",
			Claims: map[string]any{
				"email":   "g@example.com",
				"name":    "G User",
				"picture": "https://example.com/p.png",
			},
		}, nil
	}

	profile, err := g.VerifyIDToken(context.Background(), "header.payload.sig")
	require.NoError(t, err)
	require.Equal(t, "google-sub", profile.ProviderID)
	require.Equal(t, "g@example.com", profile.Email)
	require.Equal(t, "G User", profile.Name)
}

func TestGoogleVerifyIDTokenRejectsBadSignature(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	g.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return nil, errors.New("signature mismatch")
	}

	_, err := g.VerifyIDToken(context.Background(), "forged")
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestGoogleVerifyIDTokenRequiresEmail(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	g.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Subject: "sub", Claims: map[string]any{}}, nil
	}

	_, err := g.VerifyIDToken(context.Background(), "no-email")
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestGoogleAuthorizationURL(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	u := g.AuthorizationURL("the-state")

	require.Contains(t, u, "response_type=code")
	require.Contains(t, u, "state=the-state")
	require.Contains(t, u, "openid+profile+email")
}
