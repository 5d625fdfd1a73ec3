package provider

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newJWKSServer(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()

	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(doc))
	}))
}

func signLinkedInIDToken(t *testing.T, key *rsa.PrivateKey, kid, issuer, audience string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss":   issuer,
		"aud":   audience,
		"sub":   "li-member-1",
		"email": "li@example.com",
		"name":  "Linked User",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestLinkedInExchangeRequiresIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"at","expires_in":3600}`)
	}))
	defer srv.Close()

	l := NewLinkedIn("client-id", "client-secret", "http://localhost/callback")
	l.TokenURL = srv.URL

	_, _, err := l.Exchange(context.Background(), "the-code")
	require.ErrorIs(t, err, ErrTokenExchange)
}

func TestLinkedInVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, "kid-1", &key.PublicKey)
	defer jwks.Close()

	l := NewLinkedIn("client-id", "client-secret", "http://localhost/callback")
	l.JWKSURL = jwks.URL

	idTok := signLinkedInIDToken(t, key, "kid-1", l.Issuer, "client-id")

	profile, err := l.VerifyIDToken(context.Background(), idTok)
	require.NoError(t, err)
	require.Equal(t, "li-member-1", profile.ProviderID)
	require.Equal(t, "li@example.com", profile.Email)
	require.Equal(t, "Linked User", profile.Name)
}

func TestLinkedInVerifyIDTokenRejectsWrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, "kid-1", &key.PublicKey)
	defer jwks.Close()

	l := NewLinkedIn("client-id", "client-secret", "http://localhost/callback")
	l.JWKSURL = jwks.URL

	idTok := signLinkedInIDToken(t, key, "kid-1", l.Issuer, "someone-else")

	_, err = l.VerifyIDToken(context.Background(), idTok)
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestLinkedInVerifyIDTokenRejectsForeignKey(t *testing.T) {
	trusted, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	attacker, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, "kid-1", &trusted.PublicKey)
	defer jwks.Close()

	l := NewLinkedIn("client-id", "client-secret", "http://localhost/callback")
	l.JWKSURL = jwks.URL

	idTok := signLinkedInIDToken(t, attacker, "kid-1", l.Issuer, "client-id")

	_, err = l.VerifyIDToken(context.Background(), idTok)
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestLinkedInPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/ugcPosts", r.URL.Path)
		require.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))
		require.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "urn:li:person:li-member-1", payload["author"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"urn:li:share:99"}`)
	}))
	defer srv.Close()

	l := NewLinkedIn("client-id", "client-secret", "http://localhost/callback")
	l.APIBaseURL = srv.URL

	id, err := l.Post(context.Background(), "li-token", "li-member-1", "hello network")
	require.NoError(t, err)
	require.Equal(t, "urn:li:share:99", id)
}
