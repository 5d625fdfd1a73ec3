package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestYouTubeExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		require.Equal(t, "the-code", r.PostForm.Get("code"))
		require.Equal(t, "client-id", r.PostForm.Get("client_id"))

		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600}`)
	}))
	defer srv.Close()

	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	y.TokenURL = srv.URL

	cred, err := y.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	tok, ok := cred.(*OAuth2)
	require.True(t, ok)
	require.Equal(t, "at", tok.AccessToken)
	require.Equal(t, "rt", tok.RefreshToken)
	require.Equal(t, 3600, tok.ExpiresIn)
	require.NotNil(t, tok.ExpiresAt())
}

func TestYouTubeExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	y.TokenURL = srv.URL

	_, err := y.ExchangeCode(context.Background(), "bad-code")
	require.ErrorIs(t, err, ErrTokenExchange)
}

func TestYouTubeRefreshAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		fmt.Fprint(w, `{"access_token":"new-at","expires_in":3600}`)
	}))
	defer srv.Close()

	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	y.TokenURL = srv.URL

	tok, err := y.RefreshAccessToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-at", tok.AccessToken)
	require.Empty(t, tok.RefreshToken, "google does not rotate the refresh token")
}

func TestYouTubeAuthorizationURLRequestsOfflineAccess(t *testing.T) {
	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	u := y.AuthorizationURL("the-state")

	require.Contains(t, u, "access_type=offline")
	require.Contains(t, u, "prompt=consent")
	require.Contains(t, u, "state=the-state")
	require.Contains(t, u, "youtube.upload")
}

func TestAnalyticsQueryDates(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		query   AnalyticsQuery
		start   string
		end     string
		wantErr error
	}{
		{name: "7d", query: AnalyticsQuery{Range: "7d"}, start: "2026-03-08", end: "2026-03-15"},
		{name: "28d", query: AnalyticsQuery{Range: "28d"}, start: "2026-02-15", end: "2026-03-15"},
		{name: "month", query: AnalyticsQuery{Range: "month", Year: 2026, Month: 2}, start: "2026-02-01", end: "2026-02-28"},
		{name: "lifetime", query: AnalyticsQuery{Range: "lifetime"}, start: "2005-02-14", end: "2026-03-15"},
		{name: "month without year", query: AnalyticsQuery{Range: "month"}, wantErr: ErrInvalidAnalyticsRange},
		{name: "unknown", query: AnalyticsQuery{Range: "14d"}, wantErr: ErrInvalidAnalyticsRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := tc.query.dates(now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.start, start)
			require.Equal(t, tc.end, end)
		})
	}
}

func TestChannelAnalyticsReportsRawStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401}}`)
	}))
	defer srv.Close()

	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	y.AnalyticsURL = srv.URL

	status, body, err := y.ChannelAnalytics(context.Background(), "stale", AnalyticsQuery{Range: "7d"})
	require.NoError(t, err, "a 401 is a status, not an error")
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotEmpty(t, body)
}

func TestChannelID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("mine"))
		fmt.Fprint(w, `{"items":[{"id":"UC-channel"}]}`)
	}))
	defer srv.Close()

	y := NewYouTube("client-id", "client-secret", "http://localhost/callback")
	y.ChannelsURL = srv.URL

	id, err := y.ChannelID(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, "UC-channel", id)
}
