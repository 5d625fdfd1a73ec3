package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ddmitrenko/crossposter/internal/oauthstate"
	"github.com/ddmitrenko/crossposter/internal/provider"
)

func newConnectTestEnv(t *testing.T) (*ConnectHandler, *AuthHandler) {
	t.Helper()

	ah := newTestAuthHandler(t)
	ch := &ConnectHandler{
		Auth:        ah.Auth,
		States:      oauthstate.New(),
		FrontendURL: "http://localhost:3000",
	}
	return ch, ah
}

func TestYouTubeCallbackLinksChannel(t *testing.T) {
	ch, ah := newConnectTestEnv(t)
	e := echo.New()
	registerTestUser(t, e, ah)

	user, err := ah.Repo.FindUserByEmail(t.Context(), "test@example.com")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			fmt.Fprint(w, `{"access_token":"yt-at","refresh_token":"yt-rt","expires_in":3600}`)
		case "/channels":
			fmt.Fprint(w, `{"items":[{"id":"UC-test"}]}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	yt := provider.NewYouTube("cid", "csecret", "http://localhost/callback")
	yt.TokenURL = srv.URL + "/token"
	yt.ChannelsURL = srv.URL + "/channels"
	ch.YouTube = yt

	state := ch.States.Issue(user.ID)

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state="+state+"&code=the-code", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, ch.YouTubeCallback(e.NewContext(req, rec)))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))

	acct, err := ah.Repo.GetSocialAccount(t.Context(), user.ID, "youtube")
	require.NoError(t, err)
	require.Equal(t, "UC-test", acct.ProviderID)
	require.Equal(t, "yt-at", acct.AccessToken)
	require.Equal(t, "yt-rt", acct.RefreshToken)
}

func TestYouTubeCallbackWithoutState(t *testing.T) {
	ch, _ := newConnectTestEnv(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state=bogus&code=c", nil)
	rec := httptest.NewRecorder()

	err := ch.YouTubeCallback(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Equal(t, "app user not found", he.Message)
}

func TestTwitterCallbackUnknownRequestToken(t *testing.T) {
	ch, _ := newConnectTestEnv(t)
	ch.Twitter = provider.NewTwitter("ck", "cs", "http://localhost/callback")
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/auth/twitter/callback?oauth_token=stranger&oauth_verifier=v", nil)
	rec := httptest.NewRecorder()

	err := ch.TwitterCallback(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGoogleCallbackRejectsReplayedState(t *testing.T) {
	ch, _ := newConnectTestEnv(t)
	ch.Google = provider.NewGoogle("cid", "cs", "http://localhost/callback")
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=c", nil)
	rec := httptest.NewRecorder()

	err := ch.GoogleCallback(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}
