package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFacebookExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)
		require.Equal(t, "the-code", r.URL.Query().Get("code"))
		fmt.Fprint(w, `{"access_token":"user-token","expires_in":5184000}`)
	}))
	defer srv.Close()

	f := NewFacebook("app-id", "app-secret", "http://localhost/callback")
	f.GraphURL = srv.URL

	cred, err := f.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	tok, ok := cred.(*OAuth2)
	require.True(t, ok)
	require.Equal(t, "user-token", tok.AccessToken)
	require.Empty(t, tok.RefreshToken, "facebook issues no refresh token")
}

// The page indirection: listing pages uses the user token, publishing uses
// the page-scoped token from that listing.
func TestFacebookPublishUsesPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/accounts":
			require.Equal(t, "user-token", r.URL.Query().Get("access_token"))
			fmt.Fprint(w, `{"data":[{"id":"page-1","name":"First","access_token":"page-token"},{"id":"page-2","name":"Second","access_token":"other"}]}`)
		case "/page-1/photos":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			require.Equal(t, "page-token", r.FormValue("access_token"))
			require.Equal(t, "hello", r.FormValue("caption"))

			file, _, err := r.FormFile("source")
			require.NoError(t, err)
			file.Close()

			fmt.Fprint(w, `{"id":"photo-9","post_id":"page-1_post-9"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	f := NewFacebook("app-id", "app-secret", "http://localhost/callback")
	f.GraphURL = srv.URL
	f.VideosURL = srv.URL

	postID, err := f.PublishMedia(context.Background(), "user-token", "hello", bytes.NewReader([]byte("jpeg")), "pic.jpg", "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "page-1_post-9", postID)
}

func TestFacebookPublishWithoutPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	f := NewFacebook("app-id", "app-secret", "http://localhost/callback")
	f.GraphURL = srv.URL

	_, err := f.PublishMedia(context.Background(), "user-token", "hello", bytes.NewReader(nil), "pic.jpg", "image/jpeg")
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestFacebookPublishRejectsUnknownMime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"page-1","name":"First","access_token":"page-token"}]}`)
	}))
	defer srv.Close()

	f := NewFacebook("app-id", "app-secret", "http://localhost/callback")
	f.GraphURL = srv.URL

	_, err := f.PublishMedia(context.Background(), "user-token", "hello", bytes.NewReader(nil), "doc.pdf", "application/pdf")
	require.ErrorIs(t, err, ErrProviderCall)
}

func TestFacebookVideoGoesToVideoHost(t *testing.T) {
	videoCalls := 0
	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		videoCalls++
		require.Equal(t, "/page-1/videos", r.URL.Path)
		fmt.Fprint(w, `{"id":"video-3"}`)
	}))
	defer videoSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/accounts", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"page-1","name":"First","access_token":"page-token"}]}`)
	}))
	defer graphSrv.Close()

	f := NewFacebook("app-id", "app-secret", "http://localhost/callback")
	f.GraphURL = graphSrv.URL
	f.VideosURL = videoSrv.URL

	id, err := f.PublishMedia(context.Background(), "user-token", "clip", bytes.NewReader([]byte("mp4")), "clip.mp4", "video/mp4")
	require.NoError(t, err)
	require.Equal(t, "video-3", id)
	require.Equal(t, 1, videoCalls)
}
