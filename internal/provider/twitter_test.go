package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTwitter(uploadURL, tweetURL string) *Twitter {
	tw := NewTwitter("consumer-key", "consumer-secret", "http://localhost/callback")
	tw.UploadURL = uploadURL
	tw.TweetURL = tweetURL
	return tw
}

func TestPostTweetTextOnly(t *testing.T) {
	uploads := 0
	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads++
	}))
	defer uploadSrv.Close()

	tweetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "hello world", payload["text"])
		require.NotContains(t, payload, "media")

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"111"}}`)
	}))
	defer tweetSrv.Close()

	tw := newTestTwitter(uploadSrv.URL, tweetSrv.URL)

	id, err := tw.PostTweet(context.Background(), "hello world", nil, "token", "secret")
	require.NoError(t, err)
	require.Equal(t, "111", id)
	require.Zero(t, uploads, "text-only tweets must skip the upload endpoint")
}

func TestPostTweetUploadsMediaInOrder(t *testing.T) {
	var uploaded []string
	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("media")
		require.NoError(t, err)
		defer file.Close()
		_, _ = io.ReadAll(file)

		uploaded = append(uploaded, header.Filename)
		fmt.Fprintf(w, `{"media_id_string":"media-%d"}`, len(uploaded))
	}))
	defer uploadSrv.Close()

	tweetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text  string `json:"text"`
			Media struct {
				MediaIDs []string `json:"media_ids"`
			} `json:"media"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, []string{"media-1", "media-2"}, payload.Media.MediaIDs)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"222"}}`)
	}))
	defer tweetSrv.Close()

	tw := newTestTwitter(uploadSrv.URL, tweetSrv.URL)

	media := []TwitterMedia{
		{Filename: "first.png", Data: []byte("png-bytes")},
		{Filename: "second.png", Data: []byte("more-bytes")},
	}
	id, err := tw.PostTweet(context.Background(), "with media", media, "token", "secret")
	require.NoError(t, err)
	require.Equal(t, "222", id)
	require.Equal(t, []string{"first.png", "second.png"}, uploaded)
}

func TestPostTweetAbortsWhenUploadFails(t *testing.T) {
	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "media too large", http.StatusBadRequest)
	}))
	defer uploadSrv.Close()

	tweets := 0
	tweetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tweets++
	}))
	defer tweetSrv.Close()

	tw := newTestTwitter(uploadSrv.URL, tweetSrv.URL)

	_, err := tw.PostTweet(context.Background(), "text", []TwitterMedia{{Filename: "x.png", Data: []byte("x")}}, "token", "secret")
	require.ErrorIs(t, err, ErrProviderCall)
	require.Zero(t, tweets, "no tweet without all media ids")
}

func TestVerifyCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("include_email"))
		require.NotEmpty(t, r.Header.Get("Authorization"), "request must be signed")
		fmt.Fprint(w, `{"id_str":"42","name":"Tester","screen_name":"tester","email":"t@example.com"}`)
	}))
	defer srv.Close()

	tw := NewTwitter("ck", "cs", "http://localhost/callback")
	tw.VerifyURL = srv.URL

	profile, err := tw.VerifyCredentials(context.Background(), "token", "secret")
	require.NoError(t, err)
	require.Equal(t, "42", profile.ProviderID)
	require.Equal(t, "t@example.com", profile.Email)
}
