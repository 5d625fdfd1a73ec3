package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dghubble/oauth1"
)

const (
	twitterRequestTokenURL = "https://api.twitter.com/oauth/request_token"
	twitterAuthorizeURL    = "https://api.twitter.com/oauth/authorize"
	twitterAccessTokenURL  = "https://api.twitter.com/oauth/access_token"
	twitterUploadURL       = "https://upload.twitter.com/1.1/media/upload.json"
	twitterTweetURL        = "https://api.twitter.com/2/tweets"
	twitterVerifyURL       = "https://api.twitter.com/1.1/account/verify_credentials.json"
)

// Twitter speaks classic OAuth1.0a: a token/secret pair signed with the
// app's consumer key on every request, no refreshable bearer tokens.
// Signing is delegated to dghubble/oauth1.
type Twitter struct {
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string

	UploadURL string
	TweetURL  string
	VerifyURL string

	config *oauth1.Config
}

type TwitterMedia struct {
	Filename string
	Data     []byte
}

func NewTwitter(consumerKey, consumerSecret, callbackURL string) *Twitter {
	t := &Twitter{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    callbackURL,
		UploadURL:      twitterUploadURL,
		TweetURL:       twitterTweetURL,
		VerifyURL:      twitterVerifyURL,
	}
	t.config = &oauth1.Config{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: twitterRequestTokenURL,
			AuthorizeURL:    twitterAuthorizeURL,
			AccessTokenURL:  twitterAccessTokenURL,
		},
	}
	return t
}

func (t *Twitter) Name() string { return "twitter" }

// RequestToken starts the three-legged flow. The returned secret must be
// kept server-side until the callback brings the verifier back.
func (t *Twitter) RequestToken() (requestToken, requestSecret string, err error) {
	requestToken, requestSecret, err = t.config.RequestToken()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return requestToken, requestSecret, nil
}

func (t *Twitter) AuthorizeURL(requestToken string) (string, error) {
	u, err := t.config.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return u.String(), nil
}

func (t *Twitter) AccessToken(requestToken, requestSecret, verifier string) (*OAuth1, error) {
	token, secret, err := t.config.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return &OAuth1{Token: token, TokenSecret: secret}, nil
}

// AuthorizationURL and ExchangeCode exist to satisfy the shared adapter
// contract; the 1.0a flow routes through RequestToken/AccessToken instead.
func (t *Twitter) AuthorizationURL(string) string { return twitterAuthorizeURL }

func (t *Twitter) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	return nil, fmt.Errorf("%w: twitter uses the oauth1 request-token flow", ErrTokenExchange)
}

func (t *Twitter) client(ctx context.Context, token, secret string) *http.Client {
	return t.config.Client(ctx, oauth1.NewToken(token, secret))
}

func (t *Twitter) VerifyCredentials(ctx context.Context, token, secret string) (*Profile, error) {
	client := t.client(ctx, token, secret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.VerifyURL+"?include_email=true&skip_status=true", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ErrProviderCall, resp)
	}

	var body struct {
		IDStr      string `json:"id_str"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return &Profile{ProviderID: body.IDStr, Email: body.Email, Name: body.Name}, nil
}

// PostTweet publishes text plus optional media. Media files are uploaded
// one by one first, because the tweet endpoint only accepts media ids, and
// the ids are attached in upload order. A text-only tweet never touches the
// upload endpoint.
func (t *Twitter) PostTweet(ctx context.Context, text string, media []TwitterMedia, token, secret string) (string, error) {
	client := t.client(ctx, token, secret)

	var mediaIDs []string
	for _, m := range media {
		id, err := t.uploadMedia(ctx, client, m)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}

	payload := map[string]any{"text": text}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]any{"media_ids": mediaIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.TweetURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", statusErr(ErrProviderCall, resp)
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return out.Data.ID, nil
}

func (t *Twitter) uploadMedia(ctx context.Context, client *http.Client, m TwitterMedia) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("media", m.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if _, err := io.Copy(part, bytes.NewReader(m.Data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.UploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ErrProviderCall, resp)
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return out.MediaIDString, nil
}
