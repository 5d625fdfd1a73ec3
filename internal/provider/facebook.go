package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	facebookAuthURL   = "https://www.facebook.com/v19.0/dialog/oauth"
	facebookGraphURL  = "https://graph.facebook.com/v19.0"
	facebookVideosURL = "https://graph-video.facebook.com/v19.0"
)

// Facebook publishes through a two-step indirection: the user token only
// lists manageable Pages, and the first page's page-scoped token does the
// actual posting. The user-level token never posts directly.
type Facebook struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthBaseURL string
	GraphURL    string
	VideosURL   string

	httpClient *http.Client
}

func NewFacebook(clientID, clientSecret, redirectURL string) *Facebook {
	return &Facebook{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBaseURL:  facebookAuthURL,
		GraphURL:     facebookGraphURL,
		VideosURL:    facebookVideosURL,
		httpClient:   newHTTPClient(),
	}
}

func (f *Facebook) Name() string { return "facebook" }

func (f *Facebook) AuthorizationURL(state string) string {
	u, _ := url.Parse(f.AuthBaseURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("scope", "email,public_profile,pages_manage_posts,pages_read_engagement")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *Facebook) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	u, _ := url.Parse(f.GraphURL + "/oauth/access_token")
	q := u.Query()
	q.Set("client_id", f.ClientID)
	q.Set("client_secret", f.ClientSecret)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ErrTokenExchange, resp)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return &OAuth2{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   tokenResp.ExpiresIn,
	}, nil
}

func (f *Facebook) Me(ctx context.Context, accessToken string) (*Profile, error) {
	u, _ := url.Parse(f.GraphURL + "/me")
	q := u.Query()
	q.Set("fields", "id,name,email")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ErrProviderCall, resp)
	}

	var me struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return &Profile{ProviderID: me.ID, Email: me.Email, Name: me.Name}, nil
}

type FacebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

func (f *Facebook) Pages(ctx context.Context, userToken string) ([]FacebookPage, error) {
	u, _ := url.Parse(f.GraphURL + "/me/accounts")
	q := u.Query()
	q.Set("access_token", userToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ErrProviderCall, resp)
	}

	var body struct {
		Data []FacebookPage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return body.Data, nil
}

// PublishMedia posts a photo or video to the user's first manageable Page.
func (f *Facebook) PublishMedia(ctx context.Context, userToken, content string, media io.Reader, filename, mimeType string) (string, error) {
	pages, err := f.Pages(ctx, userToken)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no manageable pages for this user", ErrProviderCall)
	}
	page := pages[0]

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return f.postPhoto(ctx, page, content, media, filename)
	case strings.HasPrefix(mimeType, "video/"):
		return f.postVideo(ctx, page, content, media, filename)
	default:
		return "", fmt.Errorf("%w: unsupported media type %q", ErrProviderCall, mimeType)
	}
}

func (f *Facebook) postPhoto(ctx context.Context, page FacebookPage, caption string, media io.Reader, filename string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/photos", f.GraphURL, page.ID)
	fields := map[string]string{
		"caption":      caption,
		"access_token": page.AccessToken,
	}
	var body struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := f.postForm(ctx, endpoint, fields, media, filename, &body); err != nil {
		return "", err
	}
	if body.PostID != "" {
		return body.PostID, nil
	}
	return body.ID, nil
}

func (f *Facebook) postVideo(ctx context.Context, page FacebookPage, description string, media io.Reader, filename string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/videos", f.VideosURL, page.ID)
	fields := map[string]string{
		"description":  description,
		"access_token": page.AccessToken,
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := f.postForm(ctx, endpoint, fields, media, filename, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func (f *Facebook) postForm(ctx context.Context, endpoint string, fields map[string]string, media io.Reader, filename string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("%w: %v", ErrProviderCall, err)
		}
	}
	part, err := w.CreateFormFile("source", filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if _, err := io.Copy(part, media); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr(ErrProviderCall, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return nil
}
