package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	youtubeAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	youtubeTokenURL     = "https://oauth2.googleapis.com/token"
	youtubeUploadURL    = "https://www.googleapis.com/upload/youtube/v3/videos"
	youtubeChannelsURL  = "https://www.googleapis.com/youtube/v3/channels"
	youtubeAnalyticsURL = "https://youtubeanalytics.googleapis.com/v2/reports"

	// Earliest date YouTube can report on; used for lifetime queries.
	youtubeEpoch = "2005-02-14"
)

// YouTube is a linking provider: the consent URL must carry a state that
// resolves to an already-logged-in user, because connecting a channel makes
// no sense without an account to attach it to.
type YouTube struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthBaseURL  string
	TokenURL     string
	UploadURL    string
	ChannelsURL  string
	AnalyticsURL string

	httpClient *http.Client
}

func NewYouTube(clientID, clientSecret, redirectURL string) *YouTube {
	return &YouTube{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBaseURL:  youtubeAuthURL,
		TokenURL:     youtubeTokenURL,
		UploadURL:    youtubeUploadURL,
		ChannelsURL:  youtubeChannelsURL,
		AnalyticsURL: youtubeAnalyticsURL,
		httpClient:   newHTTPClient(),
	}
}

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) AuthorizationURL(state string) string {
	u, _ := url.Parse(y.AuthBaseURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", y.ClientID)
	q.Set("redirect_uri", y.RedirectURL)
	q.Set("scope", strings.Join([]string{
		"https://www.googleapis.com/auth/youtube.readonly",
		"https://www.googleapis.com/auth/youtube.upload",
	}, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (y *YouTube) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", y.ClientID)
	data.Set("client_secret", y.ClientSecret)
	data.Set("redirect_uri", y.RedirectURL)

	tok, err := y.tokenRequest(ctx, data, ErrTokenExchange)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (y *YouTube) RefreshAccessToken(ctx context.Context, refreshToken string) (*OAuth2, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", y.ClientID)
	data.Set("client_secret", y.ClientSecret)

	return y.tokenRequest(ctx, data, ErrTokenRefresh)
}

func (y *YouTube) tokenRequest(ctx context.Context, data url.Values, sentinel error) (*OAuth2, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(sentinel, resp)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	return &OAuth2{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// ChannelID resolves the authenticated user's own channel id, which becomes
// the SocialAccount provider id.
func (y *YouTube) ChannelID(ctx context.Context, accessToken string) (string, error) {
	u, _ := url.Parse(y.ChannelsURL)
	q := u.Query()
	q.Set("part", "id,snippet")
	q.Set("mine", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ErrProviderCall, resp)
	}

	var body struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if len(body.Items) == 0 {
		return "", fmt.Errorf("%w: no channel for this account", ErrProviderCall)
	}
	return body.Items[0].ID, nil
}

// Upload inserts a video as a multipart/related request: a JSON metadata
// part followed by the media bytes. Uploaded videos stay private.
func (y *YouTube) Upload(ctx context.Context, accessToken, title, description string, video io.Reader) (string, error) {
	meta := map[string]any{
		"snippet": map[string]string{
			"title":       title,
			"description": description,
		},
		"status": map[string]string{
			"privacyStatus": "private",
		},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "application/octet-stream")
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if _, err := io.Copy(mediaPart, video); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	u, _ := url.Parse(y.UploadURL)
	q := u.Query()
	q.Set("uploadType", "multipart")
	q.Set("part", "snippet,status")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ErrProviderCall, resp)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return body.ID, nil
}

type AnalyticsQuery struct {
	Range string // 7d, 28d, 90d, 365d, month, lifetime
	Year  int
	Month int
}

var ErrInvalidAnalyticsRange = fmt.Errorf("invalid analytics range")

func (q AnalyticsQuery) dates(now time.Time) (string, string, error) {
	end := now.Format("2006-01-02")
	switch q.Range {
	case "7d":
		return now.AddDate(0, 0, -7).Format("2006-01-02"), end, nil
	case "28d":
		return now.AddDate(0, 0, -28).Format("2006-01-02"), end, nil
	case "90d":
		return now.AddDate(0, 0, -90).Format("2006-01-02"), end, nil
	case "365d":
		return now.AddDate(0, 0, -365).Format("2006-01-02"), end, nil
	case "month":
		if q.Year == 0 || q.Month == 0 {
			return "", "", fmt.Errorf("%w: year and month required for monthly analytics", ErrInvalidAnalyticsRange)
		}
		first := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
	case "lifetime":
		return youtubeEpoch, end, nil
	default:
		return "", "", ErrInvalidAnalyticsRange
	}
}

// ChannelAnalytics queries the reporting API for the authenticated channel.
// The raw status code is returned so the refresh coordinator can react to a
// 401 without this method deciding what expiry means.
func (y *YouTube) ChannelAnalytics(ctx context.Context, accessToken string, query AnalyticsQuery) (int, []byte, error) {
	startDate, endDate, err := query.dates(time.Now())
	if err != nil {
		return 0, nil, err
	}

	u, _ := url.Parse(y.AnalyticsURL)
	q := u.Query()
	q.Set("ids", "channel==MINE")
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)
	q.Set("metrics", "views,likes,comments,subscribersGained")
	q.Set("dimensions", "day")
	q.Set("sort", "day")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, readBody(resp), nil
}
