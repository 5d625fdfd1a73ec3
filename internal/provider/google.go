package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/idtoken"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// Google handles plain "log in with Google" (OIDC). The returned id_token is
// verified with Google's published keys before any claim is trusted.
type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthBaseURL string
	TokenURL    string

	httpClient *http.Client
	validate   func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBaseURL:  googleAuthURL,
		TokenURL:     googleTokenURL,
		httpClient:   newHTTPClient(),
		validate:     idtoken.Validate,
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthorizationURL(state string) string {
	u, _ := url.Parse(g.AuthBaseURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", "openid profile email")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
}

func (g *Google) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	cred, _, err := g.exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Exchange returns the credential together with the raw id_token, which the
// caller verifies via VerifyIDToken.
func (g *Google) Exchange(ctx context.Context, code string) (*OAuth2, string, error) {
	return g.exchange(ctx, code)
}

func (g *Google) exchange(ctx context.Context, code string) (*OAuth2, string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", g.ClientID)
	data.Set("client_secret", g.ClientSecret)
	data.Set("redirect_uri", g.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusErr(ErrTokenExchange, resp)
	}

	var tokenResp googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	return &OAuth2{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, tokenResp.IDToken, nil
}

func (g *Google) VerifyIDToken(ctx context.Context, idTok string) (*Profile, error) {
	payload, err := g.validate(ctx, idTok, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: email not present in id token", ErrProviderCall)
	}
	return &Profile{
		ProviderID: payload.Subject,
		Email:      email,
		Name:       name,
		Picture:    picture,
	}, nil
}
