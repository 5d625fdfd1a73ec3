package provider

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	linkedinAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinJWKSURL  = "https://www.linkedin.com/oauth/openid/jwks"
	linkedinIssuer   = "https://www.linkedin.com"
	linkedinAPIURL   = "https://api.linkedin.com"
)

// LinkedIn uses the OIDC flavor of its OAuth endpoints. The id_token
// signature is verified against the published JWKS before any claim is
// trusted; a plain decode is not enough to believe the sub/email.
type LinkedIn struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthBaseURL string
	TokenURL    string
	JWKSURL     string
	Issuer      string
	APIBaseURL  string

	httpClient *http.Client

	mu     sync.RWMutex
	keys   map[string]*rsa.PublicKey
	keysAt time.Time
}

func NewLinkedIn(clientID, clientSecret, redirectURL string) *LinkedIn {
	return &LinkedIn{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBaseURL:  linkedinAuthURL,
		TokenURL:     linkedinTokenURL,
		JWKSURL:      linkedinJWKSURL,
		Issuer:       linkedinIssuer,
		APIBaseURL:   linkedinAPIURL,
		httpClient:   newHTTPClient(),
	}
}

func (l *LinkedIn) Name() string { return "linkedin" }

func (l *LinkedIn) AuthorizationURL(state string) string {
	u, _ := url.Parse(l.AuthBaseURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", l.ClientID)
	q.Set("redirect_uri", l.RedirectURL)
	q.Set("scope", "openid profile email w_member_social")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (l *LinkedIn) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	cred, _, err := l.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Exchange returns the credential plus the raw id_token for VerifyIDToken.
func (l *LinkedIn) Exchange(ctx context.Context, code string) (*OAuth2, string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", l.ClientID)
	data.Set("client_secret", l.ClientSecret)
	data.Set("redirect_uri", l.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusErr(ErrTokenExchange, resp)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		IDToken     string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tokenResp.IDToken == "" {
		return nil, "", fmt.Errorf("%w: no id token returned", ErrTokenExchange)
	}
	return &OAuth2{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   tokenResp.ExpiresIn,
	}, tokenResp.IDToken, nil
}

type linkedInIDClaims struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	jwt.RegisteredClaims
}

func (l *LinkedIn) VerifyIDToken(ctx context.Context, idTok string) (*Profile, error) {
	var claims linkedInIDClaims
	tkn, err := jwt.ParseWithClaims(idTok, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected sign method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		return l.rsaKeyForKid(ctx, kid)
	}, jwt.WithAudience(l.ClientID), jwt.WithIssuer(l.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: id token verification: %v", ErrProviderCall, err)
	}
	if !tkn.Valid {
		return nil, fmt.Errorf("%w: invalid id token", ErrProviderCall)
	}

	name := claims.Name
	if name == "" {
		name = strings.TrimSpace(claims.GivenName + " " + claims.FamilyName)
	}
	return &Profile{
		ProviderID: claims.Subject,
		Email:      claims.Email,
		Name:       name,
		Picture:    claims.Picture,
	}, nil
}

type jwksDoc struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (l *LinkedIn) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	l.mu.RLock()
	key, ok := l.keys[kid]
	fresh := time.Since(l.keysAt) < time.Hour
	l.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}

	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
		if e == 0 {
			e = 65537
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}
	}

	l.mu.Lock()
	l.keys = keys
	l.keysAt = time.Now()
	l.mu.Unlock()

	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("kid not found in jwks")
}

// Post publishes a text share as the member behind the access token.
func (l *LinkedIn) Post(ctx context.Context, accessToken, personID, text string) (string, error) {
	payload := map[string]any{
		"author":         "urn:li:person:" + personID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.APIBaseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", statusErr(ErrProviderCall, resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	return out.ID, nil
}
