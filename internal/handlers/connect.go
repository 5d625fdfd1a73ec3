package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/mykafka"
	"github.com/ddmitrenko/crossposter/internal/oauthstate"
	"github.com/ddmitrenko/crossposter/internal/provider"
	"github.com/ddmitrenko/crossposter/internal/service"
)

// ConnectHandler owns the OAuth redirect dance for every provider.
//
// Google, Facebook and LinkedIn are login providers: landing on their
// callback logs the user in (provisioning an account on first contact) and
// links the identity. YouTube and Twitter are linking providers: the user
// must already be logged in, and the callback only attaches the external
// account.
type ConnectHandler struct {
	Auth     *service.AuthService
	States   *oauthstate.Store
	Producer *mykafka.Producer

	Google   *provider.Google
	YouTube  *provider.YouTube
	Facebook *provider.Facebook
	LinkedIn *provider.LinkedIn
	Twitter  *provider.Twitter

	FrontendURL string
	Secure      bool
}

// twitterPending is what survives between the request-token redirect and
// the callback: the request secret is never sent to the browser.
type twitterPending struct {
	UserID        uint
	RequestSecret string
}

// setProviderCookies caches the provider tokens client-side as a publish
// fast path. The SocialAccount row stays the source of truth; a missing or
// stale cookie just means a DB read.
func (h *ConnectHandler) setProviderCookies(c echo.Context, providerName string, cred provider.Credential) {
	exp := time.Now().Add(7 * 24 * time.Hour)
	switch tok := cred.(type) {
	case *provider.OAuth2:
		if at := tok.ExpiresAt(); at != nil {
			exp = *at
		}
		c.SetCookie(CreateCookie(providerName+"_access_token", tok.AccessToken, "/", exp, h.Secure))
		if tok.RefreshToken != "" {
			c.SetCookie(CreateCookie(providerName+"_refresh_token", tok.RefreshToken, "/", time.Now().Add(30*24*time.Hour), h.Secure))
		}
	case *provider.OAuth1:
		c.SetCookie(CreateCookie("twitter_oauth_token", tok.Token, "/", exp, h.Secure))
		c.SetCookie(CreateCookie("twitter_oauth_token_secret", tok.TokenSecret, "/", exp, h.Secure))
	}
}

func (h *ConnectHandler) GoogleLogin(c echo.Context) error {
	state := h.States.Issue(struct{}{})
	return c.Redirect(http.StatusFound, h.Google.AuthorizationURL(state))
}

func (h *ConnectHandler) GoogleCallback(c echo.Context) error {
	if _, ok := h.States.Consume(c.QueryParam("state")); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	ctx := c.Request().Context()

	cred, idToken, err := h.Google.Exchange(ctx, code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "google token exchange failed")
	}
	profile, err := h.Google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "google id token rejected")
	}

	return h.finishLogin(c, "google", profile, cred)
}

func (h *ConnectHandler) FacebookLogin(c echo.Context) error {
	state := h.States.Issue(struct{}{})
	return c.Redirect(http.StatusFound, h.Facebook.AuthorizationURL(state))
}

func (h *ConnectHandler) FacebookCallback(c echo.Context) error {
	if _, ok := h.States.Consume(c.QueryParam("state")); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	ctx := c.Request().Context()

	cred, err := h.Facebook.ExchangeCode(ctx, code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "facebook token exchange failed")
	}
	tok := cred.(*provider.OAuth2)

	profile, err := h.Facebook.Me(ctx, tok.AccessToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "facebook profile fetch failed")
	}
	if profile.Email == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "facebook account has no email")
	}

	return h.finishLogin(c, "facebook", profile, tok)
}

func (h *ConnectHandler) LinkedInLogin(c echo.Context) error {
	state := h.States.Issue(struct{}{})
	return c.Redirect(http.StatusFound, h.LinkedIn.AuthorizationURL(state))
}

func (h *ConnectHandler) LinkedInCallback(c echo.Context) error {
	if _, ok := h.States.Consume(c.QueryParam("state")); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	ctx := c.Request().Context()

	cred, idToken, err := h.LinkedIn.Exchange(ctx, code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "linkedin token exchange failed")
	}
	profile, err := h.LinkedIn.VerifyIDToken(ctx, idToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "linkedin id token rejected")
	}
	if profile.Email == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "linkedin account has no email")
	}

	return h.finishLogin(c, "linkedin", profile, cred)
}

// finishLogin is the shared tail of every login provider callback: resolve
// the application user, attach the external identity, mint a session and
// send the browser home.
func (h *ConnectHandler) finishLogin(c echo.Context, providerName string, profile *provider.Profile, cred provider.Credential) error {
	ctx := c.Request().Context()

	user, err := h.Auth.OAuthLogin(ctx, profile.Email, profile.Name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not resolve user")
	}
	if _, err := h.Auth.LinkAccount(ctx, user.ID, providerName, profile.ProviderID, cred); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not link account")
	}
	h.setProviderCookies(c, providerName, cred)

	pair, err := h.Auth.Issue(ctx, user.ID, user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create session")
	}
	c.SetCookie(CreateCookie("accessToken", pair.AccessToken, "/", pair.AccessExp, h.Secure))
	c.SetCookie(CreateCookie("refreshToken", pair.RefreshToken, "/", pair.RefreshExp, h.Secure))

	if h.Producer != nil {
		event := map[string]any{
			"type":     "oauth_login",
			"user_id":  user.ID,
			"provider": providerName,
		}
		if err := h.Producer.PublishEvent(ctx, "user_events", profile.ProviderID, event); err != nil {
			c.Logger().Errorf("Kafka publish error: %v", err)
		}
	}

	return c.Redirect(http.StatusFound, h.FrontendURL)
}

// YouTubeConnect needs a logged-in user: the state carries the user id so
// the callback knows whose channel is being attached.
func (h *ConnectHandler) YouTubeConnect(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	state := h.States.Issue(userID)
	return c.Redirect(http.StatusFound, h.YouTube.AuthorizationURL(state))
}

func (h *ConnectHandler) YouTubeCallback(c echo.Context) error {
	userID, ok := h.States.ConsumeUserID(c.QueryParam("state"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "app user not found")
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	ctx := c.Request().Context()

	cred, err := h.YouTube.ExchangeCode(ctx, code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "youtube token exchange failed")
	}
	tok := cred.(*provider.OAuth2)

	channelID, err := h.YouTube.ChannelID(ctx, tok.AccessToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not resolve youtube channel")
	}
	if _, err := h.Auth.LinkAccount(ctx, userID, "youtube", channelID, tok); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not link account")
	}
	h.setProviderCookies(c, "youtube", tok)

	return c.Redirect(http.StatusFound, h.FrontendURL)
}

// TwitterConnect starts the three-legged OAuth1.0a flow. The request secret
// is parked server-side keyed by the request token until the callback.
func (h *ConnectHandler) TwitterConnect(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	requestToken, requestSecret, err := h.Twitter.RequestToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "twitter request token failed")
	}
	h.States.Put(requestToken, twitterPending{UserID: userID, RequestSecret: requestSecret})

	authURL, err := h.Twitter.AuthorizeURL(requestToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "twitter authorize url failed")
	}
	return c.Redirect(http.StatusFound, authURL)
}

func (h *ConnectHandler) TwitterCallback(c echo.Context) error {
	oauthToken := c.QueryParam("oauth_token")
	verifier := c.QueryParam("oauth_verifier")
	if oauthToken == "" || verifier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing oauth_token or oauth_verifier")
	}

	v, ok := h.States.Consume(oauthToken)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown or expired request token")
	}
	pending, ok := v.(twitterPending)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown or expired request token")
	}

	ctx := c.Request().Context()

	cred, err := h.Twitter.AccessToken(oauthToken, pending.RequestSecret, verifier)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "twitter access token failed")
	}

	profile, err := h.Twitter.VerifyCredentials(ctx, cred.Token, cred.TokenSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "twitter credential check failed")
	}

	if _, err := h.Auth.LinkAccount(ctx, pending.UserID, "twitter", profile.ProviderID, cred); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not link account")
	}
	h.setProviderCookies(c, "twitter", cred)

	return c.Redirect(http.StatusFound, h.FrontendURL)
}
