package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/models"
	"github.com/ddmitrenko/crossposter/internal/mykafka"
	"github.com/ddmitrenko/crossposter/internal/provider"
	"github.com/ddmitrenko/crossposter/internal/repo"
	"github.com/ddmitrenko/crossposter/internal/service/search"
)

// Upload size caps, matching what the providers themselves accept for a
// simple (non-resumable) upload.
const (
	maxImageBytes = 5 << 20
	maxVideoBytes = 200 << 20
)

type PublishHandler struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string

	Twitter  *provider.Twitter
	Facebook *provider.Facebook
	YouTube  *provider.YouTube
	LinkedIn *provider.LinkedIn
}

func (h *PublishHandler) account(c echo.Context, providerName string) (*models.SocialAccount, error) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	acct, err := h.Repo.GetSocialAccount(c.Request().Context(), userID, providerName)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotLinked) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, providerName+" account not connected")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "could not load account")
	}
	return acct, nil
}

// record writes the publish-history row, mirrors it into the search index
// and emits the event. Index and event failures are logged, not surfaced:
// the post already went out, failing the request now would only mislead.
func (h *PublishHandler) record(c echo.Context, post *models.PublishedPost) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.CreatePublishedPost(ctx, post); err != nil {
		c.Logger().Errorf("publish history error: %v", err)
		return
	}
	if h.ES != nil {
		if err := search.IndexPost(ctx, h.ES, h.Index, post); err != nil {
			c.Logger().Errorf("ES index error: %v", err)
		}
	}

	if h.Producer != nil {
		event := map[string]any{
			"type":        "post_published",
			"user_id":     post.UserID,
			"provider":    post.Provider,
			"external_id": post.ExternalID,
		}
		if err := h.Producer.PublishEvent(ctx, "post_events", fmt.Sprint(post.UserID), event); err != nil {
			c.Logger().Errorf("Kafka publish error: %v", err)
		}
	}
}

func twitterCookieCreds(c echo.Context) (token, secret string) {
	if cookie, err := c.Cookie("twitter_oauth_token"); err == nil {
		token = cookie.Value
	}
	if cookie, err := c.Cookie("twitter_oauth_token_secret"); err == nil {
		secret = cookie.Value
	}
	return token, secret
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("file %s exceeds the %d byte limit", fh.Filename, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

// TwitterPost publishes a tweet, optionally with media attachments sent as
// multipart files under the "media" field. Credentials come from the
// twitter_oauth_token cookies when present, with the SocialAccount row as
// the fallback.
func (h *PublishHandler) TwitterPost(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	token, secret := twitterCookieCreds(c)
	if token == "" || secret == "" {
		acct, err := h.account(c, "twitter")
		if err != nil {
			return err
		}
		token, secret = acct.AccessToken, acct.TokenSecret
	}

	text := c.FormValue("text")
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	var media []provider.TwitterMedia
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["media"] {
			data, err := readFormFile(fh, maxImageBytes)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			media = append(media, provider.TwitterMedia{Filename: fh.Filename, Data: data})
		}
	}

	tweetID, err := h.Twitter.PostTweet(c.Request().Context(), text, media, token, secret)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not post tweet")
	}

	h.record(c, &models.PublishedPost{
		UserID:     userID,
		Provider:   "twitter",
		ExternalID: tweetID,
		Content:    text,
		MediaCount: len(media),
		PostedAt:   time.Now(),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"tweet_id": tweetID,
	})
}

// FacebookPost publishes a photo or video with a caption to the user's
// first manageable Page.
func (h *PublishHandler) FacebookPost(c echo.Context) error {
	acct, err := h.account(c, "facebook")
	if err != nil {
		return err
	}

	content := c.FormValue("content")
	fh, err := c.FormFile("media")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "media file is required")
	}
	mimeType := fh.Header.Get("Content-Type")

	data, err := readFormFile(fh, maxVideoBytes)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	postID, err := h.Facebook.PublishMedia(c.Request().Context(), acct.AccessToken, content, bytes.NewReader(data), fh.Filename, mimeType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not publish to facebook")
	}

	h.record(c, &models.PublishedPost{
		UserID:     acct.UserID,
		Provider:   "facebook",
		ExternalID: postID,
		Content:    content,
		MediaCount: 1,
		PostedAt:   time.Now(),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"post_id": postID,
	})
}

// YouTubeUpload inserts a private video into the connected channel. A
// token known to be expired is refreshed up front; the upload body is too
// large to burn on a doomed request.
func (h *PublishHandler) YouTubeUpload(c echo.Context) error {
	acct, err := h.account(c, "youtube")
	if err != nil {
		return err
	}

	title := c.FormValue("title")
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	description := c.FormValue("description")

	fh, err := c.FormFile("video")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "video file is required")
	}
	data, err := readFormFile(fh, maxVideoBytes)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	if acct.ExpiresAt != nil && acct.ExpiresAt.Before(time.Now()) && acct.RefreshToken != "" {
		tok, err := h.YouTube.RefreshAccessToken(ctx, acct.RefreshToken)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "youtube token refresh failed, reconnect the channel")
		}
		if err := h.Repo.UpdateSocialTokens(ctx, acct.ID, tok.AccessToken, tok.RefreshToken); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not store refreshed token")
		}
		acct.AccessToken = tok.AccessToken
	}

	videoID, err := h.YouTube.Upload(ctx, acct.AccessToken, title, description, bytes.NewReader(data))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not upload video")
	}

	h.record(c, &models.PublishedPost{
		UserID:     acct.UserID,
		Provider:   "youtube",
		ExternalID: videoID,
		Content:    title,
		MediaCount: 1,
		PostedAt:   time.Now(),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"video_id": videoID,
	})
}

// LinkedInPost publishes a text share as the connected member.
func (h *PublishHandler) LinkedInPost(c echo.Context) error {
	acct, err := h.account(c, "linkedin")
	if err != nil {
		return err
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	postID, err := h.LinkedIn.Post(c.Request().Context(), acct.AccessToken, acct.ProviderID, req.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not publish to linkedin")
	}

	h.record(c, &models.PublishedPost{
		UserID:     acct.UserID,
		Provider:   "linkedin",
		ExternalID: postID,
		Content:    req.Text,
		PostedAt:   time.Now(),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"post_id": postID,
	})
}
