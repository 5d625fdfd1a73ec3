package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/provider"
	"github.com/ddmitrenko/crossposter/internal/repo"
)

type AnalyticsHandler struct {
	Repo        *repo.GormRepo
	YouTube     *provider.YouTube
	Coordinator *provider.Coordinator
}

// YouTubeAnalytics proxies the reporting API for the connected channel.
// The call goes through the refresh coordinator, so an expired access token
// costs one silent refresh instead of an error.
func (h *AnalyticsHandler) YouTubeAnalytics(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	acct, err := h.Repo.GetSocialAccount(c.Request().Context(), userID, "youtube")
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotLinked) {
			return echo.NewHTTPError(http.StatusBadRequest, "youtube account not connected")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load account")
	}

	query := provider.AnalyticsQuery{Range: c.QueryParam("range")}
	if query.Range == "" {
		query.Range = "28d"
	}
	if y := c.QueryParam("year"); y != "" {
		query.Year, _ = strconv.Atoi(y)
	}
	if m := c.QueryParam("month"); m != "" {
		query.Month, _ = strconv.Atoi(m)
	}

	ctx := c.Request().Context()

	status, body, err := h.Coordinator.Do(ctx, acct, h.YouTube.RefreshAccessToken, func(accessToken string) (int, []byte, error) {
		return h.YouTube.ChannelAnalytics(ctx, accessToken, query)
	})
	switch {
	case errors.Is(err, provider.ErrInvalidAnalyticsRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrRefreshUnavailable):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, provider.ErrRefreshExhausted):
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch analytics even after refreshing")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, "could not fetch analytics")
	}

	if status != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, "youtube analytics error")
	}
	return c.JSONBlob(http.StatusOK, body)
}
