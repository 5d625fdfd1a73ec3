package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/tokens"
)

const (
	ctxUserID = "userID"
	ctxEmail  = "email"
)

// RequireAuth accepts the access token from the accessToken cookie or an
// Authorization: Bearer header, cookie first. API clients use the header,
// browser flows ride on the cookie.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := ""
			if cookie, err := c.Cookie("accessToken"); err == nil && cookie.Value != "" {
				tokenStr = cookie.Value
			} else if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimPrefix(auth, "Bearer ")
			}
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := tokens.AccessClaimsFromToken(tokenStr, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(ctxUserID, userID)
			c.Set(ctxEmail, claims.Email)
			return next(c)
		}
	}
}

func currentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok
}
