package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/mykafka"
	"github.com/ddmitrenko/crossposter/internal/repo"
	"github.com/ddmitrenko/crossposter/internal/service"
)

type AuthHandler struct {
	Auth     *service.AuthService
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	Secure   bool
}

func (h *AuthHandler) publishUserEvent(c echo.Context, eventType string, userID uint, email string) {
	if h.Producer == nil {
		return
	}
	event := map[string]any{
		"type":    eventType,
		"user_id": userID,
		"email":   email,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) setSessionCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(CreateCookie("accessToken", pair.AccessToken, "/", pair.AccessExp, h.Secure))
	c.SetCookie(CreateCookie("refreshToken", pair.RefreshToken, "/", pair.RefreshExp, h.Secure))
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		FullName        string `json:"fullName"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	err := h.Auth.Register(c.Request().Context(), req.FullName, req.Email, req.Password, req.ConfirmPassword)
	switch {
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrEmailRegistered):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not register user")
	}

	user, err := h.Repo.FindUserByEmail(c.Request().Context(), req.Email)
	if err == nil {
		h.publishUserEvent(c, "user_registered", user.ID, user.Email)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user registered",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	user, pair, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not log in")
	}

	h.setSessionCookies(c, pair)
	h.publishUserEvent(c, "user_logged_in", user.ID, user.Email)

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	tokenStr := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		tokenStr = cookie.Value
	} else if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenStr = strings.TrimPrefix(auth, "Bearer ")
	}
	if tokenStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing refresh token")
	}

	accessToken, accessExp, err := h.Auth.ValidateRefresh(c.Request().Context(), tokenStr)
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token expired")
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not refresh token")
	}

	c.SetCookie(CreateCookie("accessToken", accessToken, "/", accessExp, h.Secure))

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": accessToken,
	})
}

// Logout revokes every refresh token the user holds and clears the session
// cookies. Safe to call twice.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	if err := h.Auth.RevokeAll(c.Request().Context(), userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not log out")
	}

	c.SetCookie(DeleteCookie("accessToken", "/", h.Secure))
	c.SetCookie(DeleteCookie("refreshToken", "/", h.Secure))

	h.publishUserEvent(c, "user_logged_out", userID, "")

	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	err := h.Auth.ForgotPassword(c.Request().Context(), req.Email)
	switch {
	case errors.Is(err, service.ErrEmailNotRegistered):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not send OTP")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "OTP sent to your email",
	})
}

// ResendOTP reissues the code; the previous one stops working because only
// the latest OTP is stored.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	return h.ForgotPassword(c)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Email           string `json:"email"`
		OTP             string `json:"otp"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	err := h.Auth.ResetPassword(c.Request().Context(), req.Email, req.OTP, req.NewPassword, req.ConfirmPassword)
	switch {
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrOTPExpired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not reset password")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password updated",
	})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	user, err := h.Repo.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load profile")
	}

	return c.JSON(http.StatusOK, user)
}
