package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ddmitrenko/crossposter/internal/hash"
	"github.com/ddmitrenko/crossposter/internal/logging"
	"github.com/ddmitrenko/crossposter/internal/models"
	"github.com/ddmitrenko/crossposter/internal/provider"
	"github.com/ddmitrenko/crossposter/internal/repo"
	"github.com/ddmitrenko/crossposter/internal/tokens"
)

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrEmailNotRegistered = errors.New("email not registered")
	// Unknown email and wrong password collapse into one error so responses
	// cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrInvalidOTP         = errors.New("invalid email or OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
)

const otpTTL = 10 * time.Minute

// OTPMailer delivers password-reset codes; the SMTP mailer satisfies it and
// tests swap in a recorder.
type OTPMailer interface {
	SendOTP(to, otp string) error
}

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Mailer        OTPMailer
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) Register(ctx context.Context, fullName, email, password, confirmPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if password != confirmPassword {
		return ErrPasswordMismatch
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return err
	}

	user := models.User{
		Email:        strings.ToLower(email),
		FullName:     fullName,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return ErrEmailRegistered
		}
		l.Error("register_error", "reason", "db_error", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		l.Error("login_error", "reason", "db_error", "error", err)
		return nil, nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.Issue(ctx, user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Issue mints the 15-minute access token and 7-day refresh token and
// persists the refresh token as a new row. Existing rows are untouched, so
// several devices can hold live sessions at once.
func (s *AuthService) Issue(ctx context.Context, userID uint, email string) (*TokenPair, error) {
	accessToken, accessExp, err := tokens.SignAccessToken(userID, email, s.JWTSecret, tokens.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, refreshExp, err := tokens.SignRefreshToken(userID, email, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	row := models.RefreshToken{
		UserID:    userID,
		Token:     tokens.Sha256Hex(refreshToken),
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
		Revoked:   false,
	}
	if err := s.Repo.CreateRefreshToken(ctx, &row); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// ValidateRefresh checks the presented refresh token against the user's
// stored rows and mints a new access token. The refresh token itself is not
// rotated. Fails closed: a missing or revoked row is ErrInvalidCredentials,
// a past expiry is ErrTokenExpired regardless of the revoked flag.
func (s *AuthService) ValidateRefresh(ctx context.Context, presented string) (string, time.Time, error) {
	claims, err := tokens.RefreshClaimsFromToken(presented, s.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", time.Time{}, ErrTokenExpired
		}
		return "", time.Time{}, ErrInvalidCredentials
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if _, err := s.Repo.GetUserByID(ctx, userID); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	stored, err := s.Repo.FindRefreshToken(ctx, userID, tokens.Sha256Hex(presented))
	if err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if stored.ExpiresAt < time.Now().Unix() {
		return "", time.Time{}, ErrTokenExpired
	}
	if stored.Revoked {
		return "", time.Time{}, ErrInvalidCredentials
	}

	accessToken, accessExp, err := tokens.SignAccessToken(userID, claims.Email, s.JWTSecret, tokens.AccessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return accessToken, accessExp, nil
}

// RevokeAll flips every live refresh token for the user. Idempotent.
func (s *AuthService) RevokeAll(ctx context.Context, userID uint) error {
	return s.Repo.RevokeAllRefreshTokens(ctx, userID)
}

// SignShortLived is the lightweight login path: an access token with no
// refresh row, for flows that do not need rotation.
func (s *AuthService) SignShortLived(userID uint, email string, ttl time.Duration) (string, time.Time, error) {
	return tokens.SignAccessToken(userID, email, s.JWTSecret, ttl)
}

// OAuthLogin finds the user owning an email seen in a provider callback, or
// auto-provisions one. The generated password is random and never shown to
// the user, so password login stays unavailable until they run the
// password-reset flow.
func (s *AuthService) OAuthLogin(ctx context.Context, email, fullName string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.oauth_login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Email:        strings.ToLower(email),
		FullName:     fullName,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil && !errors.Is(err, repo.ErrUserAlreadyExist) {
		l.Error("oauth_login_error", "reason", "db_error", "error", err)
		return nil, err
	}
	return user, nil
}

// LinkAccount upserts the SocialAccount row for a provider identity.
func (s *AuthService) LinkAccount(ctx context.Context, userID uint, providerName, providerID string, cred provider.Credential) (*models.SocialAccount, error) {
	acct := models.SocialAccount{
		UserID:     userID,
		Provider:   providerName,
		ProviderID: providerID,
	}
	switch c := cred.(type) {
	case *provider.OAuth2:
		acct.AccessToken = c.AccessToken
		acct.RefreshToken = c.RefreshToken
		acct.ExpiresAt = c.ExpiresAt()
	case provider.OAuth2:
		acct.AccessToken = c.AccessToken
		acct.RefreshToken = c.RefreshToken
		acct.ExpiresAt = c.ExpiresAt()
	case *provider.OAuth1:
		acct.AccessToken = c.Token
		acct.TokenSecret = c.TokenSecret
	case provider.OAuth1:
		acct.AccessToken = c.Token
		acct.TokenSecret = c.TokenSecret
	default:
		return nil, fmt.Errorf("unknown credential type %T", cred)
	}

	if err := s.Repo.UpsertSocialAccount(ctx, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return ErrEmailNotRegistered
		}
		return err
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.Repo.SetOTP(ctx, user.Email, otp, time.Now().Add(otpTTL)); err != nil {
		return err
	}

	if err := s.Mailer.SendOTP(user.Email, otp); err != nil {
		l.Error("forgot_password_error", "reason", "cannot send mail", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if user.OTP == nil || *user.OTP != otp {
		return ErrInvalidOTP
	}
	if user.OTPExpiry == nil || user.OTPExpiry.Before(time.Now()) {
		return ErrOTPExpired
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Repo.ResetPassword(ctx, user.Email, pwHash)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
