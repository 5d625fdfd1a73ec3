package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ddmitrenko/crossposter/internal/models"
)

var ErrAccountNotLinked = errors.New("provider account not linked")

// UpsertSocialAccount creates or updates the row keyed by
// (provider, provider_id). An existing row is overwritten in place,
// including its owner, so re-linking from another user re-parents the link.
func (r *GormRepo) UpsertSocialAccount(ctx context.Context, acct *models.SocialAccount) error {
	var existing models.SocialAccount
	err := r.DB.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", acct.Provider, acct.ProviderID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			acct.UpdatedAt = time.Now()
			return r.DB.WithContext(ctx).Create(acct).Error
		}
		return err
	}

	updates := map[string]any{
		"user_id":       acct.UserID,
		"access_token":  acct.AccessToken,
		"refresh_token": acct.RefreshToken,
		"token_secret":  acct.TokenSecret,
		"expires_at":    acct.ExpiresAt,
		"updated_at":    time.Now(),
	}
	if err := r.DB.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	acct.ID = existing.ID
	return nil
}

func (r *GormRepo) GetSocialAccount(ctx context.Context, userID uint, provider string) (*models.SocialAccount, error) {
	var acct models.SocialAccount
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotLinked
		}
		return nil, err
	}
	return &acct, nil
}

// UpdateSocialTokens persists a refreshed access token (and, when the
// provider rotated it, the refresh token) for one account row.
func (r *GormRepo) UpdateSocialTokens(ctx context.Context, accountID uint, accessToken, refreshToken string) error {
	updates := map[string]any{
		"access_token": accessToken,
		"updated_at":   time.Now(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.DB.WithContext(ctx).Model(&models.SocialAccount{}).
		Where("id = ?", accountID).
		Updates(updates).Error
}
