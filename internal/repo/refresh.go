package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ddmitrenko/crossposter/internal/models"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// FindRefreshToken matches the presented token hash against the user's rows.
// Revocation and expiry are the caller's business: a row is returned as-is.
func (r *GormRepo) FindRefreshToken(ctx context.Context, userID uint, tokenHash string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, tokenHash).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}
	return &stored, nil
}

// RevokeAllRefreshTokens flips revoked on every live row. Rows are never
// deleted, and revoking an already-revoked set is a no-op.
func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (r *GormRepo) CountRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
