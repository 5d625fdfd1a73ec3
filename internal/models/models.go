package models

import (
	"time"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"unique;not null"          json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	OTP          *string    `json:"-"`
	OTPExpiry    *time.Time `json:"-"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"           json:"id"`
	UserID    uint   `gorm:"index;not null"       json:"user_id"`
	Token     string `gorm:"uniqueIndex;not null" json:"-"`
	JTI       string `gorm:"index"                json:"jti"`
	ExpiresAt int64  `gorm:"not null"             json:"expires_at"`
	Revoked   bool   `gorm:"default:false"        json:"revoked"`
}

// SocialAccount links a third-party identity to exactly one internal user.
// Linking the same (provider, provider_id) again updates the row in place,
// re-parenting it to the new user instead of erroring.
type SocialAccount struct {
	ID           uint       `gorm:"primaryKey"                                 json:"id"`
	UserID       uint       `gorm:"index;not null"                             json:"user_id"`
	Provider     string     `gorm:"not null;uniqueIndex:idx_provider_identity" json:"provider"`
	ProviderID   string     `gorm:"not null;uniqueIndex:idx_provider_identity" json:"provider_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenSecret  string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type PublishedPost struct {
	ID         uint      `gorm:"primaryKey"     json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	Provider   string    `gorm:"not null"       json:"provider"`
	ExternalID string    `json:"external_id"`
	Content    string    `json:"content"`
	MediaCount int       `json:"media_count"`
	PostedAt   time.Time `json:"posted_at"`
}
