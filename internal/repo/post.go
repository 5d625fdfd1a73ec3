package repo

import (
	"context"

	"github.com/ddmitrenko/crossposter/internal/models"
)

func (r *GormRepo) CreatePublishedPost(ctx context.Context, p *models.PublishedPost) error {
	return r.DB.WithContext(ctx).Create(p).Error
}
