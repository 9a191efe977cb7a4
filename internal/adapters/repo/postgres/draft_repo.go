package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

type DraftRepo struct{ db *gorm.DB }

func NewDraftRepo(db *gorm.DB) *DraftRepo { return &DraftRepo{db: db} }

func (r *DraftRepo) Save(ctx context.Context, s *domain.DraftSnapshot) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *DraftRepo) Find(ctx context.Context, id uuid.UUID) (*domain.DraftSnapshot, error) {
	var s domain.DraftSnapshot
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *DraftRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.DraftSnapshot{}, "id = ?", id).Error
}
