package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

type PrefsRepo struct{ db *gorm.DB }

func NewPrefsRepo(db *gorm.DB) *PrefsRepo { return &PrefsRepo{db: db} }

func (r *PrefsRepo) Get(ctx context.Context, userEmail, tableID string) (*domain.TablePrefs, error) {
	var p domain.TablePrefs
	if err := r.db.WithContext(ctx).First(&p, "user_email = ? AND table_id = ?", userEmail, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PrefsRepo) Save(ctx context.Context, p *domain.TablePrefs) error {
	if existing, err := r.Get(ctx, p.UserEmail, p.TableID); err == nil {
		p.ID = existing.ID
	} else if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(p).Error
}
