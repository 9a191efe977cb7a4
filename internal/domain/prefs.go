package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TablePrefs persists per-user table presentation state (sort, filters,
// column visibility) keyed by a table identifier string. Presentation only,
// never part of the order-creation core.
type TablePrefs struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserEmail   string    `gorm:"size:140;index:idx_prefs_user_table,unique" json:"-"`
	TableID     string    `gorm:"size:80;index:idx_prefs_user_table,unique" json:"table_id"`
	Sort        string    `gorm:"size:60" json:"sort"`
	SortDesc    bool      `json:"sort_desc"`
	FiltersJSON string    `gorm:"type:text" json:"filters_json"`
	ColumnsJSON string    `gorm:"type:text" json:"columns_json"`
	UpdatedAt   time.Time `json:"-"`
}

type PrefsRepo interface {
	Get(ctx context.Context, userEmail, tableID string) (*TablePrefs, error)
	Save(ctx context.Context, p *TablePrefs) error
}

// DraftSnapshot is the server-side copy of a wizard session, written after
// every accepted mutation so an interrupted session can be resumed.
type DraftSnapshot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserEmail   string    `gorm:"size:140;index"`
	Mode        string    `gorm:"size:20"`
	ParamsJSON  string    `gorm:"type:text"`
	SourcesJSON string    `gorm:"type:text"`
	OrderID     string    `gorm:"size:64"`
	BOMID       string    `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DraftRepo interface {
	Save(ctx context.Context, s *DraftSnapshot) error
	Find(ctx context.Context, id uuid.UUID) (*DraftSnapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
