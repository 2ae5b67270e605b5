package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomosautsem/lex/pkg/models"
)

// GormStore keeps document rows in Postgres.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Insert(ctx context.Context, row *models.DocumentRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (models.DocumentRow, error) {
	var row models.DocumentRow
	uid, err := uuid.Parse(id)
	if err != nil {
		return row, models.ErrNotFound
	}
	err = s.db.WithContext(ctx).First(&row, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, models.ErrNotFound
	}
	return row, err
}
