// Package profiles owns the profiles table and the user administration screen.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jomosautsem/lex/pkg/models"
)

// Patch is a partial profile update. Nil fields are left alone; an empty
// AssignedEmployeeID clears the assignment.
type Patch struct {
	Name               *string
	Role               *models.Role
	Phone              *string
	IsActive           *bool
	AssignedEmployeeID *string
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Role == nil && p.Phone == nil && p.IsActive == nil && p.AssignedEmployeeID == nil
}

type Store interface {
	Get(ctx context.Context, id string) (models.ProfileRow, error)
	List(ctx context.Context) ([]models.ProfileRow, error)
	Update(ctx context.Context, id string, p Patch) error
	Upsert(ctx context.Context, row models.ProfileRow) error
	Delete(ctx context.Context, id string) error
}

// GormStore is the Postgres-backed Store.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Get(ctx context.Context, id string) (models.ProfileRow, error) {
	var row models.ProfileRow
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

func (s *GormStore) List(ctx context.Context) ([]models.ProfileRow, error) {
	var rows []models.ProfileRow
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update applies p to the row; models.ErrNotFound when no row matched.
func (s *GormStore) Update(ctx context.Context, id string, p Patch) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.ErrNotFound
	}
	updates, err := columns(p)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.ProfileRow{}).Where("id = ?", uid).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Upsert inserts the row or overwrites its identity fields. is_active is only
// written on insert.
func (s *GormStore) Upsert(ctx context.Context, row models.ProfileRow) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "role", "assigned_employee_id"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.ErrNotFound
	}
	res := s.db.WithContext(ctx).Delete(&models.ProfileRow{}, "id = ?", uid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// columns maps a Patch onto snake_case column updates.
func columns(p Patch) (map[string]any, error) {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Role != nil {
		out["role"] = *p.Role
	}
	if p.Phone != nil {
		out["phone"] = *p.Phone
	}
	if p.IsActive != nil {
		out["is_active"] = *p.IsActive
	}
	if p.AssignedEmployeeID != nil {
		id, err := models.NullableUUID(*p.AssignedEmployeeID)
		if err != nil {
			return nil, fmt.Errorf("assigned employee: %w", err)
		}
		out["assigned_employee_id"] = id
	}
	return out, nil
}
