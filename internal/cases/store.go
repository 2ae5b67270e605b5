// Package cases owns expedientes: the case table, its history and the HTTP surface.
package cases

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/utils"
)

var (
	ErrNotAClient = errors.New("El cliente seleccionado no existe o no es un cliente")
	ErrBadStatus  = errors.New("Estado de expediente desconocido")
)

type NewCase struct {
	Title       string
	ClientID    string
	Description string
	Status      models.CaseStatus
}

// Patch leaves nil fields untouched. Any status may follow any other.
type Patch struct {
	Title       *string
	ClientID    *string
	Description *string
	Status      *models.CaseStatus
}

type Store interface {
	List(ctx context.Context) ([]models.Case, error)
	Get(ctx context.Context, id string) (models.Case, error)
	Create(ctx context.Context, actorID string, in NewCase) (models.Case, error)
	Update(ctx context.Context, actorID, id string, p Patch) (models.Case, error)
	// Delete removes the case with its document rows and returns the storage
	// keys of the removed documents.
	Delete(ctx context.Context, actorID, id string) ([]string, error)
}

// GormStore is the Postgres-backed Store. History rows are best-effort.
type GormStore struct {
	db  *gorm.DB
	rep logger.Reporter
}

func NewGormStore(db *gorm.DB, rep logger.Reporter) *GormStore {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &GormStore{db: db, rep: rep}
}

func withDocuments(db *gorm.DB) *gorm.DB {
	return db.Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("upload_date ASC") })
}

// List returns every case, newest first, documents in upload order.
func (s *GormStore) List(ctx context.Context) ([]models.Case, error) {
	var rows []models.CaseRow
	if err := withDocuments(s.db.WithContext(ctx)).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Case, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToCase())
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (models.Case, error) {
	row, err := s.getRow(s.db.WithContext(ctx), id)
	if err != nil {
		return models.Case{}, err
	}
	return row.ToCase(), nil
}

func (s *GormStore) getRow(db *gorm.DB, id string) (models.CaseRow, error) {
	var row models.CaseRow
	uid, err := uuid.Parse(id)
	if err != nil {
		return row, models.ErrNotFound
	}
	err = withDocuments(db).First(&row, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, models.ErrNotFound
	}
	return row, err
}

func (s *GormStore) Create(ctx context.Context, actorID string, in NewCase) (models.Case, error) {
	clientID, err := s.clientID(ctx, in.ClientID)
	if err != nil {
		return models.Case{}, err
	}
	status := in.Status
	if status == "" {
		status = models.CaseOpen
	}
	if !status.Valid() {
		return models.Case{}, ErrBadStatus
	}

	row := models.CaseRow{
		ClientID:    clientID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      status,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Case{}, err
	}
	s.history(ctx, row.ID, actorID, utils.ActionCreated, "", status)
	return row.ToCase(), nil
}

func (s *GormStore) Update(ctx context.Context, actorID, id string, p Patch) (models.Case, error) {
	cur, err := s.getRow(s.db.WithContext(ctx), id)
	if err != nil {
		return models.Case{}, err
	}

	updates := map[string]any{}
	if p.Title != nil {
		updates["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		updates["description"] = strings.TrimSpace(*p.Description)
	}
	if p.ClientID != nil {
		cid, err := s.clientID(ctx, *p.ClientID)
		if err != nil {
			return models.Case{}, err
		}
		updates["client_id"] = cid
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return models.Case{}, ErrBadStatus
		}
		updates["status"] = *p.Status
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.CaseRow{}).Where("id = ?", cur.ID).Updates(updates).Error; err != nil {
			return models.Case{}, err
		}
	}
	if p.Status != nil && *p.Status != cur.Status {
		s.history(ctx, cur.ID, actorID, utils.ActionStatusChanged, cur.Status, *p.Status)
	}
	return s.Get(ctx, id)
}

func (s *GormStore) Delete(ctx context.Context, actorID, id string) ([]string, error) {
	var keys []string
	var old models.CaseStatus
	var caseID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.getRow(tx, id)
		if err != nil {
			return err
		}
		caseID, old = row.ID, row.Status
		for _, d := range row.Documents {
			if d.StorageKey != "" {
				keys = append(keys, d.StorageKey)
			}
		}
		if err := tx.Where("case_id = ?", row.ID).Delete(&models.DocumentRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CaseRow{}, "id = ?", row.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.history(ctx, caseID, actorID, utils.ActionDeleted, old, "")
	return keys, nil
}

// clientID accepts only ids of CLIENT profiles.
func (s *GormStore) clientID(ctx context.Context, id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotAClient
	}
	var n int64
	err = s.db.WithContext(ctx).Model(&models.ProfileRow{}).
		Where("id = ? AND role = ?", uid, models.RoleClient).Count(&n).Error
	if err != nil {
		return uuid.Nil, err
	}
	if n == 0 {
		return uuid.Nil, ErrNotAClient
	}
	return uid, nil
}

func (s *GormStore) history(ctx context.Context, caseID uuid.UUID, actorID, action string, oldS, newS models.CaseStatus) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		s.rep.Report("cases.history", err, zap.String("case_id", caseID.String()))
		return
	}
	err = utils.LogCaseHistory(ctx, s.db, caseID, actor, action, oldS, newS)
	s.rep.Report("cases.history", err, zap.String("case_id", caseID.String()), zap.String("action", action))
}
