package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jomosautsem/lex/pkg/models"
)

var (
	ErrUnknownCase  = errors.New("El expediente vinculado no existe")
	ErrMissingField = errors.New("Título, fecha y hora son obligatorios")
)

type NewEvent struct {
	Title       string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Type        models.EventType
	CaseID      string // empty for a general event
	Description string
}

type Store interface {
	List(ctx context.Context) ([]models.LegalEvent, error)
	Create(ctx context.Context, in NewEvent) (models.LegalEvent, error)
}

type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// List returns all events ordered by date, then time.
func (s *GormStore) List(ctx context.Context) ([]models.LegalEvent, error) {
	var rows []models.EventRow
	if err := s.db.WithContext(ctx).Order("date ASC").Order("time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.LegalEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToEvent())
	}
	return out, nil
}

func (s *GormStore) Create(ctx context.Context, in NewEvent) (models.LegalEvent, error) {
	if strings.TrimSpace(in.Title) == "" || in.Date == "" || in.Time == "" {
		return models.LegalEvent{}, ErrMissingField
	}
	date, err := time.Parse(models.DateLayout, in.Date)
	if err != nil {
		return models.LegalEvent{}, ErrMissingField
	}
	caseID, err := models.NullableUUID(in.CaseID)
	if err != nil {
		return models.LegalEvent{}, ErrUnknownCase
	}
	if caseID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.CaseRow{}).Where("id = ?", *caseID).Count(&n).Error; err != nil {
			return models.LegalEvent{}, err
		}
		if n == 0 {
			return models.LegalEvent{}, ErrUnknownCase
		}
	}
	if !in.Type.Valid() {
		in.Type = models.EventOther
	}

	row := models.EventRow{
		Title:       strings.TrimSpace(in.Title),
		Date:        date,
		Time:        in.Time,
		Type:        in.Type,
		CaseID:      caseID,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.LegalEvent{}, err
	}
	return row.ToEvent(), nil
}
