package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jomosautsem/lex/pkg/models"
)

// Case history actions.
const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
	ActionDeleted       = "deleted"
)

// LogCaseHistory inserts an audit record into case_histories.
// Best-effort: the error is returned for reporting but callers never fail on it.
func LogCaseHistory(
	ctx context.Context,
	db *gorm.DB,
	caseID, actorID uuid.UUID,
	action string,
	oldS, newS models.CaseStatus,
) error {
	return db.WithContext(ctx).Create(&models.CaseHistory{
		CaseID:    caseID,
		ActorID:   actorID,
		Action:    action,
		OldStatus: oldS,
		NewStatus: newS,
		CreatedAt: time.Now(),
	}).Error
}
