package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines what a user may do inside the practice.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	RoleClient   Role = "CLIENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// CaseStatus is free-form: any status may follow any other.
type CaseStatus string

const (
	CaseOpen       CaseStatus = "Abierto"
	CaseInProgress CaseStatus = "En Proceso"
	CaseClosed     CaseStatus = "Cerrado"
	CasePaused     CaseStatus = "Pausado"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseOpen, CaseInProgress, CaseClosed, CasePaused:
		return true
	}
	return false
}

// DocType is the closed set of document kinds attached to a case.
type DocType string

const (
	DocComplaint      DocType = "Demanda"
	DocBirthCert      DocType = "Acta de Nacimiento"
	DocNationalID     DocType = "CURP"
	DocProofOfAddress DocType = "Comprobante de Domicilio"
	DocOther          DocType = "Otro"
)

func (t DocType) Valid() bool {
	switch t {
	case DocComplaint, DocBirthCert, DocNationalID, DocProofOfAddress, DocOther:
		return true
	}
	return false
}

// EventType classifies agenda entries.
type EventType string

const (
	EventHearing  EventType = "Audiencia"
	EventDeadline EventType = "Vencimiento de Término"
	EventMeeting  EventType = "Reunión con Cliente"
	EventOther    EventType = "Otro"
)

func (t EventType) Valid() bool {
	switch t {
	case EventHearing, EventDeadline, EventMeeting, EventOther:
		return true
	}
	return false
}

/* ================================ Rows ================================== */

// ProfileRow is the profiles table, keyed by the identity provider's user id.
type ProfileRow struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name               string     `gorm:"not null"`
	Email              string     `gorm:"uniqueIndex;not null"`
	Phone              string     `gorm:"column:phone"`
	Role               Role       `gorm:"type:varchar(20);not null"`
	IsActive           bool       `gorm:"column:is_active;not null"`
	AvatarURL          string     `gorm:"column:avatar_url"`
	AssignedEmployeeID *uuid.UUID `gorm:"column:assigned_employee_id;type:uuid"`
	CreatedAt          time.Time
}

func (ProfileRow) TableName() string { return "profiles" }

// CaseRow is an expediente.
type CaseRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"type:text"`
	Status      CaseStatus `gorm:"type:varchar(20);default:'Abierto'"`
	CreatedAt   time.Time

	Documents []DocumentRow `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE"`
}

func (CaseRow) TableName() string { return "cases" }

// DocumentRow is the metadata persisted after the blob write succeeded.
type DocumentRow struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Type       DocType   `gorm:"type:varchar(40);not null"`
	URL        string
	Size       string    `gorm:"type:varchar(20)"`
	StorageKey string    `gorm:"column:storage_key"`
	UploadDate time.Time `gorm:"column:upload_date;autoCreateTime"`
}

func (DocumentRow) TableName() string { return "documents" }

// EventRow is an entry of the agenda procesal. CaseID is NULL for general events.
type EventRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string     `gorm:"not null"`
	Date        time.Time  `gorm:"type:date;not null;index"`
	Time        string     `gorm:"type:varchar(5);not null"`
	Type        EventType  `gorm:"type:varchar(40);not null"`
	CaseID      *uuid.UUID `gorm:"type:uuid;index"`
	Description string     `gorm:"type:text"`
	CreatedAt   time.Time
}

func (EventRow) TableName() string { return "events" }

// CaseHistory is an audit log entry for case creation and status changes.
type CaseHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Action    string     `gorm:"type:varchar(50);not null"` // created, status_changed, deleted
	OldStatus CaseStatus `gorm:"type:varchar(20)"`
	NewStatus CaseStatus `gorm:"type:varchar(20)"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// Credential holds the local identity provider's password hash.
type Credential struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
}
