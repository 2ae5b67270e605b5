package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// View names the screen a signed-in user is looking at.
type View string

const (
	ViewLogin     View = "LOGIN"
	ViewDashboard View = "DASHBOARD"
	ViewUsers     View = "USERS"
	ViewCases     View = "CASES"
	ViewCalendar  View = "CALENDAR"
)

func (v View) Valid() bool {
	switch v {
	case ViewLogin, ViewDashboard, ViewUsers, ViewCases, ViewCalendar:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

/* ============================ Domain shapes ============================= */

// User is the in-memory profile shape served to the UI.
type User struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	Role               Role   `json:"role"`
	IsActive           bool   `json:"isActive"`
	AvatarURL          string `json:"avatarUrl"`
	AssignedEmployeeID string `json:"assignedEmployeeId,omitempty"`
}

type Document struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       DocType `json:"type"`
	UploadDate string  `json:"uploadDate"`
	Size       string  `json:"size"`
	URL        string  `json:"url,omitempty"`
}

type Case struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ClientID    string     `json:"clientId"`
	Status      CaseStatus `json:"status"`
	Description string     `json:"description"`
	Documents   []Document `json:"documents"`
	CreatedAt   string     `json:"createdAt"`
}

type LegalEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Type        EventType `json:"type"`
	CaseID      string    `json:"caseId"`
	Description string    `json:"description"`
}

/* ============================= Translation ============================== */

var uriComponent = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// PlaceholderAvatar builds the generated avatar used when a profile has none.
// The name is escaped like encodeURIComponent: spaces as %20 and
// ! ' ( ) * left as they are.
func PlaceholderAvatar(name string) string {
	enc := uriComponent.Replace(url.QueryEscape(name))
	return "https://ui-avatars.com/api/?name=" + enc + "&background=cca43b&color=0f172a"
}

// ToUser maps the snake_case profile row onto the User shape.
func (p ProfileRow) ToUser() User {
	u := User{
		ID:        p.ID.String(),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      p.Role,
		IsActive:  p.IsActive,
		AvatarURL: p.AvatarURL,
	}
	if u.AvatarURL == "" {
		u.AvatarURL = PlaceholderAvatar(p.Name)
	}
	if p.AssignedEmployeeID != nil {
		u.AssignedEmployeeID = p.AssignedEmployeeID.String()
	}
	return u
}

func (d DocumentRow) ToDocument() Document {
	return Document{
		ID:         d.ID.String(),
		Name:       d.Name,
		Type:       d.Type,
		UploadDate: dateOnly(d.UploadDate),
		Size:       d.Size,
		URL:        d.URL,
	}
}

// ToCase keeps the preloaded documents in their stored order; never returns a nil slice.
func (c CaseRow) ToCase() Case {
	docs := make([]Document, 0, len(c.Documents))
	for _, d := range c.Documents {
		docs = append(docs, d.ToDocument())
	}
	return Case{
		ID:          c.ID.String(),
		Title:       c.Title,
		ClientID:    c.ClientID.String(),
		Status:      c.Status,
		Description: c.Description,
		Documents:   docs,
		CreatedAt:   dateOnly(c.CreatedAt),
	}
}

func (e EventRow) ToEvent() LegalEvent {
	ev := LegalEvent{
		ID:          e.ID.String(),
		Title:       e.Title,
		Date:        e.Date.Format(DateLayout),
		Time:        e.Time,
		Type:        e.Type,
		Description: e.Description,
	}
	if e.CaseID != nil {
		ev.CaseID = e.CaseID.String()
	}
	return ev
}

// NullableUUID turns an empty string into NULL; anything else must parse.
func NullableUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func dateOnly(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
