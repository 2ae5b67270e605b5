// Package workspace owns the application state a signed-in session works
// against: who is signed in, which screen is active and the three loaded
// collections. State changes only through Reduce.
package workspace

import (
	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/pkg/models"
)

type State struct {
	User           *models.User
	View           models.View
	SelectedCaseID string
	Users          []models.User
	Cases          []models.Case
	Events         []models.LegalEvent
}

// Initial is the signed-out state: login screen, empty collections.
func Initial() State {
	return State{
		View:   models.ViewLogin,
		Users:  []models.User{},
		Cases:  []models.Case{},
		Events: []models.LegalEvent{},
	}
}

// Action is a state transition.
type Action interface {
	apply(State) State
}

type (
	SignedIn     struct{ User models.User }
	SignedOut    struct{}
	Navigate     struct{ View models.View }
	SelectCase   struct{ CaseID string }
	UsersLoaded  struct{ Users []models.User }
	CasesLoaded  struct{ Cases []models.Case }
	EventsLoaded struct{ Events []models.LegalEvent }
)

// Reduce returns the state after a. The input state is never modified.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

func (a SignedIn) apply(State) State {
	u := a.User
	s := Initial()
	s.User = &u
	s.View = access.LandingView(u.Role)
	return s
}

func (SignedOut) apply(State) State { return Initial() }

// Navigating to a view the user may not render is ignored. Any navigation
// clears the drill-down selection.
func (a Navigate) apply(s State) State {
	if !access.CanView(s.User, a.View) {
		return s
	}
	if a.View == models.ViewLogin && s.User != nil {
		return s
	}
	s.View = a.View
	s.SelectedCaseID = ""
	return s
}

// Selecting a case the user cannot see is ignored; an empty id clears.
func (a SelectCase) apply(s State) State {
	if a.CaseID == "" {
		s.SelectedCaseID = ""
		return s
	}
	for _, c := range s.Cases {
		if c.ID == a.CaseID && access.CanSeeCase(s.User, c) {
			s.SelectedCaseID = c.ID
			return s
		}
	}
	return s
}

func (a UsersLoaded) apply(s State) State {
	s.Users = append(make([]models.User, 0, len(a.Users)), a.Users...)
	return s
}

// Loaded cases are filtered to what the user may see.
func (a CasesLoaded) apply(s State) State {
	visible := access.VisibleCases(s.User, a.Cases)
	s.Cases = append(make([]models.Case, 0, len(visible)), visible...)
	if s.SelectedCaseID != "" && !containsCase(s.Cases, s.SelectedCaseID) {
		s.SelectedCaseID = ""
	}
	return s
}

func (a EventsLoaded) apply(s State) State {
	s.Events = append(make([]models.LegalEvent, 0, len(a.Events)), a.Events...)
	return s
}

func containsCase(cases []models.Case, id string) bool {
	for _, c := range cases {
		if c.ID == id {
			return true
		}
	}
	return false
}

// SelectedCase returns the drill-down case, if any.
func (s State) SelectedCase() (models.Case, bool) {
	for _, c := range s.Cases {
		if c.ID == s.SelectedCaseID && s.SelectedCaseID != "" {
			return c, true
		}
	}
	return models.Case{}, false
}
