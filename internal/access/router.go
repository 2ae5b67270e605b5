package access

import "github.com/jomosautsem/lex/pkg/models"

var viewActions = map[models.View]Action{
	models.ViewDashboard: ViewDashboard,
	models.ViewUsers:     ViewUsers,
	models.ViewCases:     ViewCases,
	models.ViewCalendar:  ViewCalendar,
}

// CanView reports whether view is renderable for u. Without a user only the
// login screen renders; the login screen itself is always renderable.
func CanView(u *models.User, view models.View) bool {
	if view == models.ViewLogin {
		return true
	}
	if u == nil {
		return false
	}
	a, ok := viewActions[view]
	return ok && Allowed(u.Role, a)
}

// LandingView is where a user lands right after signing in.
func LandingView(role models.Role) models.View {
	if role == models.RoleClient {
		return models.ViewCases
	}
	return models.ViewDashboard
}

// Route resolves the screen to render for a requested view. It returns the
// login screen for anonymous users, and false when the request was refused.
func Route(u *models.User, requested models.View) (models.View, bool) {
	if u == nil {
		return models.ViewLogin, requested == models.ViewLogin
	}
	if CanView(u, requested) {
		return requested, true
	}
	return LandingView(u.Role), false
}

// CanSeeCase reports whether u may read c.
func CanSeeCase(u *models.User, c models.Case) bool {
	if u == nil {
		return false
	}
	if u.Role == models.RoleClient {
		return c.ClientID == u.ID
	}
	return Allowed(u.Role, ViewCases)
}

// VisibleCases filters cases down to what u may see, keeping order.
// Staff get the input slice unchanged.
func VisibleCases(u *models.User, cases []models.Case) []models.Case {
	if u == nil {
		return []models.Case{}
	}
	if u.Role != models.RoleClient {
		return cases
	}
	out := make([]models.Case, 0, len(cases))
	for _, c := range cases {
		if c.ClientID == u.ID {
			out = append(out, c)
		}
	}
	return out
}
