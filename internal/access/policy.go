// Package access decides which views and mutations each role may reach and
// which slice of the case list a user may see.
//
// The same table backs both the UI affordances (served through the workspace
// endpoint) and the server-side middleware, so hiding a button is never the
// only guard.
package access

import "github.com/jomosautsem/lex/pkg/models"

// Action is a capability checked against the policy table.
type Action string

const (
	ViewDashboard  Action = "view:dashboard"
	ViewUsers      Action = "view:users"
	ViewCases      Action = "view:cases"
	ViewCalendar   Action = "view:calendar"
	ManageUsers    Action = "users:manage"
	CreateCase     Action = "cases:create"
	UpdateCase     Action = "cases:update"
	DeleteCase     Action = "cases:delete"
	UploadDocument Action = "documents:upload"
	CreateEvent    Action = "events:create"
	UseAssistant   Action = "assistant:use"
)

// Actions lists every known capability.
var Actions = []Action{
	ViewDashboard, ViewUsers, ViewCases, ViewCalendar,
	ManageUsers, CreateCase, UpdateCase, DeleteCase,
	UploadDocument, CreateEvent, UseAssistant,
}

var staff = map[Action]bool{
	ViewDashboard:  true,
	ViewCases:      true,
	ViewCalendar:   true,
	CreateCase:     true,
	UpdateCase:     true,
	DeleteCase:     true,
	UploadDocument: true,
	CreateEvent:    true,
	UseAssistant:   true,
}

var policy = map[models.Role]map[Action]bool{
	models.RoleAdmin:    withAll(staff, ViewUsers, ManageUsers),
	models.RoleEmployee: staff,
	models.RoleClient:   {ViewCases: true},
}

func withAll(base map[Action]bool, extra ...Action) map[Action]bool {
	out := make(map[Action]bool, len(base)+len(extra))
	for a, ok := range base {
		out[a] = ok
	}
	for _, a := range extra {
		out[a] = true
	}
	return out
}

// Allowed reports whether role may perform action. Unknown roles get nothing.
func Allowed(role models.Role, action Action) bool {
	return policy[role][action]
}

// Capabilities returns the actions granted to role, in declaration order.
func Capabilities(role models.Role) []Action {
	out := make([]Action, 0, len(Actions))
	for _, a := range Actions {
		if Allowed(role, a) {
			out = append(out, a)
		}
	}
	return out
}
