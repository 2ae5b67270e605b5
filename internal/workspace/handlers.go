package workspace

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/internal/calendar"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/sanitize"
)

const (
	upcomingLimit = 5
	recentLimit   = 5
	previewLen    = 140
)

// Dashboard is the counters and short lists of the home screen.
type Dashboard struct {
	Cases     int              `json:"cases"`
	OpenCases int              `json:"openCases"`
	Clients   int              `json:"clients"`
	Events    int              `json:"events"`
	Upcoming  []calendar.Entry `json:"upcoming"`
	Recent    []CasePreview    `json:"recent"`
}

type CasePreview struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    models.CaseStatus `json:"status"`
	Preview   string            `json:"preview"`
	CreatedAt string            `json:"createdAt"`
}

type Handler struct {
	loader *Loader
	now    func() time.Time
}

func NewHandler(loader *Loader) *Handler {
	return &Handler{loader: loader, now: time.Now}
}

// HeaderLandingView tells a refused client which screen to show instead.
const HeaderLandingView = "X-Landing-View"

// View godoc
// @Summary      Screen data
// @Description  Loads users, cases and events for the signed-in user and returns what the requested screen renders
// @Tags         workspace
// @Security     BearerAuth
// @Produce      json
// @Param        view    path   string  true   "dashboard | users | cases | calendar"
// @Param        caseId  query  string  false  "selected case (cases view)"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  models.ErrorResponse  "X-Landing-View names the fallback screen"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/workspace/{view} [get]
func (h *Handler) View(c *fiber.Ctx) error {
	u := auth.MustUser(c)
	view := models.View(strings.ToUpper(c.Params("view")))
	if !view.Valid() || view == models.ViewLogin {
		return fiber.NewError(fiber.StatusNotFound, "Vista desconocida")
	}
	if landing, ok := access.Route(u, view); !ok {
		c.Set(HeaderLandingView, string(landing))
		return fiber.NewError(fiber.StatusForbidden, "No tiene acceso a esta vista")
	}

	s := Reduce(Initial(), SignedIn{User: *u})
	s = h.loader.Load(c.UserContext(), s)
	s = Reduce(s, Navigate{View: view})
	if id := c.Query("caseId"); id != "" {
		s = Reduce(s, SelectCase{CaseID: id})
	}

	out := fiber.Map{
		"view":         s.View,
		"user":         u,
		"capabilities": access.Capabilities(u.Role),
	}
	today := h.now()
	switch s.View {
	case models.ViewDashboard:
		out["dashboard"] = BuildDashboard(s, today)
	case models.ViewUsers:
		out["users"] = s.Users
	case models.ViewCases:
		out["cases"] = s.Cases
		if u.Role != models.RoleClient {
			out["clients"] = Clients(s.Users)
		}
		if cs, ok := s.SelectedCase(); ok {
			out["selectedCaseId"] = cs.ID
			out["selectedCase"] = cs
		}
	case models.ViewCalendar:
		events := append([]models.LegalEvent(nil), s.Events...)
		calendar.SortByDate(events)
		out["events"] = calendar.Annotate(events, today)
		out["cases"] = s.Cases
	}
	return c.JSON(out)
}

// BuildDashboard derives the home screen from the loaded state.
func BuildDashboard(s State, today time.Time) Dashboard {
	d := Dashboard{
		Cases:    len(s.Cases),
		Clients:  len(Clients(s.Users)),
		Events:   len(s.Events),
		Upcoming: calendar.Upcoming(s.Events, today, upcomingLimit),
		Recent:   make([]CasePreview, 0, recentLimit),
	}
	for _, c := range s.Cases {
		if c.Status != models.CaseClosed {
			d.OpenCases++
		}
	}
	for i, c := range s.Cases {
		if i == recentLimit {
			break
		}
		d.Recent = append(d.Recent, CasePreview{
			ID:        c.ID,
			Title:     c.Title,
			Status:    c.Status,
			Preview:   sanitize.Summary(sanitize.RedactPII(c.Description), previewLen),
			CreatedAt: c.CreatedAt,
		})
	}
	return d
}

// Clients filters users down to the CLIENT role, order kept.
func Clients(users []models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleClient {
			out = append(out, u)
		}
	}
	return out
}
