package workspace

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
)

type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

type CaseLister interface {
	List(ctx context.Context) ([]models.Case, error)
}

type EventLister interface {
	List(ctx context.Context) ([]models.LegalEvent, error)
}

// Loader performs the bulk fetch that follows sign-in.
type Loader struct {
	users  UserLister
	cases  CaseLister
	events EventLister
	rep    logger.Reporter
}

func NewLoader(users UserLister, cases CaseLister, events EventLister, rep logger.Reporter) *Loader {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Loader{users: users, cases: cases, events: events, rep: rep}
}

// Load fetches the collections the signed-in user may see, concurrently.
// A failed fetch is reported and leaves that collection empty; the others
// still load.
func (l *Loader) Load(ctx context.Context, s State) State {
	if s.User == nil {
		return s
	}
	role := s.User.Role
	uid := zap.String("user_id", s.User.ID)

	var (
		users  []models.User
		cases  []models.Case
		events []models.LegalEvent
	)
	var g errgroup.Group
	if role != models.RoleClient {
		g.Go(func() error {
			var err error
			if users, err = l.users.List(ctx); err != nil {
				l.rep.Report("workspace.load_users", err, uid)
				users = nil
			}
			return nil
		})
	}
	if access.Allowed(role, access.ViewCases) {
		g.Go(func() error {
			var err error
			if cases, err = l.cases.List(ctx); err != nil {
				l.rep.Report("workspace.load_cases", err, uid)
				cases = nil
			}
			return nil
		})
	}
	if access.Allowed(role, access.ViewCalendar) || access.Allowed(role, access.ViewDashboard) {
		g.Go(func() error {
			var err error
			if events, err = l.events.List(ctx); err != nil {
				l.rep.Report("workspace.load_events", err, uid)
				events = nil
			}
			return nil
		})
	}
	_ = g.Wait()

	s = Reduce(s, UsersLoaded{Users: users})
	s = Reduce(s, CasesLoaded{Cases: cases})
	return Reduce(s, EventsLoaded{Events: events})
}
