package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
)

/* ============================================================================
   Fakes
   ============================================================================ */

type memStore struct {
	mu   sync.Mutex
	rows map[string]models.ProfileRow
	// failUpdate makes Update fail as if the row were locked or missing.
	failUpdate bool
}

func newMemStore(rows ...models.ProfileRow) *memStore {
	m := &memStore{rows: map[string]models.ProfileRow{}}
	for _, r := range rows {
		m.rows[r.ID.String()] = r
	}
	return m
}

func (m *memStore) Get(_ context.Context, id string) (models.ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return r, models.ErrNotFound
	}
	return r, nil
}

func (m *memStore) List(_ context.Context) ([]models.ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ProfileRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) Update(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if m.failUpdate || !ok {
		return models.ErrNotFound
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Role != nil {
		r.Role = *p.Role
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	if p.AssignedEmployeeID != nil {
		id, err := models.NullableUUID(*p.AssignedEmployeeID)
		if err != nil {
			return err
		}
		r.AssignedEmployeeID = id
	}
	m.rows[r.ID.String()] = r
	return nil
}

func (m *memStore) Upsert(_ context.Context, row models.ProfileRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID.String()] = row
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// ghostIdP records which client handled sign-up. With trigger set, sign-up
// also inserts a CLIENT profile the way the provider-side trigger would.
type ghostIdP struct {
	store    *memStore
	trigger  bool
	isGhost  bool
	calls    *[]string
	password *string
	taken    map[string]bool
}

func (g *ghostIdP) SignIn(context.Context, string, string) (identity.Session, error) {
	return identity.Session{}, identity.ErrInvalidCredentials
}

func (g *ghostIdP) SignUp(_ context.Context, p identity.SignUpParams) (identity.Session, error) {
	kind := "primary"
	if g.isGhost {
		kind = "ghost"
	}
	*g.calls = append(*g.calls, kind)
	*g.password = p.Password
	if g.taken[p.Email] {
		return identity.Session{}, identity.ErrEmailTaken
	}
	id := uuid.New()
	if g.trigger {
		_ = g.store.Upsert(context.Background(), models.ProfileRow{ID: id, Name: p.Name, Email: p.Email, Role: models.RoleClient, IsActive: true})
	}
	s := identity.Session{UserID: id.String()}
	if !g.isGhost {
		s.Token = "primary-token"
	}
	return s, nil
}

func (g *ghostIdP) SignOut(context.Context, string) error { return nil }

func (g *ghostIdP) Session(context.Context, string) (identity.Session, error) {
	return identity.Session{}, identity.ErrNoSession
}

func (g *ghostIdP) Ghost() identity.Provider {
	c := *g
	c.isGhost = true
	return &c
}

func newGhostIdP(store *memStore, trigger bool) (*ghostIdP, *[]string, *string) {
	calls, pw := &[]string{}, new(string)
	return &ghostIdP{store: store, trigger: trigger, calls: calls, password: pw, taken: map[string]bool{}}, calls, pw
}

func row(role models.Role, email string) models.ProfileRow {
	return models.ProfileRow{ID: uuid.New(), Name: "Perfil " + email, Email: email, Role: role, IsActive: true}
}

func newTestService(store *memStore, idp identity.Provider, rep logger.Reporter) *Service {
	s := NewService(store, idp, 500*time.Millisecond, rep)
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

/* ============================================================================
   Service
   ============================================================================ */

func TestGeneratePasswordShape(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{8}Aa1!$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := GeneratePassword()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !re.MatchString(p) {
			t.Fatalf("bad password %q", p)
		}
		seen[p] = true
	}
	if len(seen) < 45 {
		t.Fatalf("passwords repeat too often: %d distinct of 50", len(seen))
	}
}

func TestAdminCreateUsesGhostAndUpdatesProfile(t *testing.T) {
	emp := row(models.RoleEmployee, "empleado@lexcorp.com")
	store := newMemStore(emp)
	idp, calls, pw := newGhostIdP(store, true)
	svc := newTestService(store, idp, nil)

	u, err := svc.AdminCreate(context.Background(), NewUser{
		Email: "nuevo@correo.com", Name: "Nuevo Cliente", Phone: "55 1234 5678",
		Role: models.RoleClient, AssignedEmployeeID: emp.ID.String(),
	})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if len(*calls) != 1 || (*calls)[0] != "ghost" {
		t.Fatalf("sign-up must go through the ghost client, got %v", *calls)
	}
	if !strings.HasSuffix(*pw, "Aa1!") || len(*pw) != 12 {
		t.Fatalf("generated password %q", *pw)
	}
	if u.Phone != "55 1234 5678" || u.AssignedEmployeeID != emp.ID.String() || !u.IsActive {
		t.Fatalf("profile not updated: %+v", u)
	}
}

func TestAdminCreateFallsBackToUpsert(t *testing.T) {
	store := newMemStore()
	idp, _, pw := newGhostIdP(store, false) // no trigger: the update finds nothing
	core, logs := observer.New(zap.ErrorLevel)
	svc := newTestService(store, idp, logger.NewReporter(zap.New(core)))

	u, err := svc.AdminCreate(context.Background(), NewUser{
		Email: "Abogada@LexCorp.com", Name: "Abogada", Role: models.RoleEmployee, Password: "elegida1",
	})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if *pw != "elegida1" {
		t.Fatalf("explicit password ignored: %q", *pw)
	}
	if u.Role != models.RoleEmployee || u.Email != "abogada@lexcorp.com" || !u.IsActive {
		t.Fatalf("upserted profile %+v", u)
	}
	if logs.FilterMessage("profiles.admin_create.update").Len() != 1 {
		t.Fatalf("failed update was not reported")
	}
}

func TestAdminCreateRejections(t *testing.T) {
	client := row(models.RoleClient, "c@x.com")
	store := newMemStore(client)
	idp, calls, _ := newGhostIdP(store, true)
	idp.taken["dup@x.com"] = true
	svc := newTestService(store, idp, nil)

	if _, err := svc.AdminCreate(context.Background(), NewUser{Email: "dup@x.com", Name: "Dup"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
	n := len(*calls)
	_, err := svc.AdminCreate(context.Background(), NewUser{Email: "z@x.com", Name: "Z", AssignedEmployeeID: client.ID.String()})
	if !errors.Is(err, ErrNotEmployee) {
		t.Fatalf("want ErrNotEmployee, got %v", err)
	}
	if len(*calls) != n {
		t.Fatalf("account created despite invalid assignment")
	}
}

func TestUpdateSelfRules(t *testing.T) {
	admin := row(models.RoleAdmin, "admin@lexcorp.com")
	other := row(models.RoleEmployee, "e@lexcorp.com")
	store := newMemStore(admin, other)
	svc := newTestService(store, nil, nil)
	ctx := context.Background()
	me := admin.ID.String()

	demote := models.RoleClient
	if _, err := svc.Update(ctx, me, me, Patch{Role: &demote}); !errors.Is(err, ErrSelfRoleChange) {
		t.Fatalf("self role change: %v", err)
	}
	same := models.RoleAdmin
	name := "Admin Renombrado"
	if u, err := svc.Update(ctx, me, me, Patch{Role: &same, Name: &name}); err != nil || u.Name != name {
		t.Fatalf("self edit: %+v %v", u, err)
	}
	if _, err := svc.Toggle(ctx, me, me); !errors.Is(err, ErrSelfDeactivate) {
		t.Fatalf("self toggle: %v", err)
	}
	if err := svc.Delete(ctx, me, me); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("self delete: %v", err)
	}

	promoted := models.RoleAdmin
	if u, err := svc.Update(ctx, me, other.ID.String(), Patch{Role: &promoted}); err != nil || u.Role != models.RoleAdmin {
		t.Fatalf("promote other: %+v %v", u, err)
	}
	u, err := svc.Toggle(ctx, me, other.ID.String())
	if err != nil || u.IsActive {
		t.Fatalf("toggle other: %+v %v", u, err)
	}
	u, _ = svc.Toggle(ctx, me, other.ID.String())
	if !u.IsActive {
		t.Fatalf("second toggle should reactivate")
	}
}

/* ============================================================================
   HTTP
   ============================================================================ */

func newTestApp(h *Handler, actor models.User) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(auth.WithUser(actor))
	app.Get("/api/users", h.List)
	app.Post("/api/users", h.Create)
	app.Patch("/api/users/:id", h.Update)
	app.Post("/api/users/:id/toggle", h.Toggle)
	app.Delete("/api/users/:id", h.Delete)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestUsersHTTP(t *testing.T) {
	admin := row(models.RoleAdmin, "admin@lexcorp.com")
	store := newMemStore(admin)
	idp, _, _ := newGhostIdP(store, true)
	app := newTestApp(NewHandler(newTestService(store, idp, nil)), admin.ToUser())

	code, b := call(t, app, "POST", "/api/users", `{"name":"Cliente Uno","email":"uno@correo.com","role":"CLIENT","phone":"5512345678"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("create: %d %s", code, b)
	}
	var created models.User
	_ = json.Unmarshal(b, &created)
	if created.ID == "" || created.Role != models.RoleClient {
		t.Fatalf("created %+v", created)
	}
	if !strings.HasPrefix(created.AvatarURL, "https://ui-avatars.com/api/?name=Cliente%20Uno&") {
		t.Fatalf("avatar %q", created.AvatarURL)
	}

	if code, b := call(t, app, "POST", "/api/users", `{"name":"X","email":"bad","role":"BOSS"}`); code != fiber.StatusBadRequest {
		t.Fatalf("validation: %d %s", code, b)
	}

	code, b = call(t, app, "PATCH", "/api/users/"+admin.ID.String(), `{"role":"CLIENT"}`)
	if code != fiber.StatusForbidden {
		t.Fatalf("self role change: %d %s", code, b)
	}

	code, b = call(t, app, "POST", "/api/users/"+created.ID+"/toggle", "")
	if code != fiber.StatusOK || !strings.Contains(string(b), `"isActive":false`) {
		t.Fatalf("toggle: %d %s", code, b)
	}

	code, b = call(t, app, "GET", "/api/users", "")
	var list []models.User
	_ = json.Unmarshal(b, &list)
	if code != fiber.StatusOK || len(list) != 2 {
		t.Fatalf("list: %d %s", code, b)
	}

	if code, _ := call(t, app, "DELETE", "/api/users/"+created.ID, ""); code != fiber.StatusNoContent {
		t.Fatalf("delete: %d", code)
	}
	if code, _ := call(t, app, "DELETE", "/api/users/"+created.ID, ""); code != fiber.StatusNotFound {
		t.Fatalf("second delete: %d", code)
	}
}
