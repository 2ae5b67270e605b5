package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/models"
)

/* ============================================================================
   Fakes
   ============================================================================ */

type fakeAccount struct {
	id       string
	password string
}

// fakeIdP is an in-memory identity provider.
type fakeIdP struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount // email -> account
	live     map[string]string      // token -> user id
	n        int
	ghost    bool
	down     bool
}

func newFakeIdP() *fakeIdP {
	return &fakeIdP{accounts: map[string]fakeAccount{}, live: map[string]string{}}
}

func (f *fakeIdP) add(email, password string) string {
	id := uuid.NewString()
	f.accounts[email] = fakeAccount{id: id, password: password}
	return id
}

func (f *fakeIdP) open(userID string) identity.Session {
	f.n++
	tok := "tok-" + string(rune('a'+f.n))
	f.live[tok] = userID
	return identity.Session{Token: tok, UserID: userID}
}

func (f *fakeIdP) SignIn(_ context.Context, email, password string) (identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return identity.Session{}, identity.ErrUnavailable
	}
	a, ok := f.accounts[email]
	if !ok || a.password != password {
		return identity.Session{}, identity.ErrInvalidCredentials
	}
	return f.open(a.id), nil
}

func (f *fakeIdP) SignUp(_ context.Context, p identity.SignUpParams) (identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[p.Email]; ok {
		return identity.Session{}, identity.ErrEmailTaken
	}
	id := uuid.NewString()
	f.accounts[p.Email] = fakeAccount{id: id, password: p.Password}
	if f.ghost {
		return identity.Session{UserID: id}, nil
	}
	return f.open(id), nil
}

func (f *fakeIdP) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, token)
	return nil
}

func (f *fakeIdP) Session(_ context.Context, token string) (identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.live[token]
	if !ok {
		return identity.Session{}, identity.ErrNoSession
	}
	return identity.Session{Token: token, UserID: id}, nil
}

func (f *fakeIdP) Ghost() identity.Provider { return f }

type fakeProfiles map[string]models.ProfileRow

func (p fakeProfiles) Get(_ context.Context, id string) (models.ProfileRow, error) {
	row, ok := p[id]
	if !ok {
		return row, models.ErrNotFound
	}
	return row, nil
}

func profile(id string, role models.Role, active bool) models.ProfileRow {
	return models.ProfileRow{ID: uuid.MustParse(id), Name: "Usuario Prueba", Email: "u@lex.mx", Role: role, IsActive: active}
}

func newTestApp(h *Handler, svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/signup", h.Signup)
	app.Post("/api/login", h.Login)
	app.Post("/api/logout", h.Logout)
	app.Get("/api/session", h.Session)
	app.Get("/api/me", RequireAuth(svc), h.Me)
	app.Get("/api/users", RequireAuth(svc), RequireAction(access.ManageUsers), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		_ = json.Unmarshal(b, &out)
	}
	return resp.StatusCode, out
}

/* ============================================================================
   Service
   ============================================================================ */

func TestSignInRules(t *testing.T) {
	ctx := context.Background()
	idp := newFakeIdP()
	admin := idp.add("admin@lexcorp.com", "secreto")
	client := idp.add("cliente@correo.com", "secreto")
	gone := idp.add("baja@correo.com", "secreto")
	idp.add("huerfano@correo.com", "secreto") // no profile row

	svc := NewService(idp, fakeProfiles{
		admin:  profile(admin, models.RoleAdmin, true),
		client: profile(client, models.RoleClient, true),
		gone:   profile(gone, models.RoleClient, false),
	}, nil)

	t.Run("admin lands on dashboard", func(t *testing.T) {
		res, err := svc.SignIn(ctx, "admin@lexcorp.com", "secreto")
		if err != nil {
			t.Fatalf("sign in: %v", err)
		}
		if res.Landing != models.ViewDashboard || res.User.Role != models.RoleAdmin {
			t.Fatalf("got %+v", res)
		}
	})

	t.Run("client lands on cases", func(t *testing.T) {
		res, err := svc.SignIn(ctx, "cliente@correo.com", "secreto")
		if err != nil {
			t.Fatalf("sign in: %v", err)
		}
		if res.Landing != models.ViewCases {
			t.Fatalf("landing = %s", res.Landing)
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, e1 := svc.SignIn(ctx, "admin@lexcorp.com", "otra")
		_, e2 := svc.SignIn(ctx, "nadie@lexcorp.com", "otra")
		if !errors.Is(e1, ErrInvalidCredentials) || !errors.Is(e2, ErrInvalidCredentials) {
			t.Fatalf("got %v / %v", e1, e2)
		}
	})

	t.Run("deactivated account is signed out", func(t *testing.T) {
		before := len(idp.live)
		_, err := svc.SignIn(ctx, "baja@correo.com", "secreto")
		if !errors.Is(err, ErrAccountDeactivated) || err.Error() != "Cuenta desactivada." {
			t.Fatalf("got %v", err)
		}
		if len(idp.live) != before {
			t.Fatalf("deactivated sign-in left a live session")
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "huerfano@correo.com", "secreto")
		if !errors.Is(err, ErrProfileNotFound) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("provider outage is not a credential error", func(t *testing.T) {
		idp.down = true
		defer func() { idp.down = false }()
		_, err := svc.SignIn(ctx, "admin@lexcorp.com", "secreto")
		if errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, identity.ErrUnavailable) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestSignUpRequiresAllFields(t *testing.T) {
	svc := NewService(newFakeIdP(), fakeProfiles{}, nil)
	for _, tc := range [][3]string{
		{"", "secreto", "Juan"},
		{"a@b.co", "", "Juan"},
		{"a@b.co", "secreto", "  "},
	} {
		if _, err := svc.SignUp(context.Background(), tc[0], tc[1], tc[2]); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("%v: got %v", tc, err)
		}
	}
}

func TestCurrentSessionRejectsDeactivated(t *testing.T) {
	ctx := context.Background()
	idp := newFakeIdP()
	id := idp.add("x@y.co", "secreto")
	profiles := fakeProfiles{id: profile(id, models.RoleEmployee, true)}
	svc := NewService(idp, profiles, nil)

	res, err := svc.SignIn(ctx, "x@y.co", "secreto")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, _, err := svc.CurrentSession(ctx, res.Session.Token); err != nil {
		t.Fatalf("session: %v", err)
	}

	row := profiles[id]
	row.IsActive = false
	profiles[id] = row
	if _, _, err := svc.CurrentSession(ctx, res.Session.Token); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("deactivated user kept a session: %v", err)
	}
}

/* ============================================================================
   HTTP
   ============================================================================ */

func TestLoginLogoutFlow(t *testing.T) {
	idp := newFakeIdP()
	id := idp.add("empleado@lexcorp.com", "secreto")
	svc := NewService(idp, fakeProfiles{id: profile(id, models.RoleEmployee, true)}, nil)

	var dropped []string
	app := newTestApp(NewHandler(svc, func(uid string) { dropped = append(dropped, uid) }), svc)

	code, body := doJSON(t, app, "POST", "/api/login", "", `{"email":"EMPLEADO@lexcorp.com ","password":"secreto"}`)
	if code != fiber.StatusOK {
		t.Fatalf("login status %d body %v", code, body)
	}
	if body["view"] != string(models.ViewDashboard) {
		t.Fatalf("view = %v", body["view"])
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}

	if code, _ := doJSON(t, app, "GET", "/api/me", token, ""); code != fiber.StatusOK {
		t.Fatalf("me status %d", code)
	}
	// Employees cannot manage users.
	if code, body := doJSON(t, app, "GET", "/api/users", token, ""); code != fiber.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Fatalf("users status %d body %v", code, body)
	}

	if code, _ := doJSON(t, app, "POST", "/api/logout", token, ""); code != fiber.StatusNoContent {
		t.Fatalf("logout status %d", code)
	}
	if len(dropped) != 1 || dropped[0] != id {
		t.Fatalf("sign-out hook got %v", dropped)
	}
	if code, body := doJSON(t, app, "GET", "/api/session", token, ""); code != fiber.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("session after logout: %d %v", code, body)
	}
}

func TestLoginErrorsCarryMessages(t *testing.T) {
	idp := newFakeIdP()
	gone := idp.add("baja@correo.com", "secreto")
	svc := NewService(idp, fakeProfiles{gone: profile(gone, models.RoleClient, false)}, nil)
	app := newTestApp(NewHandler(svc), svc)

	cases := []struct {
		body string
		code int
		msg  string
	}{
		{`{"email":"baja@correo.com","password":"mal"}`, fiber.StatusUnauthorized, "Credenciales inválidas"},
		{`{"email":"baja@correo.com","password":"secreto"}`, fiber.StatusForbidden, "Cuenta desactivada."},
	}
	for _, tc := range cases {
		code, body := doJSON(t, app, "POST", "/api/login", "", tc.body)
		if code != tc.code || body["message"] != tc.msg {
			t.Fatalf("%s: got %d %v", tc.body, code, body)
		}
	}

	if code, body := doJSON(t, app, "POST", "/api/login", "", `{"email":"no-es-correo","password":"x"}`); code != fiber.StatusBadRequest || body["errors"] == nil {
		t.Fatalf("validation: %d %v", code, body)
	}
}

func TestSignupPendingConfirmation(t *testing.T) {
	idp := newFakeIdP()
	idp.ghost = true // provider returns no session, as with email confirmation on
	svc := NewService(idp, fakeProfiles{}, nil)
	app := newTestApp(NewHandler(svc), svc)

	code, body := doJSON(t, app, "POST", "/api/signup", "", `{"name":"Juan","email":"juan@correo.com","password":"secreto"}`)
	if code != fiber.StatusCreated || body["message"] != SignUpPending || body["token"] != nil {
		t.Fatalf("signup: %d %v", code, body)
	}

	code, body = doJSON(t, app, "POST", "/api/signup", "", `{"name":"Juan","email":"juan@correo.com","password":"secreto"}`)
	if code != fiber.StatusConflict {
		t.Fatalf("duplicate signup: %d %v", code, body)
	}

	code, body = doJSON(t, app, "POST", "/api/signup", "", `{"name":"","email":"otro@correo.com","password":"secreto"}`)
	if code != fiber.StatusBadRequest || body["message"] != ErrMissingFields.Error() {
		t.Fatalf("missing fields: %d %v", code, body)
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: secret table details") })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound) })

	code, body := doJSON(t, app, "GET", "/boom", "", "")
	if code != fiber.StatusInternalServerError || strings.Contains(body["message"].(string), "pq") {
		t.Fatalf("boom: %d %v", code, body)
	}
	code, body = doJSON(t, app, "GET", "/teapot", "", "")
	if code != fiber.StatusNotFound || body["message"] != "Not Found" || body["error"] != true {
		t.Fatalf("not found: %d %v", code, body)
	}
}
