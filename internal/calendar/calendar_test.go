package calendar

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/pkg/database"
	"github.com/jomosautsem/lex/pkg/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUrgencyBoundaries(t *testing.T) {
	// afternoon in a non-UTC zone: only the calendar day counts
	today := time.Date(2024, 1, 10, 17, 45, 0, 0, time.FixedZone("CST", -6*3600))

	cases := []struct {
		date string
		want Level
		days int
	}{
		{"2024-01-09", Past, -1},
		{"2024-01-10", Critical, 0},
		{"2024-01-12", Critical, 2},
		{"2024-01-13", Soon, 3},
		{"2024-01-15", Soon, 5},
		{"2024-01-17", Soon, 7},
		{"2024-01-18", Normal, 8},
		{"2024-01-20", Normal, 10},
	}
	for _, tc := range cases {
		if got := Urgency(day(tc.date), today); got != tc.want {
			t.Errorf("%s: want %s, got %s", tc.date, tc.want, got)
		}
		if got := DaysUntil(day(tc.date), today); got != tc.days {
			t.Errorf("%s: want %d days, got %d", tc.date, tc.days, got)
		}
	}
}

func TestUpcomingSkipsPastAndCaps(t *testing.T) {
	today := day("2024-01-10")
	events := []models.LegalEvent{
		{ID: "e4", Date: "2024-02-01", Time: "09:00"},
		{ID: "e1", Date: "2024-01-05", Time: "10:00"},
		{ID: "e3", Date: "2024-01-10", Time: "16:00"},
		{ID: "e2", Date: "2024-01-10", Time: "08:30"},
		{ID: "e5", Date: "2024-03-01", Time: "09:00"},
	}
	got := Upcoming(events, today, 3)
	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "e2,e3,e4" {
		t.Fatalf("upcoming order: %v", ids)
	}
	if got[0].Urgency != Critical || got[2].Urgency != Normal {
		t.Fatalf("urgency labels: %+v", got)
	}
	if events[0].ID != "e4" {
		t.Fatalf("input was reordered")
	}
	if len(Upcoming(nil, today, 5)) != 0 {
		t.Fatalf("no events should give no upcoming entries")
	}
}

func TestAnnotateUnparseableDate(t *testing.T) {
	got := Annotate([]models.LegalEvent{{ID: "x", Date: "mañana"}}, day("2024-01-10"))
	if got[0].Urgency != Normal {
		t.Fatalf("want normal for unparseable date, got %s", got[0].Urgency)
	}
}

/* ============================================================================
   HTTP
   ============================================================================ */

type memStore struct {
	mu     sync.Mutex
	events []models.LegalEvent
	cases  map[string]bool
}

func (m *memStore) List(context.Context) ([]models.LegalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LegalEvent(nil), m.events...), nil
}

func (m *memStore) Create(_ context.Context, in NewEvent) (models.LegalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CaseID != "" && !m.cases[in.CaseID] {
		return models.LegalEvent{}, ErrUnknownCase
	}
	if !in.Type.Valid() {
		in.Type = models.EventOther
	}
	ev := models.LegalEvent{ID: uuid.NewString(), Title: in.Title, Date: in.Date, Time: in.Time, Type: in.Type, CaseID: in.CaseID, Description: in.Description}
	m.events = append(m.events, ev)
	return ev, nil
}

func newTestApp(store Store) *fiber.App {
	h := NewHandler(store)
	h.now = func() time.Time { return day("2024-01-10") }

	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(auth.WithUser(models.User{ID: uuid.NewString(), Role: models.RoleEmployee, IsActive: true}))
	app.Get("/api/events", h.List)
	app.Post("/api/events", h.Create)
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestEventsHTTP(t *testing.T) {
	caseID := uuid.NewString()
	store := &memStore{cases: map[string]bool{caseID: true}}
	app := newTestApp(store)

	code, body := post(t, app, `{"title":"Audiencia inicial","date":"2024-01-11","time":"10:00","type":"Audiencia","caseId":"`+caseID+`"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("create: want 201, got %d (%v)", code, body)
	}
	if body["urgency"] != string(Critical) || body["caseId"] != caseID {
		t.Fatalf("unexpected create body: %v", body)
	}

	code, body = post(t, app, `{"title":"Reunión","date":"2024-01-30","time":"09:15"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("general event: want 201, got %d (%v)", code, body)
	}
	if body["type"] != string(models.EventOther) || body["caseId"] != "" {
		t.Fatalf("general event defaults: %v", body)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/events", nil), -1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var list []Entry
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Audiencia inicial" || list[1].Urgency != Normal {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestEventsHTTPRejections(t *testing.T) {
	app := newTestApp(&memStore{cases: map[string]bool{}})

	for name, body := range map[string]string{
		"missing title": `{"date":"2024-01-11","time":"10:00"}`,
		"bad date":      `{"title":"x","date":"11/01/2024","time":"10:00"}`,
		"bad time":      `{"title":"x","date":"2024-01-11","time":"25:00"}`,
		"bad type":      `{"title":"x","date":"2024-01-11","time":"10:00","type":"Fiesta"}`,
	} {
		if code, _ := post(t, app, body); code != fiber.StatusBadRequest {
			t.Errorf("%s: want 400, got %d", name, code)
		}
	}

	code, body := post(t, app, `{"title":"x","date":"2024-01-11","time":"10:00","caseId":"`+uuid.NewString()+`"}`)
	if code != fiber.StatusUnprocessableEntity || body["message"] != ErrUnknownCase.Error() {
		t.Fatalf("unknown case: want 422, got %d (%v)", code, body)
	}
}

/* ============================================================================
   Postgres
   ============================================================================ */

func TestGormStoreOrdersAndLinks(t *testing.T) {
	_ = godotenv.Load()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is empty")
	}
	db, err := database.Open(dsn, false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Exec(`TRUNCATE TABLE events, documents, cases, profiles RESTART IDENTITY CASCADE`).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	client := models.ProfileRow{ID: uuid.New(), Name: "Cliente", Email: uuid.NewString() + "@lex.test", Role: models.RoleClient, IsActive: true}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("profile: %v", err)
	}
	cs := models.CaseRow{ClientID: client.ID, Title: "Divorcio", Status: models.CaseOpen}
	if err := db.Create(&cs).Error; err != nil {
		t.Fatalf("case: %v", err)
	}

	s := NewGormStore(db)
	ctx := context.Background()
	if _, err := s.Create(ctx, NewEvent{Title: "B", Date: "2024-02-01", Time: "12:00", Type: models.EventHearing}); err != nil {
		t.Fatalf("create B: %v", err)
	}
	if _, err := s.Create(ctx, NewEvent{Title: "A2", Date: "2024-01-15", Time: "16:00", CaseID: cs.ID.String()}); err != nil {
		t.Fatalf("create A2: %v", err)
	}
	if _, err := s.Create(ctx, NewEvent{Title: "A1", Date: "2024-01-15", Time: "09:00"}); err != nil {
		t.Fatalf("create A1: %v", err)
	}
	if _, err := s.Create(ctx, NewEvent{Title: "C", Date: "2024-01-16", Time: "09:00", CaseID: uuid.NewString()}); err != ErrUnknownCase {
		t.Fatalf("want ErrUnknownCase, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, e := range list {
		titles = append(titles, e.Title)
	}
	if strings.Join(titles, ",") != "A1,A2,B" {
		t.Fatalf("order: %v", titles)
	}
	if list[0].CaseID != "" || list[1].CaseID != cs.ID.String() || list[0].Type != models.EventOther {
		t.Fatalf("case link or type: %+v", list[:2])
	}
}
