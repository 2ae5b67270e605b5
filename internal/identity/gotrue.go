package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

/*
GoTrue wraps the Supabase Auth REST API.

Every call carries the project's anon key in `apikey`; calls acting on a
session also send `Authorization: Bearer <access token>`.
*/
type GoTrue struct {
	baseURL string // e.g. https://<project>.supabase.co
	anonKey string
	client  *http.Client
	persist bool
}

func NewGoTrue(baseURL, anonKey string) *GoTrue {
	return &GoTrue{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		persist: true,
	}
}

func (g *GoTrue) Ghost() Provider {
	c := *g
	c.persist = false
	return &c
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int         `json:"expires_in"`
	User        *gotrueUser `json:"user"`
	// Sign-up with email confirmation enabled returns the bare user.
	ID string `json:"id"`
}

type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn: POST /auth/v1/token?grant_type=password
func (g *GoTrue) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out gotrueSession
	status, errBody, err := g.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "",
		map[string]string{"email": normalizeEmail(email), "password": password}, &out)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return Session{}, ErrInvalidCredentials
	}
	if status >= 300 {
		return Session{}, fmt.Errorf("%w: sign in: %d %s", ErrUnavailable, status, errBody.text())
	}
	return g.session(out), nil
}

// SignUp: POST /auth/v1/signup with the display name in user metadata.
func (g *GoTrue) SignUp(ctx context.Context, p SignUpParams) (Session, error) {
	body := map[string]any{
		"email":    normalizeEmail(p.Email),
		"password": p.Password,
		"data":     map[string]string{"name": strings.TrimSpace(p.Name)},
	}
	var out gotrueSession
	status, errBody, err := g.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusUnprocessableEntity || strings.Contains(strings.ToLower(errBody.text()), "already registered") {
		return Session{}, ErrEmailTaken
	}
	if status >= 300 {
		return Session{}, fmt.Errorf("%w: sign up: %d %s", ErrUnavailable, status, errBody.text())
	}
	s := g.session(out)
	if s.UserID == "" {
		return Session{}, fmt.Errorf("%w: sign up returned no user", ErrUnavailable)
	}
	return s, nil
}

// SignOut: POST /auth/v1/logout. An already dead session is not an error.
func (g *GoTrue) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	status, errBody, err := g.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusUnauthorized && status != http.StatusForbidden && status != http.StatusNotFound {
		return fmt.Errorf("%w: sign out: %d %s", ErrUnavailable, status, errBody.text())
	}
	return nil
}

// Session: GET /auth/v1/user
func (g *GoTrue) Session(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	var u gotrueUser
	status, errBody, err := g.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &u)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound {
		return Session{}, ErrNoSession
	}
	if status >= 300 {
		return Session{}, fmt.Errorf("%w: session: %d %s", ErrUnavailable, status, errBody.text())
	}
	if u.ID == "" {
		return Session{}, ErrNoSession
	}
	return Session{Token: token, UserID: u.ID}, nil
}

func (g *GoTrue) session(out gotrueSession) Session {
	s := Session{UserID: out.ID}
	if out.User != nil {
		s.UserID = out.User.ID
	}
	if g.persist && out.AccessToken != "" {
		s.Token = out.AccessToken
		if out.ExpiresIn > 0 {
			s.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
		}
	}
	return s
}

// do sends a JSON request and decodes a 2xx body into out. Non-2xx bodies are
// decoded into the returned gotrueError.
func (g *GoTrue) do(ctx context.Context, method, path, token string, in, out any) (int, gotrueError, error) {
	var errBody gotrueError
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, errBody, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return 0, errBody, err
	}
	req.Header.Set("apikey", g.anonKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return 0, errBody, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		_ = json.NewDecoder(res.Body).Decode(&errBody)
		return res.StatusCode, errBody, nil
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && err != io.EOF {
			return res.StatusCode, errBody, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
	}
	return res.StatusCode, errBody, nil
}
