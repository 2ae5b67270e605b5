package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
)

// User-facing failures. The messages are shown verbatim on the login screen.
var (
	ErrInvalidCredentials = errors.New("Credenciales inválidas")
	ErrProfileNotFound    = errors.New("Perfil no encontrado. Intente nuevamente.")
	ErrAccountDeactivated = errors.New("Cuenta desactivada.")
	ErrMissingFields      = errors.New("Todos los campos son obligatorios")
	ErrEmailTaken         = errors.New("El correo ya está registrado")
)

// SignUpPending is returned to the client when the provider did not open a
// session right away (email confirmation pending).
const SignUpPending = "Registro iniciado. Por favor revisa tu correo para confirmar tu cuenta antes de iniciar sesión."

// ProfileGetter loads a profile row; models.ErrNotFound when absent.
type ProfileGetter interface {
	Get(ctx context.Context, id string) (models.ProfileRow, error)
}

// Result is a successful sign-in.
type Result struct {
	Session identity.Session
	User    models.User
	Landing models.View
}

type Service struct {
	idp      identity.Provider
	profiles ProfileGetter
	rep      logger.Reporter
}

func NewService(idp identity.Provider, profiles ProfileGetter, rep logger.Reporter) *Service {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Service{idp: idp, profiles: profiles, rep: rep}
}

// SignIn authenticates and then enforces the profile rules. A session opened
// for a missing or deactivated profile is revoked before returning.
func (s *Service) SignIn(ctx context.Context, email, password string) (Result, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Result{}, ErrInvalidCredentials
	}
	sess, err := s.idp.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}

	row, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		s.revoke(ctx, sess.Token, "signin.profile_missing")
		if errors.Is(err, models.ErrNotFound) {
			return Result{}, ErrProfileNotFound
		}
		return Result{}, err
	}
	if !row.IsActive {
		s.revoke(ctx, sess.Token, "signin.deactivated")
		return Result{}, ErrAccountDeactivated
	}

	u := row.ToUser()
	return Result{Session: sess, User: u, Landing: access.LandingView(u.Role)}, nil
}

// SignUp registers a new client account. The result carries a session only
// when the provider opened one.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (Result, error) {
	if strings.TrimSpace(email) == "" || password == "" || strings.TrimSpace(name) == "" {
		return Result{}, ErrMissingFields
	}
	sess, err := s.idp.SignUp(ctx, identity.SignUpParams{Email: email, Password: password, Name: name})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return Result{}, ErrEmailTaken
		}
		return Result{}, err
	}
	if sess.Token == "" {
		return Result{Session: sess}, nil
	}
	row, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		// The account exists; the profile may just not be visible yet.
		s.rep.Report("signup.profile_lookup", err, zap.String("user_id", sess.UserID))
		return Result{Session: identity.Session{UserID: sess.UserID}}, nil
	}
	u := row.ToUser()
	return Result{Session: sess, User: u, Landing: access.LandingView(u.Role)}, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.idp.SignOut(ctx, token)
}

// CurrentSession resolves a token to its profile. Inactive profiles have no session.
func (s *Service) CurrentSession(ctx context.Context, token string) (identity.Session, models.User, error) {
	sess, err := s.idp.Session(ctx, token)
	if err != nil {
		return identity.Session{}, models.User{}, err
	}
	row, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return identity.Session{}, models.User{}, identity.ErrNoSession
		}
		return identity.Session{}, models.User{}, err
	}
	if !row.IsActive {
		return identity.Session{}, models.User{}, identity.ErrNoSession
	}
	return sess, row.ToUser(), nil
}

func (s *Service) revoke(ctx context.Context, token, op string) {
	if token == "" {
		return
	}
	s.rep.Report(op, s.idp.SignOut(ctx, token))
}
