package profiles

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
)

var (
	ErrSelfRoleChange = errors.New("No puede cambiar su propio rol")
	ErrSelfDeactivate = errors.New("No puede desactivar su propia cuenta")
	ErrSelfDelete     = errors.New("No puede eliminar su propia cuenta")
	ErrEmailTaken     = errors.New("El correo ya está registrado")
	ErrNoUser         = errors.New("No se pudo crear el usuario")
	ErrNotEmployee    = errors.New("El usuario asignado no es un empleado")
)

// NewUser is an admin-created account. An empty Password is generated.
type NewUser struct {
	Email              string
	Name               string
	Phone              string
	Role               models.Role
	Password           string
	AssignedEmployeeID string
}

type Service struct {
	store Store
	idp   identity.Provider
	rep   logger.Reporter
	// wait gives the provider-side profile trigger time to insert the row.
	wait  time.Duration
	sleep func(context.Context, time.Duration) error
}

func NewService(store Store, idp identity.Provider, wait time.Duration, rep logger.Reporter) *Service {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Service{store: store, idp: idp, rep: rep, wait: wait, sleep: sleepCtx}
}

func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return row.ToUser(), nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToUser())
	}
	return out, nil
}

// AdminCreate registers an account through a ghost client so the calling
// admin keeps their own session, then fills in the profile fields the
// sign-up flow does not carry.
func (s *Service) AdminCreate(ctx context.Context, in NewUser) (models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleClient
	}
	if err := s.checkAssignee(ctx, in.AssignedEmployeeID); err != nil {
		return models.User{}, err
	}
	password := in.Password
	if password == "" {
		var err error
		if password, err = GeneratePassword(); err != nil {
			return models.User{}, err
		}
	}

	sess, err := s.idp.Ghost().SignUp(ctx, identity.SignUpParams{Email: in.Email, Password: password, Name: in.Name})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	if sess.UserID == "" {
		return models.User{}, ErrNoUser
	}

	if err := s.sleep(ctx, s.wait); err != nil {
		return models.User{}, err
	}

	phone, role, assigned := in.Phone, in.Role, in.AssignedEmployeeID
	err = s.store.Update(ctx, sess.UserID, Patch{Phone: &phone, Role: &role, AssignedEmployeeID: &assigned})
	if err != nil {
		s.rep.Report("profiles.admin_create.update", err, zap.String("user_id", sess.UserID))
		row, convErr := s.fallbackRow(sess.UserID, in)
		if convErr != nil {
			return models.User{}, convErr
		}
		if err := s.store.Upsert(ctx, row); err != nil {
			return models.User{}, fmt.Errorf("upsert profile: %w", err)
		}
	}
	return s.Get(ctx, sess.UserID)
}

func (s *Service) fallbackRow(id string, in NewUser) (models.ProfileRow, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.ProfileRow{}, fmt.Errorf("provider user id: %w", err)
	}
	assigned, err := models.NullableUUID(in.AssignedEmployeeID)
	if err != nil {
		return models.ProfileRow{}, err
	}
	return models.ProfileRow{
		ID:                 uid,
		Name:               strings.TrimSpace(in.Name),
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:              in.Phone,
		Role:               in.Role,
		IsActive:           true,
		AssignedEmployeeID: assigned,
	}, nil
}

// Update applies an admin edit. actorID is the signed-in admin.
func (s *Service) Update(ctx context.Context, actorID, id string, p Patch) (models.User, error) {
	if actorID == id {
		if p.Role != nil {
			cur, err := s.store.Get(ctx, id)
			if err != nil {
				return models.User{}, err
			}
			if *p.Role != cur.Role {
				return models.User{}, ErrSelfRoleChange
			}
		}
		if p.IsActive != nil && !*p.IsActive {
			return models.User{}, ErrSelfDeactivate
		}
	}
	if p.AssignedEmployeeID != nil {
		if err := s.checkAssignee(ctx, *p.AssignedEmployeeID); err != nil {
			return models.User{}, err
		}
	}
	if !p.empty() {
		if err := s.store.Update(ctx, id, p); err != nil {
			return models.User{}, err
		}
	}
	return s.Get(ctx, id)
}

// Toggle flips the active flag.
func (s *Service) Toggle(ctx context.Context, actorID, id string) (models.User, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	next := !cur.IsActive
	return s.Update(ctx, actorID, id, Patch{IsActive: &next})
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.store.Delete(ctx, id)
}

// checkAssignee accepts an empty id or the id of an employee profile.
func (s *Service) checkAssignee(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	row, err := s.store.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ErrNotEmployee
	}
	if err != nil {
		return err
	}
	if row.Role != models.RoleEmployee && row.Role != models.RoleAdmin {
		return ErrNotEmployee
	}
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GeneratePassword returns 8 random base36 characters followed by "Aa1!",
// which satisfies the usual complexity rules.
func GeneratePassword() (string, error) {
	var b strings.Builder
	n36 := big.NewInt(int64(len(base36)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, n36)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(base36[n.Int64()])
	}
	b.WriteString("Aa1!")
	return b.String(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
