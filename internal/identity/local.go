package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jomosautsem/lex/pkg/models"
)

/* ============================== JWT Claims ============================== */

// Claims is the payload of locally issued session tokens.
type Claims struct {
	Sub string `json:"sub"` // user ID
	jwt.RegisteredClaims
}

/* =========================== Credential store =========================== */

// CredentialStore persists password hashes next to the profile rows.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (models.Credential, error)
	// Register creates the credential and the initial profile together.
	Register(ctx context.Context, cred models.Credential, profile models.ProfileRow) error
}

// GormCredentials is the Postgres-backed CredentialStore.
type GormCredentials struct{ db *gorm.DB }

func NewGormCredentials(db *gorm.DB) *GormCredentials { return &GormCredentials{db: db} }

func (s *GormCredentials) FindByEmail(ctx context.Context, email string) (models.Credential, error) {
	var c models.Credential
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, ErrInvalidCredentials
	}
	return c, err
}

func (s *GormCredentials) Register(ctx context.Context, cred models.Credential, profile models.ProfileRow) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Credential{}).Where("email = ?", cred.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&cred).Error; err != nil {
			return err
		}
		return tx.Create(&profile).Error
	})
}

/* ============================ Local provider ============================ */

// dummyHash is compared against when the email is unknown, so both failure
// paths cost one bcrypt compare.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("lex-no-such-account"), bcrypt.DefaultCost)
	return h
})

// Local is the self-hosted identity provider: bcrypt hashes, HS256 tokens and
// a Redis key per live session so sign-out takes effect immediately.
type Local struct {
	creds   CredentialStore
	rdb     *redis.Client
	secret  []byte
	ttl     time.Duration
	prefix  string
	persist bool
	now     func() time.Time
	compare func(hash, password []byte) error
}

func NewLocal(creds CredentialStore, rdb *redis.Client, secret string, ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Local{
		creds:   creds,
		rdb:     rdb,
		secret:  []byte(secret),
		ttl:     ttl,
		prefix:  "lex:session:",
		persist: true,
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}
}

func (l *Local) Ghost() Provider {
	g := *l
	g.persist = false
	return &g
}

func (l *Local) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	cred, err := l.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			_ = l.compare(dummyHash(), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if l.compare([]byte(cred.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return l.issue(ctx, cred.UserID.String())
}

// SignUp registers a CLIENT profile. The profile row stands in for the
// provider-side trigger that creates profiles for new identities.
func (l *Local) SignUp(ctx context.Context, p SignUpParams) (Session, error) {
	email := normalizeEmail(p.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	id := uuid.New()
	err = l.creds.Register(ctx,
		models.Credential{UserID: id, Email: email, PasswordHash: string(hash)},
		models.ProfileRow{ID: id, Name: strings.TrimSpace(p.Name), Email: email, Role: models.RoleClient, IsActive: true},
	)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.issue(ctx, id.String())
}

func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := l.parse(token, true)
	if err != nil {
		return nil // nothing to revoke
	}
	if err := l.rdb.Del(ctx, l.prefix+claims.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Local) Session(ctx context.Context, token string) (Session, error) {
	claims, err := l.parse(token, false)
	if err != nil {
		return Session{}, ErrNoSession
	}
	owner, err := l.rdb.Get(ctx, l.prefix+claims.ID).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if owner != claims.Sub {
		return Session{}, ErrNoSession
	}
	s := Session{Token: token, UserID: claims.Sub}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// issue signs a token and, unless this is a ghost, registers it in Redis.
func (l *Local) issue(ctx context.Context, userID string) (Session, error) {
	if !l.persist {
		return Session{UserID: userID}, nil
	}
	now := l.now()
	exp := now.Add(l.ttl)
	claims := &Claims{
		Sub: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	if err := l.rdb.Set(ctx, l.prefix+claims.ID, userID, l.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Session{Token: token, UserID: userID, ExpiresAt: exp}, nil
}

func (l *Local) parse(token string, allowExpired bool) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithTimeFunc(l.now))
	}
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return l.secret, nil
	}, opts...)
	if err != nil || !t.Valid {
		return nil, ErrNoSession
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || claims.ID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
