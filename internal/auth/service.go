package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
)

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) (string, error)
	UpdateLastLogin(ctx context.Context, id string) error
	CreateOrganization(ctx context.Context, org *domain.Organization) (string, error)
	DeleteOrganization(ctx context.Context, id string) error
}

// Claims is the JWT payload for a session token.
type Claims struct {
	OrganizationID string          `json:"org"`
	Role           domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates session tokens.
type Service struct {
	store      UserStore
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int

	// Per-email login limiters. Entries are never evicted; the map is
	// bounded by the number of distinct emails attempting login.
	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
	loginRate  rate.Limit
	loginBurst int
}

// NewService creates an auth service.
func NewService(store UserStore, cfg config.AuthConfig) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	perMin := cfg.MaxLoginPerMin
	if perMin <= 0 {
		perMin = 10
	}
	return &Service{
		store:      store,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL(),
		bcryptCost: cost,
		limiters:   make(map[string]*rate.Limiter),
		loginRate:  rate.Limit(float64(perMin) / 60.0),
		loginBurst: perMin,
	}
}

func (s *Service) limiterFor(email string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	l, ok := s.limiters[email]
	if !ok {
		l = rate.NewLimiter(s.loginRate, s.loginBurst)
		s.limiters[email] = l
	}
	return l
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if !s.limiterFor(email).Allow() {
		log.Warn().Str("email", email).Msg("login rate limited")
		return nil, ErrTooManyAttempts
	}

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		// Burn a comparison anyway so missing accounts cost the same
		// as wrong passwords.
		bcrypt.CompareHashAndPassword([]byte("$2a$12$000000000000000000000uGyUvPGhDmQhF1u0u3tS0kS7uCMfC0G2"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to stamp last login")
	}

	log.Info().Str("user_id", u.ID).Str("org_id", u.OrganizationID).Msg("user logged in")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// RegisterInput holds the fields for bootstrapping a new organization with
// its owner account.
type RegisterInput struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Password         string `json:"password"`
}

// Register creates an organization and its first user, then logs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.OrganizationName == "" {
		return nil, errors.New("organization_name is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, errors.New("valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	orgID, err := s.store.CreateOrganization(ctx, &domain.Organization{
		ID:   uuid.New().String(),
		Name: in.OrganizationName,
	})
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Email:          in.Email,
		Name:           in.Name,
		PasswordHash:   string(hash),
		Role:           domain.RoleOwner,
		Active:         true,
	}
	if _, err := s.store.Create(ctx, u); err != nil {
		// The org was inserted first; take it back out so a failed
		// registration leaves no unowned row behind.
		if delErr := s.store.DeleteOrganization(ctx, orgID); delErr != nil {
			log.Warn().Err(delErr).Str("org_id", orgID).
				Msg("failed to remove organization after user create error")
		}
		return nil, err
	}

	token, expiresAt, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}

	log.Info().Str("org_id", orgID).Str("user_id", u.ID).Msg("organization registered")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) issueToken(u *domain.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := Claims{
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateToken parses and verifies a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.OrganizationID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
