package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/config"
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/repository"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users     repository.UserRepository
	tokenMgr  *auth.TokenManager
	revoked   auth.RevocationStore
	passwords auth.PasswordPolicy
	publisher
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Revocation auth.RevocationStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// SignUpInput is the self-registration payload.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Sector   string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	revoked := deps.Revocation
	if revoked == nil {
		revoked = auth.NewMemoryRevocationStore()
	}
	return &AuthService{
		users:     deps.UserRepo,
		tokenMgr:  auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		revoked:   revoked,
		passwords: auth.NewPasswordPolicy(cfg.Auth.MinPasswordLength, cfg.Auth.BcryptCost),
		publisher: publisher{dispatcher: deps.Dispatcher, metrics: deps.Metrics},
	}
}

// SignUp registers a patient account and signs it in. The role is never
// taken from the caller.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*domain.User, *domain.Token, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	sector := strings.TrimSpace(input.Sector)

	missing := map[string]any{}
	if name == "" {
		missing["name"] = "required"
	}
	if sector == "" {
		missing["sector"] = "required"
	}
	if email == "" {
		missing["email"] = "required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		missing["email"] = "invalid"
	}
	if strings.TrimSpace(input.Password) == "" {
		missing["password"] = "required"
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.NewValidationError("missing or invalid fields", missing)
	}

	hash, err := s.passwords.Hash(input.Password)
	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		return nil, nil, apperrors.NewWeakPassword(s.passwords.MinLength)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return nil, nil, apperrors.NewValidationError("password too long", map[string]any{"password": "too_long"})
	case err != nil:
		return nil, nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RolePatient,
		Sector:       &sector,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.NewEmailInUse()
		}
		return nil, nil, apperrors.MapError(err)
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserCreated,
		UserID:  user.ID,
		OwnerID: user.ID,
		Actor:   userActor(user),
	})
	return user, token, nil
}

// SignIn authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewInvalidCredentials()
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewInvalidCredentials()
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// SignOut revokes the presented token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.TokenID == "" {
		return apperrors.NewUnauthorized("no active session")
	}
	if err := s.revoked.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventSessionRevoked,
		UserID:  principal.UserID,
		TokenID: principal.TokenID,
	})
	return nil
}

// SetRole changes a user's role out of band. It backs the admin CLI; no
// HTTP route reaches it.
func (s *AuthService) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, mapNotFound("user", err)
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapNotFound("user", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserUpdated,
		UserID:  user.ID,
		OwnerID: user.ID,
	})
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Revocation exposes the denylist for middleware usage.
func (s *AuthService) Revocation() auth.RevocationStore {
	return s.revoked
}
