package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/repository"
)

// AuthService valida credenciales y emite o valida tokens.
type AuthService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	tokens    *TokenRegistry
	passwords PasswordHasher
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, tokens *TokenRegistry, passwords PasswordHasher) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:    logger,
		users:     users,
		tokens:    tokens,
		passwords: passwords,
	}
}

// Authenticate comprueba las credenciales antes que el estado de la cuenta,
// de modo que un llamador sin credenciales validas no aprende si la cuenta
// esta activa o verificada. Nunca modifica al usuario.
func (s *AuthService) Authenticate(ctx context.Context, emailAddr, password string) (domain.TokenPayload, error) {
	if s.users == nil {
		return domain.TokenPayload{}, ErrNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.TokenPayload{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenPayload{}, ErrInvalidCredentials
		}
		return domain.TokenPayload{}, err
	}
	if !s.passwords.Matches(user.PasswordHash, password) {
		return domain.TokenPayload{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.TokenPayload{}, ErrAccountNotActive
	}
	if !user.IsVerified {
		return domain.TokenPayload{}, ErrEmailNotVerified
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return domain.TokenPayload{}, err
	}
	return domain.NewTokenPayload(token, user), nil
}

// VerifyToken devuelve el payload del dueño del token, repitiendo la clave.
func (s *AuthService) VerifyToken(ctx context.Context, key string) (domain.TokenPayload, error) {
	token, user, err := s.tokens.Owner(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.TokenPayload{}, ErrInvalidToken
		}
		return domain.TokenPayload{}, err
	}
	return domain.NewTokenPayload(token, user), nil
}

// Resolve devuelve el usuario autenticado por key.
func (s *AuthService) Resolve(ctx context.Context, key string) (domain.User, error) {
	_, user, err := s.tokens.Owner(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}
	return user, nil
}
