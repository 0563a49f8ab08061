package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"accounts-api/internal/domain"
	"accounts-api/internal/repository"
)

const tokenKeyBytes = 20

// TokenRegistry asocia cada usuario con su unico token opaco.
// El mismo token sirve para login y para los links de verificacion y reset.
type TokenRegistry struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
}

func NewTokenRegistry(tokens repository.TokenRepository, users repository.UserRepository) *TokenRegistry {
	return &TokenRegistry{tokens: tokens, users: users}
}

// Issue devuelve el token del usuario, creandolo si aun no existe.
func (r *TokenRegistry) Issue(ctx context.Context, userID string) (domain.Token, error) {
	if r == nil || r.tokens == nil {
		return domain.Token{}, ErrNotConfigured
	}
	key, err := generateTokenKey()
	if err != nil {
		return domain.Token{}, err
	}
	token, _, err := r.tokens.GetOrCreate(ctx, domain.Token{
		Key:       key,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	return token, err
}

// Lookup busca un token por clave; ErrInvalidToken si no existe.
func (r *TokenRegistry) Lookup(ctx context.Context, key string) (domain.Token, error) {
	if r == nil || r.tokens == nil {
		return domain.Token{}, ErrNotConfigured
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Token{}, ErrInvalidToken
	}
	token, err := r.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, ErrInvalidToken
		}
		return domain.Token{}, err
	}
	return token, nil
}

// Owner resuelve el token y su usuario. Si el usuario ya no existe devuelve
// el token junto con ErrUserNotFound.
func (r *TokenRegistry) Owner(ctx context.Context, key string) (domain.Token, domain.User, error) {
	token, err := r.Lookup(ctx, key)
	if err != nil {
		return domain.Token{}, domain.User{}, err
	}
	if r.users == nil {
		return domain.Token{}, domain.User{}, ErrNotConfigured
	}
	user, err := r.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return token, domain.User{}, ErrUserNotFound
		}
		return domain.Token{}, domain.User{}, err
	}
	return token, user, nil
}

func generateTokenKey() (string, error) {
	buf := make([]byte, tokenKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
