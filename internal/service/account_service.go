package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/repository"
)

const (
	maxFirstNameLen = 250
	maxLastNameLen  = 50
)

// AccountService coordina el registro y la administracion de cuentas.
type AccountService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	passwords    PasswordHasher
	verification *VerificationService
}

func NewAccountService(logger *zap.Logger, users repository.UserRepository, passwords PasswordHasher, verification *VerificationService) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		logger:       logger,
		users:        users,
		passwords:    passwords,
		verification: verification,
	}
}

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// RegisterResult incluye si el link de verificacion quedo en camino.
type RegisterResult struct {
	User             domain.UserSnapshot
	VerificationSent bool
}

// UpdateInput lleva solo los campos a modificar; nil deja el valor actual.
type UpdateInput struct {
	FirstName *string
	LastName  *string
}

// Register crea una cuenta inactiva y sin verificar y dispara el email de
// verificacion. Un fallo de entrega no revierte el registro.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	user, err := s.createUser(ctx, input, false)
	if err != nil {
		return RegisterResult{}, err
	}

	result := RegisterResult{User: user.Snapshot()}
	if s.verification == nil {
		s.logger.Warn("verification workflow not configured", zap.String("user_id", user.ID))
		return result, nil
	}
	if err := s.verification.SendVerificationLink(ctx, user); err != nil {
		s.logger.Warn("registration verification email not sent", zap.Error(err), zap.String("user_id", user.ID))
		return result, nil
	}
	result.VerificationSent = true
	return result, nil
}

// CreateSuperuser crea una cuenta staff ya activa y verificada.
func (s *AccountService) CreateSuperuser(ctx context.Context, input RegisterInput) (domain.UserSnapshot, error) {
	user, err := s.createUser(ctx, input, true)
	if err != nil {
		return domain.UserSnapshot{}, err
	}
	s.logger.Info("superuser created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user.Snapshot(), nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.UserSnapshot, error) {
	if s.users == nil {
		return nil, ErrNotConfigured
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSnapshot, 0, len(users))
	for _, u := range users {
		out = append(out, u.Snapshot())
	}
	return out, nil
}

func (s *AccountService) Get(ctx context.Context, emailAddr string) (domain.UserSnapshot, error) {
	user, err := s.lookup(ctx, emailAddr)
	if err != nil {
		return domain.UserSnapshot{}, err
	}
	return user.Snapshot(), nil
}

func (s *AccountService) Update(ctx context.Context, emailAddr string, input UpdateInput) (domain.UserSnapshot, error) {
	user, err := s.lookup(ctx, emailAddr)
	if err != nil {
		return domain.UserSnapshot{}, err
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if err := validateProfile(user.FirstName, user.LastName); err != nil {
		return domain.UserSnapshot{}, err
	}

	user.DateUpdated = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserSnapshot{}, ErrUserNotFound
		}
		return domain.UserSnapshot{}, err
	}
	return user.Snapshot(), nil
}

// Delete elimina la cuenta; su token se borra en cascada.
func (s *AccountService) Delete(ctx context.Context, emailAddr string) error {
	user, err := s.lookup(ctx, emailAddr)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", user.ID))
	return nil
}

func (s *AccountService) createUser(ctx context.Context, input RegisterInput, superuser bool) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrNotConfigured
	}
	if input.Password != input.ConfirmPassword {
		return domain.User{}, ErrPasswordMismatch
	}

	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if err := validateProfile(firstName, lastName); err != nil {
		return domain.User{}, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		DateJoined:   now,
		DateUpdated:  now,
		IsActive:     superuser,
		IsVerified:   superuser,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) lookup(ctx context.Context, emailAddr string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func validateProfile(firstName, lastName string) error {
	if firstName == "" || lastName == "" {
		return ErrInvalidProfile
	}
	if len([]rune(firstName)) > maxFirstNameLen || len([]rune(lastName)) > maxLastNameLen {
		return ErrInvalidProfile
	}
	return nil
}
