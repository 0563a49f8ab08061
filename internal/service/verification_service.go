package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/email"
	"accounts-api/internal/repository"
)

const (
	verifyEmailPath   = "/verify-email/"
	resetPasswordPath = "/reset-password/"
)

// ResetTokenStatus es el resultado de sondear un link de reset.
type ResetTokenStatus string

const (
	ResetTokenValid    ResetTokenStatus = "valid"
	ResetTokenUserGone ResetTokenStatus = "user_gone"
)

// VerificationService emite los links de verificacion y reset y aplica sus
// transiciones cuando se usan.
type VerificationService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      *TokenRegistry
	passwords   PasswordHasher
	emailSender email.Sender
	limiter     LinkRateLimiter
	baseURL     string
}

func NewVerificationService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *TokenRegistry,
	passwords PasswordHasher,
	emailSender email.Sender,
	limiter LinkRateLimiter,
	baseURL string,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		emailSender: emailSender,
		limiter:     limiter,
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// RequestVerification reenvia el link de verificacion de email.
func (s *VerificationService) RequestVerification(ctx context.Context, emailAddr string) error {
	user, err := s.requestTarget(ctx, LinkVerification, emailAddr)
	if err != nil {
		return err
	}
	return s.SendVerificationLink(ctx, user)
}

// SendVerificationLink emite (o reutiliza) el token del usuario y le envia el link.
func (s *VerificationService) SendVerificationLink(ctx context.Context, user domain.User) error {
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.send(ctx, verificationMessage(user, s.link(verifyEmailPath, token.Key)))
}

// ConfirmVerification marca al usuario como verificado y activo. Es idempotente.
func (s *VerificationService) ConfirmVerification(ctx context.Context, key string) (domain.VerifiedSnapshot, error) {
	_, user, err := s.tokens.Owner(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.VerifiedSnapshot{}, ErrInvalidToken
		}
		return domain.VerifiedSnapshot{}, err
	}

	if !user.IsVerified {
		user.IsVerified = true
		user.IsActive = true
		user.DateUpdated = time.Now().UTC()
		if err := s.users.Update(ctx, user); err != nil {
			return domain.VerifiedSnapshot{}, err
		}
		s.logger.Info("email verified", zap.String("user_id", user.ID))
	}

	return domain.VerifiedSnapshot{
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		IsVerified: user.IsVerified,
	}, nil
}

// RequestReset envia el link de reseteo de password.
func (s *VerificationService) RequestReset(ctx context.Context, emailAddr string) error {
	user, err := s.requestTarget(ctx, LinkPasswordReset, emailAddr)
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.send(ctx, resetMessage(user, s.link(resetPasswordPath, token.Key)))
}

// CheckResetToken sondea un link de reset sin modificar nada.
func (s *VerificationService) CheckResetToken(ctx context.Context, key string) (ResetTokenStatus, error) {
	_, _, err := s.tokens.Owner(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ResetTokenUserGone, nil
		}
		return "", err
	}
	return ResetTokenValid, nil
}

// ConfirmReset reemplaza el password; la posesion del token es la unica autorizacion.
func (s *VerificationService) ConfirmReset(ctx context.Context, key, password, confirmPassword string) error {
	if password != confirmPassword {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(password) == "" {
		return ErrInvalidPassword
	}

	_, user, err := s.tokens.Owner(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.DateUpdated = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *VerificationService) requestTarget(ctx context.Context, kind LinkKind, emailAddr string) (domain.User, error) {
	if s.users == nil || s.tokens == nil {
		return domain.User{}, ErrNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, kind, emailAddr) {
		return domain.User{}, ErrRateLimited
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

func (s *VerificationService) send(ctx context.Context, msg email.Message) error {
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.Send(ctx, msg); err != nil {
		s.logger.Warn("send link email failed", zap.Error(err), zap.String("email", msg.To), zap.String("subject", msg.Subject))
		return ErrEmailSendFailure
	}
	return nil
}

func (s *VerificationService) link(path, key string) string {
	return s.baseURL + path + url.PathEscape(key) + "/"
}

func verificationMessage(user domain.User, link string) email.Message {
	return email.Message{
		To:      user.Email,
		Subject: "Email Verification",
		Body: "Hi " + user.FirstName + ". Use this link to verify your email.\n" +
			"If you were not expecting any email verification, please ignore this message.\n" +
			link + "\n",
	}
}

func resetMessage(user domain.User, link string) email.Message {
	return email.Message{
		To:      user.Email,
		Subject: "Reset Password",
		Body:    "Hi " + user.FirstName + ". Use this link to reset your password.\n" + link + "\n",
	}
}
