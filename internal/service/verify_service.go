package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/mailer"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/config"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

type VerifyService interface {
	// IssueChallenge creates a fresh one-time code for the email and hands
	// it to the mailer. Earlier challenges stay in the store but stop being
	// authoritative.
	IssueChallenge(ctx context.Context, chatID int64, email string) error
	// Redeem checks the submission against the most recent live challenge.
	// Wrong, reused and expired codes are all the same Invalid result.
	Redeem(ctx context.Context, chatID int64, submitted string) (domain.VerificationResult, error)
	// VerifyPhone is the trusted contact-share path: no challenge, no
	// expiry, phone and flag set directly.
	VerifyPhone(ctx context.Context, chatID int64, phone string) error
}

type verifyService struct {
	users      postgres.UsersRepo
	challenges postgres.ChallengesRepo
	mail       mailer.Service
	bus        events.Publisher
	cfg        *config.Config
	validate   *validator.Validate
}

func NewVerifyService(
	users postgres.UsersRepo,
	challenges postgres.ChallengesRepo,
	mail mailer.Service,
	bus events.Publisher,
	cfg *config.Config,
) VerifyService {
	return &verifyService{
		users:      users,
		challenges: challenges,
		mail:       mail,
		bus:        bus,
		cfg:        cfg,
		validate:   validator.New(),
	}
}

func (s *verifyService) IssueChallenge(ctx context.Context, chatID int64, email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.Validation("invalid email address")
	}

	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	code, err := generateCode(s.cfg.Shop.OTPLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	expires := time.Now().Add(s.cfg.Shop.OTPTTL)
	if _, err := s.challenges.Create(ctx, user.ID, email, string(hash), expires); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.mail.SendVerificationCode(email, code); err != nil {
		// Delivery is best effort; the user can ask for a new code.
		logger.ErrorContext(ctx, "Failed to send verification code", "error", err, "email", email)
	}
	return nil
}

func (s *verifyService) Redeem(ctx context.Context, chatID int64, submitted string) (domain.VerificationResult, error) {
	// Malformed input is rejected locally, no store lookup.
	if !isCode(submitted, s.cfg.Shop.OTPLength) {
		return domain.VerificationInvalid, domain.Validation(fmt.Sprintf("the code is %d digits", s.cfg.Shop.OTPLength))
	}

	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		return domain.VerificationInvalid, fmt.Errorf("load user: %w", err)
	}

	// Only the most recently issued live challenge is authoritative.
	challenge, err := s.challenges.Latest(ctx, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.VerificationInvalid, nil
	}
	if err != nil {
		return domain.VerificationInvalid, fmt.Errorf("load challenge: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(submitted)) != nil {
		return domain.VerificationInvalid, nil
	}

	consumed, err := s.challenges.Consume(ctx, challenge.ID)
	if err != nil {
		return domain.VerificationInvalid, fmt.Errorf("consume challenge: %w", err)
	}
	if !consumed {
		return domain.VerificationInvalid, nil
	}

	if err := s.users.SetEmailVerified(ctx, user.ID, challenge.Email); err != nil {
		return domain.VerificationInvalid, fmt.Errorf("mark verified: %w", err)
	}

	if err := s.bus.Publish(ctx, events.UserVerified, events.UserVerifiedEvent{
		ChatID:     chatID,
		Method:     "email",
		VerifiedAt: time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user verified event", "error", err, "chat_id", chatID)
	}
	return domain.VerificationOK, nil
}

func (s *verifyService) VerifyPhone(ctx context.Context, chatID int64, phone string) error {
	if phone == "" {
		return domain.Validation("empty phone number")
	}
	if err := s.users.SetPhoneVerified(ctx, chatID, phone); err != nil {
		return fmt.Errorf("set phone: %w", err)
	}

	if err := s.bus.Publish(ctx, events.UserVerified, events.UserVerifiedEvent{
		ChatID:     chatID,
		Method:     "phone",
		VerifiedAt: time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user verified event", "error", err, "chat_id", chatID)
	}
	return nil
}

func generateCode(n int) (string, error) {
	const digits = "0123456789"
	// rand.Int keeps the draw uniform; a raw byte mod 10 would skew
	// towards the low digits.
	buf := make([]byte, n)
	for i := range buf {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		buf[i] = digits[v.Int64()]
	}
	return string(buf), nil
}

func isCode(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
