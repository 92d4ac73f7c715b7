package service

import (
	"context"
	"testing"
	"time"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/config"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
)

type verifyFixture struct {
	svc        VerifyService
	users      *memUsers
	challenges *memChallenges
	mail       *capturingMailer
	bus        *capturingBus
}

func newVerifyFixture(t *testing.T, ttl time.Duration) *verifyFixture {
	t.Helper()
	cfg := &config.Config{
		Shop: config.ShopConfig{OTPLength: 6, OTPTTL: ttl},
	}
	f := &verifyFixture{
		users:      newMemUsers(),
		challenges: newMemChallenges(),
		mail:       &capturingMailer{},
		bus:        &capturingBus{},
	}
	f.svc = NewVerifyService(f.users, f.challenges, f.mail, f.bus, cfg)
	return f
}

func (f *verifyFixture) registerUser(t *testing.T, chatID int64) *domain.User {
	t.Helper()
	u, err := f.users.EnsureByChatID(context.Background(), chatID, "Test User", "tester")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return u
}

func TestVerifyIssueAndRedeem(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := f.mail.lastCode()
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	result, err := f.svc.Redeem(ctx, 100, code)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result != domain.VerificationOK {
		t.Fatalf("expected OK, got %v", result)
	}

	u, _ := f.users.FindByChatID(ctx, 100)
	if u.Email == nil || *u.Email != "user@example.com" || !u.Verified {
		t.Fatalf("user not marked verified: %+v", u)
	}

	subjects := f.bus.subjects()
	if len(subjects) != 1 || subjects[0] != events.UserVerified {
		t.Fatalf("expected one user.verified event, got %v", subjects)
	}
}

func TestVerifyIssueRejectsInvalidEmail(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	f.registerUser(t, 100)

	err := f.svc.IssueChallenge(context.Background(), 100, "not-an-email")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.mail.codes) != 0 {
		t.Fatal("no mail should have been sent")
	}
}

func TestVerifyRedeemWrongCode(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A well-formed but wrong guess.
	wrong := "000000"
	if wrong == f.mail.lastCode() {
		wrong = "000001"
	}

	result, err := f.svc.Redeem(ctx, 100, wrong)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result != domain.VerificationInvalid {
		t.Fatal("wrong code must not verify")
	}

	// The real code still works afterwards: a wrong guess burns nothing.
	result, err = f.svc.Redeem(ctx, 100, f.mail.lastCode())
	if err != nil || result != domain.VerificationOK {
		t.Fatalf("correct code after wrong guess: result=%v err=%v", result, err)
	}
}

func TestVerifyRedeemMalformedSkipsLookup(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	f.registerUser(t, 100)

	for _, submitted := range []string{"", "12345", "1234567", "12a456"} {
		_, err := f.svc.Redeem(context.Background(), 100, submitted)
		if !domain.IsValidation(err) {
			t.Fatalf("submitted %q: expected validation error, got %v", submitted, err)
		}
	}
	if f.challenges.latestCalls != 0 {
		t.Fatalf("malformed input hit the store %d times", f.challenges.latestCalls)
	}
}

func TestVerifyRedeemIsSingleUse(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := f.mail.lastCode()

	if result, _ := f.svc.Redeem(ctx, 100, code); result != domain.VerificationOK {
		t.Fatal("first redeem should succeed")
	}
	result, err := f.svc.Redeem(ctx, 100, code)
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if result != domain.VerificationInvalid {
		t.Fatal("a consumed code must not redeem again")
	}
}

func TestVerifyRedeemExpiredCode(t *testing.T) {
	f := newVerifyFixture(t, -time.Minute) // already expired at issue
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	result, err := f.svc.Redeem(ctx, 100, f.mail.lastCode())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result != domain.VerificationInvalid {
		t.Fatal("expired code must not verify")
	}
}

func TestVerifyLatestChallengeWins(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	first := f.mail.lastCode()
	if err := f.svc.IssueChallenge(ctx, 100, "user@example.com"); err != nil {
		t.Fatalf("second issue: %v", err)
	}
	second := f.mail.lastCode()
	if first == second {
		t.Skip("codes collided, cannot distinguish challenges")
	}

	if result, _ := f.svc.Redeem(ctx, 100, first); result != domain.VerificationInvalid {
		t.Fatal("superseded code must not verify")
	}
	if result, _ := f.svc.Redeem(ctx, 100, second); result != domain.VerificationOK {
		t.Fatal("latest code should verify")
	}
}

func TestVerifyPhoneSetsFlagAndPublishes(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	ctx := context.Background()
	f.registerUser(t, 100)

	if err := f.svc.VerifyPhone(ctx, 100, "+4915112345678"); err != nil {
		t.Fatalf("verify phone: %v", err)
	}

	u, _ := f.users.FindByChatID(ctx, 100)
	if u.Phone == nil || *u.Phone != "+4915112345678" || !u.Verified {
		t.Fatalf("phone not set: %+v", u)
	}

	subjects := f.bus.subjects()
	if len(subjects) != 1 || subjects[0] != events.UserVerified {
		t.Fatalf("expected one user.verified event, got %v", subjects)
	}
}

func TestVerifyPhoneRejectsEmpty(t *testing.T) {
	f := newVerifyFixture(t, 10*time.Minute)
	f.registerUser(t, 100)

	err := f.svc.VerifyPhone(context.Background(), 100, "")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
