package flow

import (
	"context"
	"strings"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/session"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
)

// startEmailVerification begins the OTP flow. Starting it discards whatever
// step the identity was in before: latest-wins.
func (f *Flows) startEmailVerification(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	if _, err := f.users.EnsureByChatID(ctx, ev.Identity, ev.FullName, ev.Username); err != nil {
		return err
	}
	if err := conv.Transition(ctx, &domain.SessionState{Step: domain.StepAwaitingEmail}); err != nil {
		return err
	}
	return f.render.ShowText(ctx, ev.Identity, "Enter your email:", nil)
}

func (f *Flows) onEmailInput(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	email := strings.TrimSpace(ev.Text)

	if err := f.verify.IssueChallenge(ctx, ev.Identity, email); err != nil {
		// Validation keeps the conversation on this step for a retry.
		return err
	}

	if err := conv.Transition(ctx, &domain.SessionState{
		Step: domain.StepAwaitingEmailCode,
		Otp:  &domain.OtpScratch{Email: email},
	}); err != nil {
		return err
	}
	return f.render.ShowText(ctx, ev.Identity,
		"A code was sent to "+email+". Enter the 6-digit code:", nil)
}

func (f *Flows) onEmailCode(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	result, err := f.verify.Redeem(ctx, ev.Identity, strings.TrimSpace(ev.Text))
	if err != nil {
		return err
	}

	if result != domain.VerificationOK {
		// Wrong or expired, same message either way; the step is kept so
		// the user can try again.
		return f.render.ShowText(ctx, ev.Identity, "The code is wrong or expired.", nil)
	}

	if err := conv.End(ctx); err != nil {
		return err
	}
	if err := f.render.ShowText(ctx, ev.Identity, "Email verified.", nil); err != nil {
		return err
	}
	return f.showMainMenu(ctx, ev.Identity)
}
