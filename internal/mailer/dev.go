package mailer

import (
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

// DevMailer logs codes instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationCode(toEmail, code string) error {
	logger.Info("[DEV MAIL] verification code",
		"to", toEmail,
		"code", code,
	)
	return nil
}
