package mailer

import (
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/config"
)

// Service delivers one-time verification codes out of band. Delivery is best
// effort from the core's perspective.
type Service interface {
	SendVerificationCode(toEmail, code string) error
}

// FromConfig picks an implementation: dev mode logs codes, a configured
// MailerSend key wins over SMTP.
func FromConfig(cfg *config.Config) Service {
	if cfg.Email.DevMode {
		return NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return NewMailerSendClient(cfg.Email.MailerSendKey, cfg.Email.SMTPFrom)
	}
	return NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
}
