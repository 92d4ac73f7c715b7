package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendClient(apiKey, fromEmail string) *MailerSendClient {
	return &MailerSendClient{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  "Market Bot",
			Email: fromEmail,
		},
	}
}

func (m *MailerSendClient) SendVerificationCode(toEmail, code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subject := "Your verification code"
	text := fmt.Sprintf("Your verification code is: %s\n\nThe code expires in 10 minutes.", code)
	html := fmt.Sprintf(`
		<h2>Your verification code</h2>
		<p>Enter this code in the chat to verify your email:</p>
		<p><strong style="font-size: 24px;">%s</strong></p>
		<p>The code expires in 10 minutes. If you didn't request it, ignore this email.</p>
	`, code)

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	msg.SetHTML(html)

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
