package email

import (
	"log/slog"

	"gopkg.in/gomail.v2"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
)

type Sender struct {
	cfg *config.Config
}

func NewSender(cfg *config.Config) *Sender {
	return &Sender{cfg: cfg}
}

func (e *Sender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.Email.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(
		e.cfg.Email.SMTPHost,
		e.cfg.Email.SMTPPort,
		e.cfg.Email.SMTPUsername,
		e.cfg.Email.SMTPPassword,
	)

	return d.DialAndSend(m)
}

// PaymentAlert шлет письмо оператору о проблемном платеже.
// Адрес не задан - алерты выключены.
func (e *Sender) PaymentAlert(subject, body string) {
	to := e.cfg.Email.AlertTo
	if to == "" {
		return
	}
	if err := e.Send(to, subject, body); err != nil {
		logger.Error("Failed to send payment alert",
			slog.String("to", to),
			slog.String("error", err.Error()))
	}
}
