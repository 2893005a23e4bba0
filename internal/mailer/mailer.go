package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"time"

	"fastpayment/internal/metrics"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers plain text emails over SMTP.
type Mailer struct {
	cfg      Config
	sendMail sendFunc
}

func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body, kind string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := fmt.Sprintf("From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + body

	var auth smtp.Auth
	if m.cfg.User != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(message)); err != nil {
		metrics.RecordEmail(kind, "failed")
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	metrics.RecordEmail(kind, "success")
	slog.Info("Email sent", "to", to, "type", kind)
	return nil
}

func (m *Mailer) SendOTP(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	if name == "" {
		name = "there"
	}
	subject := "Your FastPayment access code"
	body := fmt.Sprintf(`Hi %s,

Your access code is: %s

It expires at %s (UTC) and can be used only once.

- FastPayment`, name, code, expiresAt.UTC().Format("15:04"))

	return m.Send(ctx, email, subject, body, "otp")
}

func (m *Mailer) SendRegistrationConfirmed(ctx context.Context, email string, registrationID, scheduleID, amountCents int64) error {
	subject := "Registration confirmed"
	body := fmt.Sprintf(`Hello,

Your payment was approved and your seat is confirmed.

Registration: #%d
Schedule: #%d
Amount: %d.%02d

- FastPayment`, registrationID, scheduleID, amountCents/100, amountCents%100)

	return m.Send(ctx, email, subject, body, "registration_confirmed")
}
