package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cira/cira-backend/pkg/config"
)

// SMTPMailer sends html mail over plain-auth SMTP. One instance is
// constructed at startup and reused for every send.
type SMTPMailer struct {
	addr     string
	host     string
	auth     smtp.Auth
	fromName string
	fromAddr string
}

func NewSMTPMailer(cfg *config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		addr:     cfg.Addr(),
		host:     cfg.Host,
		auth:     smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		fromName: cfg.FromName,
		fromAddr: cfg.FromAddr,
	}
}

func (m *SMTPMailer) SendOTPEmail(ctx context.Context, to, otp string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; max-width: 600px; margin: 0 auto;">
			<h2>Cira Authentication</h2>
			<p>Your OTP for login is: %s. This code will expire in 10 minutes.</p>
			<div style="background-color: #f4f4f4; padding: 15px; text-align: center;">
				<h1 style="letter-spacing: 5px;">%s</h1>
			</div>
			<p>If you didn't request this, please ignore this email.</p>
		</div>`, otp, otp)

	return m.send(to, "Your Login OTP", body)
}

func (m *SMTPMailer) SendResetEmail(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; max-width: 600px; margin: 0 auto;">
			<h2>Cira Password Reset</h2>
			<p>Use the link below to reset your password. It expires in 15 minutes.</p>
			<p><a href="%s">Reset Password</a></p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>`, link)

	return m.send(to, "Password Reset", body)
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	fromHeader := fmt.Sprintf("%s <%s>", m.fromName, m.fromAddr)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.fromAddr, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}
