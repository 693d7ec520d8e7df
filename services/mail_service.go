// services/mail_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// ErrDeliveryFailure wraps any failure to hand the OTP email to the mail
// relay. Callers keep the stored OTP when this happens; the user can retry
// via resend.
var ErrDeliveryFailure = errors.New("otp delivery failure")

// Mailer delivers verification codes to account holders.
type Mailer interface {
	SendOTPEmail(name, email, otp string) error
}

// SMTPMailer sends OTP emails through an SMTP relay using gomail.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailer builds a mailer from SMTP_* environment variables.
func NewSMTPMailer() (*SMTPMailer, error) {
	host := os.Getenv("SMTP_HOST")
	portStr := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("FROM_EMAIL")

	if host == "" || portStr == "" || user == "" || pass == "" || from == "" {
		return nil, fmt.Errorf("missing SMTP configuration")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port: %v", err)
	}

	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}, nil
}

// SendOTPEmail delivers the verification code to the user's email address.
func (m *SMTPMailer) SendOTPEmail(name, email, otp string) error {
	subject := "Your verification code"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Verify Your Email</h2>
			<p>Hello %s,</p>
			<p>Please use the following code to verify your account:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 10 minutes.</p>
			<p>If you did not request this code, please ignore this email.</p>
		</body>
		</html>
	`, name, otp)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return nil
}
