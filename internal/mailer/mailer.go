package mailer

import (
	"fmt"

	gomail "gopkg.in/mail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func New(host string, port int, username, password string) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     username,
	}
}

func (m *Mailer) SendOTP(to, otp string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "OTP for Password Reset")
	msg.SetBody("text/plain", fmt.Sprintf("Your OTP is %s. It will expire in 10 minutes.", otp))

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: cannot send OTP: %w", err)
	}
	return nil
}
