package mailer

import (
	"fmt"

	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *Mailer) Send(msg models.Message) error {
	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(m.Compose(msg))
}

// * Compose собирает письмо: ссылка плюс код для ручного ввода
func (m *Mailer) Compose(msg models.Message) *gomail.Message {
	from := m.From
	if from == "" {
		from = m.Username
	}

	out := gomail.NewMessage()
	out.SetHeader("To", msg.Email)
	out.SetHeader("From", from)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", body(msg))

	return out
}

func body(msg models.Message) string {
	switch msg.Purpose {
	case models.PurposeSignup:
		return fmt.Sprintf(
			"You have been invited to Hackers' Pub.\n\nOpen the following link to create your account:\n\n%s\n\nIf asked, enter this code on the signup page: %s\n\nThe invitation expires in 24 hours.\n",
			msg.Link, msg.Code,
		)
	case models.PurposeSignin:
		return fmt.Sprintf(
			"Open the following link to sign in to Hackers' Pub:\n\n%s\n\nor enter this code on the sign-in page: %s\n\nIf you did not request this, ignore this email.\n",
			msg.Link, msg.Code,
		)
	default:
		return msg.Link
	}
}
