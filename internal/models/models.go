package models

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	PurposeSignup = "signup"
	PurposeSignin = "signin"
)

// * SignupToken - приглашение на регистрацию, живет в key-value хранилище
type SignupToken struct {
	Email   string    `json:"email"`
	Token   uuid.UUID `json:"token"`
	Code    string    `json:"code"`
	Created time.Time `json:"created"`
}

func (t SignupToken) ChallengeCode() string { return t.Code }

func (t SignupToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", t.Email),
		slog.String("token", t.Token.String()),
		slog.String("code", t.Code),
		slog.Time("created", t.Created),
	)
}

// * SigninToken - challenge для входа без пароля, привязан к существующему аккаунту
type SigninToken struct {
	AccountID uuid.UUID `json:"accountId"`
	Token     uuid.UUID `json:"token"`
	Code      string    `json:"code"`
	Created   time.Time `json:"created"`
}

func (t SigninToken) ChallengeCode() string { return t.Code }

func (t SigninToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account_id", t.AccountID.String()),
		slog.String("token", t.Token.String()),
		slog.String("code", t.Code),
		slog.Time("created", t.Created),
	)
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Created   time.Time `json:"created"`
}

// * SessionMeta - данные клиента, сохраняемые вместе с сессией
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

type Account struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Bio      string    `json:"bio"`
	Updated  time.Time `json:"updated"`
	Created  time.Time `json:"created"`
}

type AccountEmail struct {
	Email     string     `json:"email"`
	AccountID uuid.UUID  `json:"accountId"`
	Public    bool       `json:"public"`
	Verified  *time.Time `json:"verified,omitempty"`
	Created   time.Time  `json:"created"`
}

// * NewAccount - поля нового аккаунта; ID опционален (по умолчанию UUIDv7)
type NewAccount struct {
	ID       *uuid.UUID
	Username string
	Name     string
	Bio      string
}

// * Message - письмо, отправляемое через очередь в email_sender
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Link    string `json:"link"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}
