package verification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hackers-pub/hackerspub-sub003/internal/models"
)

const (
	tokenPlaceholder = "{token}"
	codePlaceholder  = "{code}"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

var subjects = map[string]string{
	models.PurposeSignup: "You are invited to Hackers' Pub",
	models.PurposeSignin: "Sign in to Hackers' Pub",
}

// * BuildURL подставляет token в путь шаблона и code в query.
// Если в шаблоне нет {code}, код добавляется как ?code=...
func BuildURL(template, token, code string) string {
	link := strings.ReplaceAll(template, tokenPlaceholder, url.PathEscape(token))

	if strings.Contains(link, codePlaceholder) {
		return strings.ReplaceAll(link, codePlaceholder, url.QueryEscape(code))
	}

	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}

	return link + sep + "code=" + url.QueryEscape(code)
}

// * SendChallenge публикует письмо со ссылкой и кодом в очередь
func SendChallenge(
	ctx context.Context,
	log *slog.Logger,
	pub Publisher,
	purpose, email, link, code string,
) error {
	const op = "verification.SendChallenge"

	msg := models.Message{
		Email:   email,
		Subject: subjects[purpose],
		Link:    link,
		Code:    code,
		Purpose: purpose,
	}

	if err := pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send challenge link", slog.String("op", op), slog.Any("err", err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
