package authn

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth"
	resp "github.com/hackers-pub/hackerspub-sub003/internal/lib/api/response"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const CookieName = "session"

type ctxKey struct{}

type SessionProvider interface {
	Authenticate(ctx context.Context, accessToken string) (models.Session, error)
	Session(ctx context.Context, id uuid.UUID) (models.Session, error)
}

// * New пропускает запрос дальше только с живой сессией:
// Bearer access токен или cookie session
func New(log *slog.Logger, sessions SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := resolve(r, sessions)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidSession) {
					log.Error("failed to resolve session", sl.Err(err))

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, resp.Error("Internal error"))

					return
				}

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("unauthorized"))

				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
		})
	}
}

func resolve(r *http.Request, sessions SessionProvider) (models.Session, error) {
	if token, ok := BearerToken(r); ok {
		return sessions.Authenticate(r.Context(), token)
	}

	id, ok := SessionCookie(r)
	if !ok {
		return models.Session{}, auth.ErrInvalidSession
	}

	return sessions.Session(r.Context(), id)
}

func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

func SessionCookie(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func FromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(models.Session)
	return s, ok
}

func SetSessionCookie(w http.ResponseWriter, s models.Session, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID.String(),
		Path:     "/",
		Expires:  s.Created.Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func Meta(r *http.Request) models.SessionMeta {
	return models.SessionMeta{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r.RemoteAddr),
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}
