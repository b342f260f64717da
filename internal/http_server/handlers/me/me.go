package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth"
	resp "github.com/hackers-pub/hackerspub-sub003/internal/lib/api/response"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/middleware/authn"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Account models.Account `json:"account"`
}

type AccountResolver interface {
	SessionAccount(ctx context.Context, s models.Session) (models.Account, error)
}

func New(log *slog.Logger, resolver AccountResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		account, err := resolver.SessionAccount(r.Context(), s)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("unauthorized"))

				return
			}

			log.Error("failed to load account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Account:  account,
		})
	}
}
