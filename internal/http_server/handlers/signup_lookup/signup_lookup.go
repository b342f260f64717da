package signupLookup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth"
	resp "github.com/hackers-pub/hackerspub-sub003/internal/lib/api/response"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Email string `json:"email"`
}

type SignupInspector interface {
	InspectSignup(ctx context.Context, token, code string) (models.SignupToken, error)
}

func New(log *slog.Logger, inspector SignupInspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signupLookup.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := chi.URLParam(r, "token")
		code := r.URL.Query().Get("code")
		if code == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing code"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		t, err := inspector.InspectSignup(ctx, token, code)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidChallenge) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("invalid or expired token"))

				return
			}

			log.Error("failed to inspect signup token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Email:    t.Email,
		})
	}
}
