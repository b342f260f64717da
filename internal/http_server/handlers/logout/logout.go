package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/hackers-pub/hackerspub-sub003/internal/lib/api/response"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/middleware/authn"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	resp.Response
}

type SessionTerminator interface {
	Authenticate(ctx context.Context, accessToken string) (models.Session, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
}

// New godoc
// @Summary      Выход из системы
// @Description  Удаляет сессию из cookie или из Bearer access токена.
// @Description  Повторный выход и выход без сессии не являются ошибкой.
// @Tags         sign
// @Produce      json
// @Success      200  {object}  Response
// @Failure      500  {object}  resp.Response
// @Router       /sign/out [post]
func New(
	log *slog.Logger,
	terminator SessionTerminator,
	secureCookie bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, ok := authn.SessionCookie(r)
		if !ok {
			if token, hasBearer := authn.BearerToken(r); hasBearer {
				if s, err := terminator.Authenticate(ctx, token); err == nil {
					id, ok = s.ID, true
				}
			}
		}

		authn.ClearSessionCookie(w, secureCookie)

		if ok {
			if err := terminator.Logout(ctx, id); err != nil {
				log.Error("failed to logout user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))

				return
			}
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
