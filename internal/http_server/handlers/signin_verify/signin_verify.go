package signinVerify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth"
	resp "github.com/hackers-pub/hackerspub-sub003/internal/lib/api/response"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/middleware/authn"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Code string `json:"code" validate:"required,max=64"`
}

type Response struct {
	resp.Response
	SessionID   string `json:"session_id"`
	AccessToken string `json:"access_token"`
}

type SigninCompleter interface {
	CompleteSignin(ctx context.Context, token, code string, meta models.SessionMeta) (models.Session, string, error)
}

// New godoc
// @Summary      Подтверждение входа
// @Description  Гасит challenge по token из пути и code из тела (один раз) и открывает сессию.
// @Description  Неверный код не расходует token. Отсутствующий и истекший token неразличимы.
// @Tags         sign
// @Accept       json
// @Produce      json
// @Param        token  path  string  true  "challenge token"
// @Success      200  {object}  Response
// @Failure      401  {object}  resp.Response
// @Router       /sign/in/{token} [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	completer SigninCompleter,
	sessionTTL time.Duration,
	secureCookie bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signinVerify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := chi.URLParam(r, "token")

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		s, accessToken, err := completer.CompleteSignin(ctx, token, req.Code, authn.Meta(r))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidChallenge) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid or expired token"))

				return
			}

			log.Error("failed to complete signin", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		authn.SetSessionCookie(w, s, sessionTTL, secureCookie)

		log.Info("User signed in successfully")

		ResponseOK(w, r, s.ID.String(), accessToken)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, sessionID, accessToken string) {
	render.JSON(w, r, Response{
		Response:    resp.OK(),
		SessionID:   sessionID,
		AccessToken: accessToken,
	})
}
