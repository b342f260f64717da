package signup

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
	Code     string `json:"code" validate:"required,max=64"`
	Username string `json:"username" validate:"required,username"`
	Name     string `json:"name" validate:"required,max=50"`
	Bio      string `json:"bio" validate:"max=512"`
}

type Response struct {
	resp.Response
	Account   models.Account `json:"account"`
	SessionID string         `json:"session_id"`
}

type SignupCompleter interface {
	CompleteSignup(
		ctx context.Context,
		token, code string,
		fields models.NewAccount,
		meta models.SessionMeta,
	) (models.Account, models.Session, error)
}

// New godoc
// @Summary      Регистрация по приглашению
// @Description  Гасит приглашение (token из пути, code из тела), создает аккаунт
// @Description  вместе с первым email в одной транзакции и открывает сессию.
// @Description  Занятый username или email отклоняется до погашения приглашения.
// @Tags         sign
// @Accept       json
// @Produce      json
// @Param        token  path  string  true  "signup token"
// @Success      201  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      404  {object}  resp.Response
// @Failure      409  {object}  resp.Response
// @Router       /sign/up/{token} [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	completer SignupCompleter,
	sessionTTL time.Duration,
	secureCookie bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.New"

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

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		account, s, err := completer.CompleteSignup(ctx, token, req.Code, models.NewAccount{
			Username: req.Username,
			Name:     req.Name,
			Bio:      req.Bio,
		}, authn.Meta(r))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidChallenge):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("invalid or expired token"))
			case errors.Is(err, auth.ErrUsernameTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("username already taken"))
			case errors.Is(err, auth.ErrEmailTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("email already registered"))
			default:
				log.Error("failed to complete signup", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		authn.SetSessionCookie(w, s, sessionTTL, secureCookie)

		log.Info("account signed up", slog.String("account_id", account.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:  resp.OK(),
			Account:   account,
			SessionID: s.ID.String(),
		})
	}
}
