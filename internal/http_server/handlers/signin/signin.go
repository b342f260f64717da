package signin

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required,max=255"`
}

type Response struct {
	resp.Response
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type SigninRequester interface {
	RequestSignin(ctx context.Context, usernameOrEmail, verifyURL string) (models.SigninToken, error)
}

// New godoc
// @Summary      Запрос входа без пароля
// @Description  Ищет аккаунт по email или username, выпускает challenge (token + code)
// @Description  и отправляет ссылку на подтвержденные email аккаунта.
// @Description  В ответе только token: код приходит только в письме.
// @Tags         sign
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      404  {object}  resp.Response
// @Router       /sign/in [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	requester SigninRequester,
	verifyURL string,
	tokenTTL time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signin.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		token, err := requester.RequestSignin(ctx, req.UsernameOrEmail, verifyURL)
		if err != nil {
			if errors.Is(err, auth.ErrAccountNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("account not found"))

				return
			}

			log.Error("failed to request signin", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		ResponseOK(w, r, token.Token.String(), token.Created.Add(tokenTTL))
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Token:    token,
		Expires:  expires,
	})
}
