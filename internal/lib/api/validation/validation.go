package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)

// * New возвращает валидатор с зарегистрированным тегом username
func New() *validator.Validate {
	v := validator.New()

	// регистрация статического тега не может упасть
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}
