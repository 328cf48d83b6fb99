package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// registerCustomRules добавляет доменные правила валидации.
func registerCustomRules(v *validator.Validate) {
	// slug: нормализованный идентификатор продукта в URL и каталоге
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
}
