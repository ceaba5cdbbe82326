package enrollment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lanes-app/lanes/core"
)

var (
	statusTag  = "progress_status"
	statusText = "status must be one of NOT_STARTED, IN_PROGRESS, COMPLETED"
)

// InitValidators registers the enrollment validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return core.ContainsString(Statuses, fl.Field().String())
}
