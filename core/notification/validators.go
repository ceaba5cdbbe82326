package notification

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lanes-app/lanes/core"
)

const pushTokenPrefix = "ExponentPushToken["

var (
	pushTokenTag  = "push_token"
	pushTokenText = "must be an Expo push token (ExponentPushToken[...])"
)

// InitValidators registers the notification validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pushTokenTag, pushTokenValidation)
	core.RegisterCustomTranslation(validate, translator, pushTokenTag, pushTokenText)
}

// pushTokenValidation accepts the tokens the push gateway can deliver to.
func pushTokenValidation(fl validator.FieldLevel) bool {
	token := fl.Field().String()
	return strings.HasPrefix(token, pushTokenPrefix) && strings.HasSuffix(token, "]") && len(token) > len(pushTokenPrefix)+1
}
