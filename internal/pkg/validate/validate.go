package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance for the request DTOs (register, confirm,
// sign-in, change-password). Handlers call Struct before any domain logic
// runs, so a request that reaches a service already has its tags satisfied.
var v = validator.New()

// Struct checks s against its validate tags and flattens all violations into
// one readable error, suitable for the response body as-is.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
