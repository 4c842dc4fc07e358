package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/healthmate-sync/internal/domain"
)

// v is the package-level singleton validator. Custom registrations must
// happen in init() before the first call to Struct.
var v = validator.New()

// Struct validates s using its validate tags. A failure wraps
// domain.ErrBadRequest and lists every failing field.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrBadRequest)
}
