package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// sitename matches the restriction on tenant short names: letters, digits,
// spaces, and hyphens.
var siteNameRegex = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)

func init() {
	validate.RegisterValidation("sitename", func(fl validator.FieldLevel) bool {
		return siteNameRegex.MatchString(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
