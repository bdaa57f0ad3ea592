package goals

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a record against its struct tags. Store adapters call it on
// every mapped row so aggregation code never sees malformed shapes.
func Validate(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}

	first := fieldErrs[0]
	return &ValidationError{
		Field:  strings.ToLower(first.Field()),
		Reason: strings.Join(reasons, "; "),
	}
}
