package invoice

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"courier/internal/reconciliation"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report json field names so errors line up with submitted payloads.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Amounts compare as numbers.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		validate = v
	})
	return validate
}

// validateInput checks the struct tags of an operator submission and converts
// any failures into field-level validation errors.
func validateInput(in interface{}) reconciliation.ValidationErrors {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return reconciliation.ValidationErrors{
			reconciliation.NewValidationError("", in, err.Error()),
		}
	}

	out := make(reconciliation.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, reconciliation.NewValidationError(fieldPath(fe), fe.Value(), validationMessage(fe)))
	}
	return out
}

// fieldPath drops the root struct name from the error namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "gtefield":
		return "Must not be before " + fe.Param()
	default:
		return "Invalid value"
	}
}
