// internal/api/handler/validation.go
package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/util"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

// initValidator registers the money tags used by request bodies.
func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())
	vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := vld.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && value.IsPositive()
	}); err != nil {
		return nil, fmt.Errorf("failed to register 'positive_decimal': %w", err)
	}

	if err := vld.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && domain.ValidAmount(value)
	}); err != nil {
		return nil, fmt.Errorf("failed to register 'cents': %w", err)
	}

	return vld, nil
}

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// validateRequest checks payload against its struct tags. Failures wrap util.ErrInvalidInput.
func validateRequest(payload any) error {
	vld, err := getValidator()
	if err != nil {
		return err
	}
	if err := vld.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return fmt.Errorf("%w: %s", util.ErrInvalidInput, describe(validationErrors[0]))
		}
		return fmt.Errorf("%w: %s", util.ErrInvalidInput, err.Error())
	}
	return nil
}

// describe turns a field error into a client-facing sentence.
func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "positive_decimal":
		return fmt.Sprintf("%s must be a positive number", field)
	case "cents":
		return fmt.Sprintf("%s must have at most %d decimal places and not exceed %s",
			field, domain.AmountScale, domain.FormatAmount(domain.MaxAmount))
	default:
		return fmt.Sprintf("%s failed on '%s'", field, fe.Tag())
	}
}
