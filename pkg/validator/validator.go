package validator

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted by the dateonly tag
const DateLayout = "2006-01-02"

// Register adds the custom tags used by request bindings:
//
//	dateonly    string in YYYY-MM-DD form
//	decimalgt0  decimal.Decimal (or numeric string) strictly greater than zero
//	decimalgte0 decimal.Decimal (or numeric string) not below zero
//
// decimal.Decimal fields are validated through their string form.
func Register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})

	validations := map[string]validator.Func{
		"dateonly":    isDateOnly,
		"decimalgt0":  decimalCompare(func(d decimal.Decimal) bool { return d.IsPositive() }),
		"decimalgte0": decimalCompare(func(d decimal.Decimal) bool { return !d.IsNegative() }),
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// New returns a validator with the custom tags registered
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		return d.String()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.String()
	}
	return nil
}

func isDateOnly(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func decimalCompare(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		d, err := decimal.NewFromString(field.String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}
