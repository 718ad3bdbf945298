package accountdelivery

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/accountnumber"
)

// ValidAccountType validates whether the account type is supported.
var ValidAccountType validator.Func = func(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(string); ok {
		return domain.AccountType(t).Valid()
	}
	return false
}

// ValidAccountNumber validates whether the field is a well formed account number.
var ValidAccountNumber validator.Func = func(fl validator.FieldLevel) bool {
	if n, ok := fl.Field().Interface().(string); ok {
		return accountnumber.Valid(n)
	}
	return false
}

// ValidDecimal validates whether the field is a decimal number written as a string.
var ValidDecimal validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		_, err := decimal.NewFromString(s)
		return err == nil
	}
	return false
}

// RegisterValidations registers the account_type, account_number and decimal tags.
func RegisterValidations(v *validator.Validate) error {
	validations := map[string]validator.Func{
		"account_type":   ValidAccountType,
		"account_number": ValidAccountNumber,
		"decimal":        ValidDecimal,
	}

	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return nil
}
