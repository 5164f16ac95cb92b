package service

import (
	"errors"
	"fmt"

	"mailspot/pkg/payment"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrSpotUnavailable    = errors.New("one or more spots are no longer available")
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrMailingHasSales    = errors.New("mailing has sold or reserved spots")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPaymentProvider    = errors.New("payment provider error")
	ErrInvalidSignature   = payment.ErrInvalidSignature
)

// invalidf 构造参数校验错误
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
