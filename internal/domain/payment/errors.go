package payment

import "errors"

var (
	ErrOrderNotFound      = errors.New("paybox order not found")
	ErrDuplicatePayment   = errors.New("paybox payment already processed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
