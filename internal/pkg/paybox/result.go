package paybox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ResultPayload represents the Paybox result callback (pg_result_url) data.
// Paybox sends data as form parameters, not JSON.
type ResultPayload struct {
	Result             int             // 1 = success, 0 = failure
	OrderID            string          // Local order identifier (pg_order_id)
	Amount             decimal.Decimal // Paid amount
	PaymentID          string          // Gateway-side payment identifier (pg_payment_id)
	FailureDescription string          // Gateway failure reason, if any
	Signature          string          // pg_sig to verify
}

// ParseAmount parses a Paybox amount string. The gateway may send the
// decimal separator as a comma.
func ParseAmount(raw string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// ParseResultForm parses form-encoded callback data into structured payload
func ParseResultForm(formValues map[string][]string) (*ResultPayload, error) {
	resultStr := getFirstValue(formValues, "pg_result")
	orderID := getFirstValue(formValues, "pg_order_id")
	amountStr := getFirstValue(formValues, "pg_amount")
	paymentID := getFirstValue(formValues, "pg_payment_id")

	if resultStr == "" {
		return nil, fmt.Errorf("pg_result is required")
	}
	if orderID == "" {
		return nil, fmt.Errorf("pg_order_id is required")
	}
	if amountStr == "" {
		return nil, fmt.Errorf("pg_amount is required")
	}
	if paymentID == "" {
		return nil, fmt.Errorf("pg_payment_id is required")
	}

	result, err := strconv.Atoi(resultStr)
	if err != nil {
		return nil, fmt.Errorf("invalid pg_result: %w", err)
	}

	amount, err := ParseAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid pg_amount: %w", err)
	}

	return &ResultPayload{
		Result:             result,
		OrderID:            orderID,
		Amount:             amount,
		PaymentID:          paymentID,
		FailureDescription: getFirstValue(formValues, "pg_failure_description"),
		Signature:          getFirstValue(formValues, "pg_sig"),
	}, nil
}

// VerifyResultSignature validates the pg_sig of a result callback.
// The base string uses the last segment of the callback path as the
// script name, e.g. "result" for /api/v1/payments/paybox/result.
func VerifyResultSignature(script string, formValues map[string][]string, secret string) bool {
	received := getFirstValue(formValues, "pg_sig")
	if received == "" || secret == "" {
		return false
	}

	params := make(map[string]string, len(formValues))
	for k, v := range formValues {
		if len(v) == 0 {
			continue
		}
		params[k] = v[0]
	}
	expected := SignParams(script, params, secret)
	return VerifySignature(expected, received)
}

// getFirstValue extracts the first value from form values (case-insensitive lookup)
func getFirstValue(values map[string][]string, key string) string {
	for k, v := range values {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
