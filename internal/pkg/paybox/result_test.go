package paybox

import "testing"

func TestParseAmount_CommaSeparator(t *testing.T) {
	amount, err := ParseAmount("1500,50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount.String() != "1500.5" {
		t.Fatalf("unexpected amount: %s", amount)
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	if _, err := ParseAmount("abc"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestParseResultForm(t *testing.T) {
	form := map[string][]string{
		"pg_result":              {"0"},
		"pg_order_id":            {"42"},
		"pg_amount":              {"300,00"},
		"pg_payment_id":          {"pbx-77"},
		"pg_failure_description": {"insufficient funds"},
		"pg_sig":                 {"deadbeef"},
	}

	payload, err := ParseResultForm(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Result != 0 {
		t.Errorf("expected result 0, got %d", payload.Result)
	}
	if payload.OrderID != "42" {
		t.Errorf("expected order 42, got %s", payload.OrderID)
	}
	if payload.Amount.String() != "300" {
		t.Errorf("expected amount 300, got %s", payload.Amount)
	}
	if payload.PaymentID != "pbx-77" {
		t.Errorf("expected payment pbx-77, got %s", payload.PaymentID)
	}
	if payload.FailureDescription != "insufficient funds" {
		t.Errorf("unexpected failure description: %s", payload.FailureDescription)
	}
}

func TestParseResultForm_MissingPaymentID(t *testing.T) {
	form := map[string][]string{
		"pg_result":   {"1"},
		"pg_order_id": {"42"},
		"pg_amount":   {"300.00"},
	}
	if _, err := ParseResultForm(form); err == nil {
		t.Fatal("expected error when pg_payment_id is missing")
	}
}
