package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/business"
	"github.com/avtoline/avtoline-api/internal/domain/ledger"
	"github.com/avtoline/avtoline-api/internal/pkg/paybox"
)

type repoStub struct {
	orders   map[uuid.UUID]*Order
	payments map[string]bool
}

func newRepoStub() *repoStub {
	return &repoStub{
		orders:   make(map[uuid.UUID]*Order),
		payments: make(map[string]bool),
	}
}

func (r *repoStub) CreateOrder(_ context.Context, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *repoStub) GetOrderByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *repoStub) UpdateOrder(_ context.Context, o *Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return ErrOrderNotFound
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *repoStub) DeleteOrder(_ context.Context, id uuid.UUID) error {
	delete(r.orders, id)
	return nil
}

func (r *repoStub) RecordPayment(_ context.Context, paymentID string) error {
	if r.payments[paymentID] {
		return ErrDuplicatePayment
	}
	r.payments[paymentID] = true
	return nil
}

type gatewayStub struct {
	fail    bool
	lastReq paybox.InitPaymentRequest
}

func (g *gatewayStub) InitPayment(_ context.Context, req paybox.InitPaymentRequest) (*paybox.InitPaymentResponse, error) {
	g.lastReq = req
	if g.fail {
		return &paybox.InitPaymentResponse{Success: false, ErrorText: "merchant is blocked"}, nil
	}
	return &paybox.InitPaymentResponse{Success: true, RedirectURL: "https://pay.example/redirect"}, nil
}

type ledgerStub struct {
	credits []decimal.Decimal
	marked  []uuid.UUID
}

func (l *ledgerStub) Credit(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	l.credits = append(l.credits, amount)
	return amount, nil
}

func (l *ledgerStub) CreateTransaction(_ context.Context, businessID uuid.UUID, amount decimal.Decimal, kind ledger.TransactionKind, description string) (*ledger.Transaction, error) {
	return &ledger.Transaction{ID: uuid.New(), BusinessID: businessID, Amount: amount, Kind: kind, Description: description}, nil
}

func (l *ledgerStub) MarkTransaction(_ context.Context, id uuid.UUID, success bool) error {
	if success {
		l.marked = append(l.marked, id)
	}
	return nil
}

type businessesStub struct {
	biz *business.Business
}

func (b *businessesStub) GetByID(_ context.Context, id uuid.UUID) (*business.Business, error) {
	if b.biz == nil || b.biz.ID != id {
		return nil, business.ErrNotFound
	}
	return b.biz, nil
}

func newService(gateway *gatewayStub) (*Service, *repoStub, *ledgerStub, *business.Business) {
	repo := newRepoStub()
	ldg := &ledgerStub{}
	biz := &business.Business{ID: uuid.New(), UserID: uuid.New(), Title: "АвтоМаг"}
	svc := NewService(repo, gateway, ldg, &businessesStub{biz: biz})
	return svc, repo, ldg, biz
}

func TestCreateOrderStoresRedirectURL(t *testing.T) {
	gateway := &gatewayStub{}
	svc, repo, _, biz := newService(gateway)

	order, err := svc.CreateOrder(context.Background(), biz.ID)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.RedirectURL == nil || *order.RedirectURL != "https://pay.example/redirect" {
		t.Errorf("redirect URL not stored: %v", order.RedirectURL)
	}
	if !strings.Contains(order.Description, biz.Title) {
		t.Errorf("description must name the business, got %q", order.Description)
	}
	if gateway.lastReq.OrderID != order.ID.String() {
		t.Errorf("gateway got order id %q, want %q", gateway.lastReq.OrderID, order.ID)
	}
	if _, ok := repo.orders[order.ID]; !ok {
		t.Error("order row missing after creation")
	}
}

func TestCreateOrderAbortsOnGatewayFailure(t *testing.T) {
	gateway := &gatewayStub{fail: true}
	svc, repo, _, biz := newService(gateway)

	_, err := svc.CreateOrder(context.Background(), biz.ID)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Error("no order may survive a failed gateway init")
	}
}

func payloadFor(order *Order) *paybox.ResultPayload {
	return &paybox.ResultPayload{
		Result:    1,
		OrderID:   order.ID.String(),
		Amount:    decimal.NewFromInt(5000),
		PaymentID: "987654",
	}
}

func TestHandleResultCreditsExactlyOnce(t *testing.T) {
	gateway := &gatewayStub{}
	svc, repo, ldg, biz := newService(gateway)
	order, err := svc.CreateOrder(context.Background(), biz.ID)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := svc.HandleResult(context.Background(), payloadFor(order)); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}
	if len(ldg.credits) != 1 || !ldg.credits[0].Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected one credit of 5000, got %v", ldg.credits)
	}
	stored := repo.orders[order.ID]
	if stored.Status != StatusSuccess {
		t.Errorf("order status = %s, want success", stored.Status)
	}
	if stored.PayboxPaymentID == nil || *stored.PayboxPaymentID != "987654" {
		t.Error("gateway payment id not recorded on the order")
	}

	// Replay of the same callback must be a no-op.
	err = svc.HandleResult(context.Background(), payloadFor(order))
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment on replay, got %v", err)
	}
	if len(ldg.credits) != 1 {
		t.Errorf("replay must not credit again, got %d credits", len(ldg.credits))
	}
}

func TestHandleResultFailureAppendsGatewayError(t *testing.T) {
	gateway := &gatewayStub{}
	svc, repo, ldg, biz := newService(gateway)
	order, err := svc.CreateOrder(context.Background(), biz.ID)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	payload := payloadFor(order)
	payload.Result = 0
	payload.FailureDescription = "Недостаточно средств"
	if err := svc.HandleResult(context.Background(), payload); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}

	stored := repo.orders[order.ID]
	if stored.Status != StatusFailed {
		t.Errorf("order status = %s, want failed", stored.Status)
	}
	if !strings.HasSuffix(stored.Description, "Ошибка: Недостаточно средств") {
		t.Errorf("gateway error not appended to description: %q", stored.Description)
	}
	if len(ldg.credits) != 0 {
		t.Error("failed payment must not credit the balance")
	}
}
