package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type repoStub struct {
	balances     map[uuid.UUID]decimal.Decimal
	transactions []*Transaction
	marked       map[uuid.UUID]bool
}

func newRepoStub() *repoStub {
	return &repoStub{
		balances: make(map[uuid.UUID]decimal.Decimal),
		marked:   make(map[uuid.UUID]bool),
	}
}

func (r *repoStub) GetBalance(_ context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	balance, ok := r.balances[businessID]
	if !ok {
		return decimal.Zero, ErrBusinessNotFound
	}
	return balance, nil
}

func (r *repoStub) Credit(_ context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, ok := r.balances[businessID]
	if !ok {
		return decimal.Zero, ErrBusinessNotFound
	}
	r.balances[businessID] = balance.Add(amount)
	return r.balances[businessID], nil
}

func (r *repoStub) Debit(_ context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, ok := r.balances[businessID]
	if !ok {
		return decimal.Zero, ErrBusinessNotFound
	}
	if amount.GreaterThan(balance) {
		return decimal.Zero, ErrInsufficientFunds
	}
	r.balances[businessID] = balance.Sub(amount)
	return r.balances[businessID], nil
}

func (r *repoStub) SetBalance(_ context.Context, businessID uuid.UUID, balance decimal.Decimal) (decimal.Decimal, error) {
	previous, ok := r.balances[businessID]
	if !ok {
		return decimal.Zero, ErrBusinessNotFound
	}
	r.balances[businessID] = balance
	return previous, nil
}

func (r *repoStub) CreateTransaction(_ context.Context, t *Transaction) error {
	r.transactions = append(r.transactions, t)
	return nil
}

func (r *repoStub) SetTransactionSuccess(_ context.Context, id uuid.UUID, success bool) error {
	r.marked[id] = success
	return nil
}

func (r *repoStub) ListTransactions(context.Context, uuid.UUID, int, int) ([]*Transaction, error) {
	return r.transactions, nil
}

func TestDebitCreditRoundTrip(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	businessID := uuid.New()
	repo.balances[businessID] = decimal.NewFromInt(200)

	amount := decimal.NewFromInt(150)
	if _, err := svc.Debit(context.Background(), businessID, amount); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if _, err := svc.Credit(context.Background(), businessID, amount); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	balance, err := svc.GetBalance(context.Background(), businessID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected balance 200 after round trip, got %s", balance)
	}
}

func TestDebitInsufficientLeavesBalanceUnchanged(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	businessID := uuid.New()
	repo.balances[businessID] = decimal.NewFromInt(100)

	_, err := svc.Debit(context.Background(), businessID, decimal.NewFromInt(150))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := svc.GetBalance(context.Background(), businessID)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance unchanged at 100, got %s", balance)
	}
}

func TestInvalidAmounts(t *testing.T) {
	svc := NewService(newRepoStub())
	businessID := uuid.New()

	if _, err := svc.Credit(context.Background(), businessID, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero credit, got %v", err)
	}
	if _, err := svc.Debit(context.Background(), businessID, decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative debit, got %v", err)
	}
}

func TestAdjustBalanceManuallyWritesAudit(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	businessID := uuid.New()
	actorID := uuid.New()
	repo.balances[businessID] = decimal.NewFromInt(50)

	tr, err := svc.AdjustBalanceManually(context.Background(), businessID, decimal.NewFromInt(120), actorID)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if tr.Kind != TransactionKindDeposit {
		t.Errorf("expected deposit kind, got %s", tr.Kind)
	}
	if !tr.Amount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected delta 70, got %s", tr.Amount)
	}
	if !tr.Success {
		t.Error("expected manual adjustment transaction to be marked success")
	}

	balance, _ := svc.GetBalance(context.Background(), businessID)
	if !balance.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected balance 120, got %s", balance)
	}

	tr, err = svc.AdjustBalanceManually(context.Background(), businessID, decimal.NewFromInt(20), actorID)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if tr.Kind != TransactionKindWithdrawal {
		t.Errorf("expected withdrawal kind for downward adjust, got %s", tr.Kind)
	}
	if !tr.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected delta 100, got %s", tr.Amount)
	}
}
