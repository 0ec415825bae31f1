package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Service applies balance mutations. Transaction bookkeeping is left to
// the caller so the "intended vs. actual" audit semantics stay explicit:
// write the pending entry, attempt the mutation, then flag the entry.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, businessID)
}

// Credit increases the business balance. Never fails on business-rule
// grounds, only on infrastructure failure.
func (s *Service) Credit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	balance, err := s.repo.Credit(ctx, businessID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	log.Info().Str("business_id", businessID.String()).Str("amount", amount.String()).Str("balance", balance.String()).Msg("balance credited")
	return balance, nil
}

// Debit decreases the business balance, failing with
// ErrInsufficientFunds when amount exceeds it. Balance is untouched on
// failure.
func (s *Service) Debit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	balance, err := s.repo.Debit(ctx, businessID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	log.Info().Str("business_id", businessID.String()).Str("amount", amount.String()).Str("balance", balance.String()).Msg("balance debited")
	return balance, nil
}

// CreateTransaction writes a pending audit entry (success=false)
func (s *Service) CreateTransaction(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal, kind TransactionKind, description string) (*Transaction, error) {
	t := &Transaction{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Amount:      amount,
		Kind:        kind,
		Success:     false,
		Description: description,
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// MarkTransaction flags an audit entry with the mutation outcome
func (s *Service) MarkTransaction(ctx context.Context, id uuid.UUID, success bool) error {
	return s.repo.SetTransactionSuccess(ctx, id, success)
}

func (s *Service) ListTransactions(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, businessID, limit, offset)
}

// AdjustBalanceManually sets the balance to an explicit value on behalf
// of a staff actor, writing the delta to the audit log through the same
// lock as API-level mutations.
func (s *Service) AdjustBalanceManually(ctx context.Context, businessID uuid.UUID, newBalance decimal.Decimal, actorID uuid.UUID) (*Transaction, error) {
	if newBalance.LessThan(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	previous, err := s.repo.SetBalance(ctx, businessID, newBalance)
	if err != nil {
		return nil, err
	}

	delta := newBalance.Sub(previous)
	kind := TransactionKindDeposit
	if delta.LessThan(decimal.Zero) {
		kind = TransactionKindWithdrawal
	}

	t := &Transaction{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Amount:      delta.Abs(),
		Kind:        kind,
		Success:     true,
		Description: "Manual balance adjustment by " + actorID.String(),
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("actor_id", actorID.String()).
		Str("previous", previous.String()).
		Str("balance", newBalance.String()).
		Msg("balance adjusted manually")
	return t, nil
}
