package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/ledger"
)

// Entitlement caps of the zero-cost fallback tariff
const (
	defaultCarBrandsCount   = 1
	defaultCommonPartsCount = 1
)

// Ledger is the balance/audit surface the tariff engine drives
type Ledger interface {
	GetBalance(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal, kind ledger.TransactionKind, description string) (*ledger.Transaction, error)
	MarkTransaction(ctx context.Context, id uuid.UUID, success bool) error
}

// Notifier delivers tariff lifecycle notifications; failures are the
// notifier's business, not the engine's
type Notifier interface {
	NotifyTariff(ctx context.Context, userID uuid.UUID, title, message string, tariffID uuid.UUID)
}

type Service struct {
	repo         Repository
	businesses   BusinessStore
	ledger       Ledger
	notifier     Notifier
	defaultTitle string
}

func NewService(repo Repository, businesses BusinessStore, ledgerSvc Ledger, notifier Notifier, defaultTitle string) *Service {
	return &Service{
		repo:         repo,
		businesses:   businesses,
		ledger:       ledgerSvc,
		notifier:     notifier,
		defaultTitle: defaultTitle,
	}
}

func (s *Service) List(ctx context.Context) ([]*Tariff, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return s.repo.GetByID(ctx, id)
}

// CurrentTariffID returns the business's current tariff, nil when none
// selected yet
func (s *Service) CurrentTariffID(ctx context.Context, businessID uuid.UUID) (*uuid.UUID, error) {
	tariffID, _, err := s.businesses.GetAssignment(ctx, businessID)
	return tariffID, err
}

func tariffDescription(t *Tariff) string {
	return fmt.Sprintf("Оплата за тариф: %s - %s сом", t.Title, t.Price)
}

func endDayFor(t *Tariff, from time.Time) *time.Time {
	if t.IsFree() {
		return nil
	}
	end := from.AddDate(0, 1, 0)
	return &end
}

// ChangeTariff switches a business to a new tariff: a pending audit
// entry first, then the debit, then the assignment. On insufficient
// funds the pending entry is flagged failed and the tariff stays as it
// was. Entitlement selections are truncated to the new caps, keeping
// the first N in stored order.
func (s *Service) ChangeTariff(ctx context.Context, businessID, newTariffID uuid.UUID) (*Tariff, error) {
	t, err := s.repo.GetByID(ctx, newTariffID)
	if err != nil {
		return nil, err
	}

	currentID, _, err := s.businesses.GetAssignment(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if currentID != nil && *currentID == t.ID {
		return nil, ErrSameTariff
	}

	pending, err := s.ledger.CreateTransaction(ctx, businessID, t.Price, ledger.TransactionKindWithdrawal, tariffDescription(t))
	if err != nil {
		return nil, err
	}

	if !t.IsFree() {
		if _, err := s.ledger.Debit(ctx, businessID, t.Price); err != nil {
			if markErr := s.ledger.MarkTransaction(ctx, pending.ID, false); markErr != nil {
				log.Error().Err(markErr).Str("transaction_id", pending.ID.String()).Msg("failed to flag transaction")
			}
			return nil, err
		}
	}

	if err := s.businesses.AssignTariff(ctx, businessID, t.ID, endDayFor(t, time.Now())); err != nil {
		return nil, err
	}
	if err := s.businesses.TruncateEntitlements(ctx, businessID, t.CarBrandsCount, t.CommonPartsCount); err != nil {
		return nil, err
	}
	if err := s.ledger.MarkTransaction(ctx, pending.ID, true); err != nil {
		return nil, err
	}

	log.Info().Str("business_id", businessID.String()).Str("tariff", t.Title).Msg("tariff changed")
	return t, nil
}

// EnsureDefault returns the zero-cost fallback tariff, creating it on
// first use
func (s *Service) EnsureDefault(ctx context.Context) (*Tariff, error) {
	return s.repo.GetOrCreateByTitle(ctx, s.defaultTitle, decimal.Zero, defaultCarBrandsCount, defaultCommonPartsCount)
}

// AssignDefault puts a business on the fallback tariff with no end day
func (s *Service) AssignDefault(ctx context.Context, businessID uuid.UUID) (*Tariff, error) {
	t, err := s.EnsureDefault(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.businesses.AssignTariff(ctx, businessID, t.ID, nil); err != nil {
		return nil, err
	}
	if err := s.businesses.TruncateEntitlements(ctx, businessID, t.CarBrandsCount, t.CommonPartsCount); err != nil {
		return nil, err
	}
	return t, nil
}

// RenewalSweep processes every business whose paid period ends today:
// debit and advance the end day by one month, or downgrade to the
// default tariff when the balance is short. Re-running the sweep is
// safe: processed businesses no longer match the day filter.
func (s *Service) RenewalSweep(ctx context.Context, today time.Time) error {
	due, err := s.businesses.ListWithEndDay(ctx, today)
	if err != nil {
		return err
	}

	for _, b := range due {
		if err := s.renewOrDowngrade(ctx, b, today); err != nil {
			log.Error().Err(err).Str("business_id", b.ID.String()).Msg("tariff renewal failed")
		}
	}
	return nil
}

func (s *Service) renewOrDowngrade(ctx context.Context, b *DueBusiness, today time.Time) error {
	t, err := s.repo.GetByID(ctx, b.TariffID)
	if err != nil {
		return err
	}

	pending, err := s.ledger.CreateTransaction(ctx, b.ID, t.Price, ledger.TransactionKindWithdrawal, tariffDescription(t))
	if err != nil {
		return err
	}

	current := t
	_, debitErr := s.ledger.Debit(ctx, b.ID, t.Price)
	switch {
	case debitErr == nil:
		if err := s.businesses.AssignTariff(ctx, b.ID, t.ID, endDayFor(t, today)); err != nil {
			return err
		}
		if err := s.ledger.MarkTransaction(ctx, pending.ID, true); err != nil {
			return err
		}
	case errors.Is(debitErr, ledger.ErrInsufficientFunds):
		current, err = s.AssignDefault(ctx, b.ID)
		if err != nil {
			return err
		}
		if err := s.ledger.MarkTransaction(ctx, pending.ID, false); err != nil {
			return err
		}
	default:
		return debitErr
	}

	balance, err := s.ledger.GetBalance(ctx, b.ID)
	if err != nil {
		return err
	}
	s.notifier.NotifyTariff(ctx, b.UserID,
		"Ваш тариф обновлён",
		fmt.Sprintf("Ваш тариф обновлен. Ваш текущий тариф - %q. Ваш текущий баланс - %q", current.Title, balance),
		current.ID,
	)
	return nil
}

// ExpiringSweep notifies businesses whose paid tariff ends in three
// days. No balance or assignment changes here.
func (s *Service) ExpiringSweep(ctx context.Context, today time.Time) error {
	expiringDay := today.AddDate(0, 0, 3)
	due, err := s.businesses.ListWithEndDay(ctx, expiringDay)
	if err != nil {
		return err
	}

	for _, b := range due {
		t, err := s.repo.GetByID(ctx, b.TariffID)
		if err != nil {
			log.Error().Err(err).Str("business_id", b.ID.String()).Msg("expiring notification failed")
			continue
		}
		if t.IsFree() {
			continue
		}
		s.notifier.NotifyTariff(ctx, b.UserID,
			"Ваш тариф скоро закончится",
			fmt.Sprintf("Ваш тариф %q закончится через 3 дня (%s). Не забудьте пополнить баланс", t.Title, expiringDay.Format("02.01.2006")),
			t.ID,
		)
	}
	return nil
}
