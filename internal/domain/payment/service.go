package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/business"
	"github.com/avtoline/avtoline-api/internal/domain/ledger"
	"github.com/avtoline/avtoline-api/internal/pkg/paybox"
)

const topUpDescription = "Пополнение баланса через Paybox"

type Gateway interface {
	InitPayment(ctx context.Context, req paybox.InitPaymentRequest) (*paybox.InitPaymentResponse, error)
}

type Ledger interface {
	Credit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal, kind ledger.TransactionKind, description string) (*ledger.Transaction, error)
	MarkTransaction(ctx context.Context, id uuid.UUID, success bool) error
}

type Businesses interface {
	GetByID(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

type Service struct {
	repo       Repository
	gateway    Gateway
	ledger     Ledger
	businesses Businesses
}

func NewService(repo Repository, gateway Gateway, ldg Ledger, businesses Businesses) *Service {
	return &Service{repo: repo, gateway: gateway, ledger: ldg, businesses: businesses}
}

// CreateOrder registers a top-up order with the gateway. An order never
// survives without a redirect URL: when the gateway reports failure the
// row is removed and the creation fails as a whole.
func (s *Service) CreateOrder(ctx context.Context, businessID uuid.UUID) (*Order, error) {
	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &Order{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Status:      StatusInit,
		Description: "Пополнение баланса бизнеса: " + b.Title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	resp, err := s.gateway.InitPayment(ctx, paybox.InitPaymentRequest{
		OrderID:     order.ID.String(),
		Description: order.Description,
		UserID:      b.UserID.String(),
	})
	if err != nil || !resp.Success || resp.RedirectURL == "" {
		if err != nil {
			log.Error().Err(err).Str("order_id", order.ID.String()).Msg("paybox init failed")
		} else {
			log.Error().Str("order_id", order.ID.String()).Str("gateway_error", resp.ErrorText).Msg("paybox rejected init")
		}
		if delErr := s.repo.DeleteOrder(ctx, order.ID); delErr != nil {
			log.Error().Err(delErr).Str("order_id", order.ID.String()).Msg("failed to remove dead paybox order")
		}
		return nil, ErrGatewayUnavailable
	}

	order.RedirectURL = &resp.RedirectURL
	order.UpdatedAt = time.Now()
	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID.String()).Str("business_id", businessID.String()).Msg("paybox order created")
	return order, nil
}

// HandleResult processes the gateway's server-to-server callback. The
// gateway payment id is recorded first; a replayed callback trips the
// unique constraint and returns ErrDuplicatePayment, which callers must
// answer with a benign acknowledgment. Only a first-time success
// credits the balance.
func (s *Service) HandleResult(ctx context.Context, payload *paybox.ResultPayload) error {
	if err := s.repo.RecordPayment(ctx, payload.PaymentID); err != nil {
		return err
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return ErrOrderNotFound
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	order.Amount = decimal.NewNullDecimal(payload.Amount)
	order.PayboxPaymentID = &payload.PaymentID
	order.UpdatedAt = time.Now()

	if payload.Result == 1 {
		order.Status = StatusSuccess
		tx, err := s.ledger.CreateTransaction(ctx, order.BusinessID, payload.Amount, ledger.TransactionKindDeposit, topUpDescription)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, order.BusinessID, payload.Amount); err != nil {
			return err
		}
		if err := s.ledger.MarkTransaction(ctx, tx.ID, true); err != nil {
			return err
		}
		log.Info().
			Str("order_id", order.ID.String()).
			Str("business_id", order.BusinessID.String()).
			Str("amount", payload.Amount.String()).
			Msg("paybox payment succeeded")
	} else {
		order.Status = StatusFailed
		if payload.FailureDescription != "" {
			order.Description += "\nОшибка: " + payload.FailureDescription
		}
		log.Warn().
			Str("order_id", order.ID.String()).
			Str("reason", payload.FailureDescription).
			Msg("paybox payment failed")
	}

	return s.repo.UpdateOrder(ctx, order)
}
