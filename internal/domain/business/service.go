package business

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/tariff"
)

// TariffAssigner is the slice of the tariff engine business
// registration needs
type TariffAssigner interface {
	AssignDefault(ctx context.Context, businessID uuid.UUID) (*tariff.Tariff, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tariff.Tariff, error)
}

type Service struct {
	repo         Repository
	tariffs      TariffAssigner
	startBalance decimal.Decimal
}

func NewService(repo Repository, tariffs TariffAssigner, startBalance decimal.Decimal) *Service {
	return &Service{repo: repo, tariffs: tariffs, startBalance: startBalance}
}

// Create registers a business for a user. A previously deactivated
// business is reactivated instead of creating a new row; an active one
// is a validation error. First-time registration grants the start
// balance and the default tariff.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateBusinessRequest) (*Business, error) {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return nil, ErrAlreadyBusiness
		}
		if err := s.repo.SetActive(ctx, existing.ID, true); err != nil {
			return nil, err
		}
		if err := s.repo.SetUserBusinessFlag(ctx, userID, true); err != nil {
			return nil, err
		}
		existing.IsActive = true
		log.Info().Str("business_id", existing.ID.String()).Msg("business reactivated")
		return existing, nil
	}

	b := &Business{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             req.Title,
		Address:           req.Address,
		Telegram:          req.Telegram,
		Instagram:         req.Instagram,
		TikTok:            req.TikTok,
		WhatsApp:          req.WhatsApp,
		FirstPhoneNumber:  req.FirstPhoneNumber,
		SecondPhoneNumber: req.SecondPhoneNumber,
		ThirdPhoneNumber:  req.ThirdPhoneNumber,
		Balance:           s.startBalance,
		RequestsFilter:    FilterAllRequests,
		IsActive:          true,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if err := s.repo.SetUserBusinessFlag(ctx, userID, true); err != nil {
		return nil, err
	}

	t, err := s.tariffs.AssignDefault(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.TariffID = &t.ID

	log.Info().Str("business_id", b.ID.String()).Str("user_id", userID.String()).Msg("business registered")
	return b, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Business, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Business, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *UpdateBusinessRequest) (*Business, error) {
	b, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.Telegram != nil {
		b.Telegram = req.Telegram
	}
	if req.Instagram != nil {
		b.Instagram = req.Instagram
	}
	if req.TikTok != nil {
		b.TikTok = req.TikTok
	}
	if req.WhatsApp != nil {
		b.WhatsApp = req.WhatsApp
	}
	if req.FirstPhoneNumber != nil {
		b.FirstPhoneNumber = *req.FirstPhoneNumber
	}
	if req.SecondPhoneNumber != nil {
		b.SecondPhoneNumber = req.SecondPhoneNumber
	}
	if req.ThirdPhoneNumber != nil {
		b.ThirdPhoneNumber = req.ThirdPhoneNumber
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetCarBrands replaces the brand selection, enforcing the tariff cap
// as a validation error
func (s *Service) SetCarBrands(ctx context.Context, userID uuid.UUID, brandIDs []int64) error {
	b, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if b.TariffID == nil {
		return ErrNoTariff
	}
	t, err := s.tariffs.GetByID(ctx, *b.TariffID)
	if err != nil {
		return err
	}
	if len(brandIDs) > t.CarBrandsCount {
		return ErrTooManyCarBrands
	}
	return s.repo.SetCarBrands(ctx, b.ID, brandIDs)
}

// SetCommonParts replaces the common part selection, enforcing the
// tariff cap as a validation error
func (s *Service) SetCommonParts(ctx context.Context, userID uuid.UUID, partIDs []int64) error {
	b, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if b.TariffID == nil {
		return ErrNoTariff
	}
	t, err := s.tariffs.GetByID(ctx, *b.TariffID)
	if err != nil {
		return err
	}
	if len(partIDs) > t.CommonPartsCount {
		return ErrTooManyParts
	}
	return s.repo.SetCommonParts(ctx, b.ID, partIDs)
}

func (s *Service) GetCarBrandIDs(ctx context.Context, businessID uuid.UUID) ([]int64, error) {
	return s.repo.GetCarBrandIDs(ctx, businessID)
}

func (s *Service) GetCommonPartIDs(ctx context.Context, businessID uuid.UUID) ([]int64, error) {
	return s.repo.GetCommonPartIDs(ctx, businessID)
}

func (s *Service) SetFilterMode(ctx context.Context, userID uuid.UUID, mode FilterMode) error {
	if !mode.Valid() {
		return ErrInvalidFilterMode
	}
	b, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.SetFilterMode(ctx, b.ID, mode)
}

// Deactivate soft-disables the business; the row survives for later
// reactivation
func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	b, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, b.ID, false); err != nil {
		return err
	}
	if err := s.repo.SetUserBusinessFlag(ctx, userID, false); err != nil {
		return err
	}
	log.Info().Str("business_id", b.ID.String()).Msg("business deactivated")
	return nil
}
