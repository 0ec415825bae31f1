package request

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/domain/business"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

// Counter is the slice of the tracker the service needs for view dedup
// and unread counts
type Counter interface {
	Exists(ctx context.Context, key string) (bool, error)
	MarkWithTTL(ctx context.Context, key string, ttl time.Duration) error
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	ClearByPrefix(ctx context.Context, prefix string) error
}

// BusinessDirectory resolves the calling user's business for feed
// filtering
type BusinessDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*business.Business, error)
}

// Config carries the tunable windows of the request lifecycle
type Config struct {
	TTL          time.Duration // how long a request stays in business feeds
	ViewDedupTTL time.Duration // repeat views within this window are not counted
}

type Service struct {
	repo       Repository
	counters   Counter
	businesses BusinessDirectory
	cfg        Config
}

func NewService(repo Repository, counters Counter, businesses BusinessDirectory, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ViewDedupTTL <= 0 {
		cfg.ViewDedupTTL = time.Minute
	}
	return &Service{repo: repo, counters: counters, businesses: businesses, cfg: cfg}
}

func (s *Service) ListTypes(ctx context.Context) ([]*RequestType, error) {
	return s.repo.ListTypes(ctx)
}

// Create starts the regular flow: car plus part are already validated
// by the DTO layer
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*PurchaseRequest, error) {
	if req.TypeID != nil {
		if _, err := s.repo.GetTypeByID(ctx, *req.TypeID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	pr := &PurchaseRequest{
		ID:          uuid.New(),
		UserID:      userID,
		TypeID:      req.TypeID,
		Description: req.Description,
		RegionID:    req.RegionID,
		PartID:      &req.PartID,
		IsActive:    true,
		Vehicle: Vehicle{
			ModelID:            &req.ModelID,
			Year:               &req.Year,
			Engine:             (*Engine)(req.Engine),
			EngineDisplacement: req.EngineDisplacement,
			Mileage:            req.Mileage,
			VINCode:            req.VINCode,
			Transmission:       (*Transmission)(req.Transmission),
			DriveID:            req.DriveID,
			BodyID:             req.BodyID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", pr.ID.String()).
		Str("user_id", userID.String()).
		Msg("purchase request created")

	// Reload to pick up joined titles
	return s.repo.GetByID(ctx, pr.ID)
}

// CreateVIP starts the paid flow: no car fields, just a description
// under a paid type. The request lands in the staff feed only.
func (s *Service) CreateVIP(ctx context.Context, userID uuid.UUID, req CreateVIPRequest) (*PurchaseRequest, error) {
	if _, err := s.repo.GetTypeByID(ctx, req.TypeID); err != nil {
		return nil, err
	}

	now := time.Now()
	pr := &PurchaseRequest{
		ID:          uuid.New(),
		UserID:      userID,
		TypeID:      &req.TypeID,
		Description: &req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, pr.ID)
}

func (s *Service) getOwned(ctx context.Context, userID, requestID uuid.UUID) (*PurchaseRequest, error) {
	pr, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if pr.UserID != userID {
		return nil, ErrNotOwner
	}
	return pr, nil
}

// Update patches an owned request and applies image deletions
func (s *Service) Update(ctx context.Context, userID, requestID uuid.UUID, req UpdateRequest) (*PurchaseRequest, error) {
	pr, err := s.getOwned(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		pr.Description = req.Description
	}
	if req.RegionID != nil {
		pr.RegionID = req.RegionID
	}
	if req.PartID != nil {
		pr.PartID = req.PartID
	}
	if req.ModelID != nil {
		pr.ModelID = req.ModelID
	}
	if req.Year != nil {
		pr.Year = req.Year
	}
	if req.Engine != nil {
		pr.Engine = (*Engine)(req.Engine)
	}
	if req.EngineDisplacement != nil {
		pr.EngineDisplacement = req.EngineDisplacement
	}
	if req.Mileage != nil {
		pr.Mileage = req.Mileage
	}
	if req.VINCode != nil {
		pr.VINCode = req.VINCode
	}
	if req.Transmission != nil {
		pr.Transmission = (*Transmission)(req.Transmission)
	}
	if req.DriveID != nil {
		pr.DriveID = req.DriveID
	}
	if req.BodyID != nil {
		pr.BodyID = req.BodyID
	}
	pr.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteImages(ctx, requestID, req.DeletedImages); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, requestID)
}

// AddImages attaches already-stored image URLs to an owned request
func (s *Service) AddImages(ctx context.Context, userID, requestID uuid.UUID, urls []string) ([]Image, error) {
	if _, err := s.getOwned(ctx, userID, requestID); err != nil {
		return nil, err
	}
	if err := s.repo.AddImages(ctx, requestID, urls); err != nil {
		return nil, err
	}
	return s.repo.ListImages(ctx, requestID)
}

// OwnerItem is a request in the owner's list with unread counters
type OwnerItem struct {
	*PurchaseRequest
	Title            string `json:"title"`
	IsPaid           bool   `json:"is_paid"`
	NewOffersCount   int    `json:"new_offers_count"`
	NewMessagesCount int    `json:"new_messages_count"`
}

// ListMine returns the owner's active requests with unread counts
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]OwnerItem, error) {
	requests, err := s.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	items := make([]OwnerItem, 0, len(requests))
	for _, pr := range requests {
		offers, err := s.counters.CountByPrefix(ctx, tracker.OfferPrefix(pr.ID))
		if err != nil {
			return nil, err
		}
		messages, err := s.counters.CountByPrefix(ctx, tracker.RequestMessagePrefix(pr.ID))
		if err != nil {
			return nil, err
		}
		items = append(items, OwnerItem{
			PurchaseRequest:  pr,
			Title:            pr.Title(),
			IsPaid:           pr.IsPaid(),
			NewOffersCount:   offers,
			NewMessagesCount: messages,
		})
	}
	return items, nil
}

// Detail is an owned request with its images. Opening it consumes the
// "new offers" markers.
type Detail struct {
	*PurchaseRequest
	Title  string  `json:"title"`
	Images []Image `json:"images"`
}

func (s *Service) Detail(ctx context.Context, userID, requestID uuid.UUID) (*Detail, error) {
	pr, err := s.getOwned(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	images, err := s.repo.ListImages(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.counters.ClearByPrefix(ctx, tracker.OfferPrefix(requestID)); err != nil {
		log.Warn().Err(err).Str("request_id", requestID.String()).Msg("failed to clear new-offer markers")
	}
	return &Detail{PurchaseRequest: pr, Title: pr.Title(), Images: images}, nil
}

// Close deactivates one owned active request
func (s *Service) Close(ctx context.Context, userID, requestID uuid.UUID) error {
	pr, err := s.getOwned(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if !pr.IsActive {
		return ErrInactive
	}
	return s.repo.Deactivate(ctx, requestID)
}

// CloseAll deactivates every active request of the user
func (s *Service) CloseAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeactivateAllByUser(ctx, userID)
}

// FeedItem is a request in a business's feed with engagement info
type FeedItem struct {
	*PurchaseRequest
	Title    string  `json:"title"`
	Images   []Image `json:"images"`
	IsViewed bool    `json:"is_viewed"`
	Views    int     `json:"views"`
}

// BusinessFeed lists entitlement-matched active requests inside the
// TTL window. Staff callers get the paid feed instead.
func (s *Service) BusinessFeed(ctx context.Context, userID uuid.UUID, staff bool, limit, offset int) ([]FeedItem, error) {
	biz, err := s.businesses.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 40
	}
	if limit > 60 {
		limit = 60
	}

	requests, err := s.repo.ListForBusiness(ctx, BusinessFilter{
		BusinessID:   biz.ID,
		Mode:         biz.RequestsFilter,
		Staff:        staff,
		CreatedAfter: time.Now().Add(-s.cfg.TTL),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(requests))
	for _, pr := range requests {
		item, err := s.feedItem(ctx, pr, userID)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// BusinessDetail returns one active request for a business viewer
func (s *Service) BusinessDetail(ctx context.Context, userID, requestID uuid.UUID) (*FeedItem, error) {
	pr, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !pr.IsActive {
		return nil, ErrNotFound
	}
	return s.feedItem(ctx, pr, userID)
}

func (s *Service) feedItem(ctx context.Context, pr *PurchaseRequest, viewerID uuid.UUID) (*FeedItem, error) {
	images, err := s.repo.ListImages(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	viewed, err := s.repo.IsViewedBy(ctx, pr.ID, viewerID)
	if err != nil {
		return nil, err
	}
	views, err := s.repo.ViewedCount(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	return &FeedItem{
		PurchaseRequest: pr,
		Title:           pr.Title(),
		Images:          images,
		IsViewed:        viewed,
		Views:           views,
	}, nil
}

// MarkViewed records a view once; repeats inside the dedup window are
// dropped before touching the database
func (s *Service) MarkViewed(ctx context.Context, requestID, userID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, requestID); err != nil {
		return err
	}

	key := tracker.RequestViewKey(requestID, userID)
	seen, err := s.counters.Exists(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	if err := s.repo.MarkViewed(ctx, requestID, userID); err != nil {
		return err
	}
	return s.counters.MarkWithTTL(ctx, key, s.cfg.ViewDedupTTL)
}

// DeactivateExpired sweeps requests older than the TTL out of the
// active state
func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeactivateOlderThan(ctx, time.Now().Add(-s.cfg.TTL))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("expired purchase requests deactivated")
	}
	return count, nil
}
