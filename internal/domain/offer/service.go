package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/domain/request"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

// Push texts of the deferred new-offer job
const (
	newOfferPushTitle      = "У вас новое предложение. Проверьте свои заявки"
	newOfferPushBodyPrefix = "Проверьте свое предложение: "
)

// Requests reads purchase requests the offers respond to
type Requests interface {
	GetByID(ctx context.Context, id uuid.UUID) (*request.PurchaseRequest, error)
}

// Notifier persists the new-offer notification row
type Notifier interface {
	NotifyNewOffer(ctx context.Context, ownerID, offerID uuid.UUID) error
}

// Tracker is the slice of the key-value tracker the workflow needs
type Tracker interface {
	Mark(ctx context.Context, key string) error
	CountByPrefix(ctx context.Context, prefix string) (int, error)
}

// Deferrer schedules one-shot jobs
type Deferrer interface {
	AfterFunc(delay time.Duration, fn func(ctx context.Context))
}

// Pusher delivers best-effort pushes
type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string)
}

// TokenDirectory resolves users to device tokens
type TokenDirectory interface {
	GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
}

type Service struct {
	repo     Repository
	requests Requests
	notifier Notifier
	tracker  Tracker
	deferrer Deferrer
	push     Pusher
	tokens   TokenDirectory
}

func NewService(repo Repository, requests Requests, notifier Notifier, trk Tracker, deferrer Deferrer, push Pusher, tokens TokenDirectory) *Service {
	return &Service{
		repo:     repo,
		requests: requests,
		notifier: notifier,
		tracker:  trk,
		deferrer: deferrer,
		push:     push,
		tokens:   tokens,
	}
}

// Submit runs the whole offer workflow: one transaction for the offer,
// its images and the chat room, then the notification side effects.
// The side effects are best-effort — a failed push or marker never
// undoes a created offer.
func (s *Service) Submit(ctx context.Context, businessID uuid.UUID, req SubmitRequest, imageURLs []string) (*Offer, error) {
	pr, err := s.requests.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !pr.IsActive {
		return nil, request.ErrInactive
	}

	now := time.Now()
	o := &Offer{
		ID:           uuid.New(),
		RequestID:    req.RequestID,
		BusinessID:   businessID,
		Price:        req.Price,
		Condition:    (*Condition)(req.Condition),
		Availability: (*Availability)(req.Availability),
		Difference:   (*Difference)(req.Difference),
		Comment:      req.Comment,
		CountryID:    req.CountryID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Submit(ctx, o, imageURLs, pr.UserID); err != nil {
		return nil, err
	}

	log.Info().
		Str("offer_id", o.ID.String()).
		Str("request_id", req.RequestID.String()).
		Str("business_id", businessID.String()).
		Msg("offer submitted")

	if err := s.notifier.NotifyNewOffer(ctx, pr.UserID, o.ID); err != nil {
		log.Error().Err(err).Str("offer_id", o.ID.String()).Msg("failed to create new-offer notification")
	}
	if err := s.tracker.Mark(ctx, tracker.OfferKey(req.RequestID, o.ID)); err != nil {
		log.Warn().Err(err).Str("offer_id", o.ID.String()).Msg("failed to mark unread offer")
	}

	ownerID := pr.UserID
	body := newOfferPushBodyPrefix + pr.Title()
	s.deferrer.AfterFunc(0, func(jobCtx context.Context) {
		tokens, err := s.tokens.GetFCMTokens(jobCtx, []uuid.UUID{ownerID})
		if err != nil {
			log.Warn().Err(err).Msg("failed to resolve push tokens for new offer")
			return
		}
		if len(tokens) > 0 {
			s.push.SendToTokens(jobCtx, tokens, newOfferPushTitle, body, nil)
		}
	})

	return s.repo.GetByID(ctx, o.ID)
}

func (s *Service) getOwned(ctx context.Context, businessID, offerID uuid.UUID) (*Offer, error) {
	o, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.BusinessID != businessID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// Item is an offer with its attached images
type Item struct {
	*Offer
	Images []Image `json:"images"`
}

// Get returns one owned offer with images
func (s *Service) Get(ctx context.Context, businessID, offerID uuid.UUID) (*Item, error) {
	o, err := s.getOwned(ctx, businessID, offerID)
	if err != nil {
		return nil, err
	}
	return s.withImages(ctx, o)
}

// Update patches an owned offer; image adds and deletes apply in the
// same call
func (s *Service) Update(ctx context.Context, businessID, offerID uuid.UUID, req UpdateRequest, newImageURLs []string) (*Item, error) {
	o, err := s.getOwned(ctx, businessID, offerID)
	if err != nil {
		return nil, err
	}

	if req.Price != nil {
		o.Price = *req.Price
	}
	if req.Condition != nil {
		o.Condition = (*Condition)(req.Condition)
	}
	if req.Availability != nil {
		o.Availability = (*Availability)(req.Availability)
	}
	if req.Difference != nil {
		o.Difference = (*Difference)(req.Difference)
	}
	if req.Comment != nil {
		o.Comment = req.Comment
	}
	if req.CountryID != nil {
		o.CountryID = req.CountryID
	}

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteImages(ctx, offerID, req.DeletedImages); err != nil {
		return nil, err
	}
	if err := s.repo.AddImages(ctx, offerID, newImageURLs); err != nil {
		return nil, err
	}

	o, err = s.repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	return s.withImages(ctx, o)
}

func (s *Service) withImages(ctx context.Context, o *Offer) (*Item, error) {
	images, err := s.repo.ListImages(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &Item{Offer: o, Images: images}, nil
}

// ListForRequestOwner returns the offers on an owned request, best
// tariffs first
func (s *Service) ListForRequestOwner(ctx context.Context, userID, requestID uuid.UUID) ([]Item, error) {
	pr, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if pr.UserID != userID {
		return nil, request.ErrNotOwner
	}

	offers, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(offers))
	for _, o := range offers {
		item, err := s.withImages(ctx, o)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// AcceptedItem is an accepted offer in the owner's archive
type AcceptedItem struct {
	*Offer
	Images           []Image `json:"images"`
	Car              string  `json:"car"`
	Part             string  `json:"part"`
	NewMessagesCount int     `json:"new_messages_count"`
}

// AcceptedList returns the user's accepted offers with per-room unread
// counts
func (s *Service) AcceptedList(ctx context.Context, userID uuid.UUID) ([]AcceptedItem, error) {
	offers, err := s.repo.AcceptedListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]AcceptedItem, 0, len(offers))
	for _, o := range offers {
		images, err := s.repo.ListImages(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		pr, err := s.requests.GetByID(ctx, o.RequestID)
		if err != nil {
			return nil, err
		}
		part := "Нет названия запчасти"
		if pr.PartTitle != nil {
			part = *pr.PartTitle
		}
		unread := 0
		if o.ChatRoomID != nil {
			unread, err = s.tracker.CountByPrefix(ctx, tracker.ChatMessagePrefix(*o.ChatRoomID, userID))
			if err != nil {
				return nil, err
			}
		}
		items = append(items, AcceptedItem{
			Offer:            o,
			Images:           images,
			Car:              pr.Title(),
			Part:             part,
			NewMessagesCount: unread,
		})
	}
	return items, nil
}

// DeleteAccepted archives one accepted offer for the user by resetting
// its room. The offer row itself stays; no notification fires.
func (s *Service) DeleteAccepted(ctx context.Context, userID, offerID uuid.UUID) error {
	o, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if o.RoomUserID == nil || *o.RoomUserID != userID {
		return ErrNotFound
	}
	if !o.IsAccepted {
		return ErrNotFound
	}
	return s.repo.ResetRoomAccepted(ctx, offerID)
}

// DeleteAllAccepted archives every accepted offer of the user
func (s *Service) DeleteAllAccepted(ctx context.Context, userID uuid.UUID) error {
	return s.repo.ResetAllRoomsForUser(ctx, userID)
}

// DeleteAllAcceptedForBusiness removes the business's accepted offers
// entirely
func (s *Service) DeleteAllAcceptedForBusiness(ctx context.Context, businessID uuid.UUID) error {
	return s.repo.DeleteAcceptedForBusiness(ctx, businessID)
}
