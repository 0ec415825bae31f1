package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

// Pusher delivers push notifications. Delivery is best-effort; the
// service never fails a domain event because a push did not go out.
type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string)
	SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error
}

// Directory resolves notification audiences to users and device tokens
type Directory interface {
	GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
	ListUserIDs(ctx context.Context, forBusiness bool) ([]uuid.UUID, error)
}

// Marker is the slice of the tracker the service needs for seen state
type Marker interface {
	Mark(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Options carry the optional attributes of a notification
type Options struct {
	Title    *string
	URL      *string
	TariffID *uuid.UUID
	OfferID  *uuid.UUID

	// PreMarkSeen writes the recipients' seen markers immediately, so
	// the notification lands without an unread badge. Admin broadcasts
	// use this to avoid flagging every user at once.
	PreMarkSeen bool

	// SkipPush persists the row without fanning out a push. Used when
	// the caller sends its own differently-worded push for the event.
	SkipPush bool
}

type Service struct {
	repo    Repository
	tracker Marker
	push    Pusher
	users   Directory
}

func NewService(repo Repository, trk Marker, push Pusher, users Directory) *Service {
	return &Service{repo: repo, tracker: trk, push: push, users: users}
}

// Notify persists a notification for the recipients and fans it out as
// a push. The row is the source of truth; tracker and push failures
// are logged and swallowed.
func (s *Service) Notify(ctx context.Context, recipients []uuid.UUID, message string, opts Options) (*Notification, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("notification has no recipients")
	}

	n := &Notification{
		ID:        uuid.New(),
		Title:     opts.Title,
		Message:   message,
		URL:       opts.URL,
		TariffID:  opts.TariffID,
		OfferID:   opts.OfferID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n, recipients); err != nil {
		return nil, err
	}

	if opts.PreMarkSeen {
		for _, userID := range recipients {
			if err := s.tracker.Mark(ctx, tracker.NotificationKey(userID, n.ID)); err != nil {
				log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to pre-mark notification seen")
			}
		}
	}

	if !opts.SkipPush {
		s.sendPush(ctx, recipients, n)
	}
	return n, nil
}

func (s *Service) sendPush(ctx context.Context, recipients []uuid.UUID, n *Notification) {
	tokens, err := s.users.GetFCMTokens(ctx, recipients)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve push tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}

	title := ""
	if n.Title != nil {
		title = *n.Title
	}
	s.push.SendToTokens(ctx, tokens, title, n.Message, map[string]string{"notification_id": n.ID.String()})
}

// NotifyTariff notifies a single user about a tariff event. Errors are
// logged only: tariff sweeps must not stop because a notification
// failed to persist.
func (s *Service) NotifyTariff(ctx context.Context, userID uuid.UUID, title, message string, tariffID uuid.UUID) {
	_, err := s.Notify(ctx, []uuid.UUID{userID}, message, Options{
		Title:    &title,
		TariffID: &tariffID,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to create tariff notification")
	}
}

// NotifyNewOffer tells a purchase request owner a business responded.
// The push for this event is sent separately by the offer workflow, so
// only the row is written here.
func (s *Service) NotifyNewOffer(ctx context.Context, ownerID, offerID uuid.UUID) error {
	_, err := s.Notify(ctx, []uuid.UUID{ownerID}, NewOfferMessage, Options{OfferID: &offerID, SkipPush: true})
	return err
}

// NotifyOfferAccepted tells a business's user their offer got a reply
func (s *Service) NotifyOfferAccepted(ctx context.Context, businessUserID, offerID uuid.UUID) error {
	_, err := s.Notify(ctx, []uuid.UUID{businessUserID}, OfferAcceptedMessage, Options{OfferID: &offerID})
	return err
}

// Broadcast persists a topic notification for every user in the
// audience and sends one push to the news topic. Recipients are
// pre-marked seen so an admin announcement does not light up unread
// badges retroactively.
func (s *Service) Broadcast(ctx context.Context, title *string, message string, url *string, forBusiness bool) (*Notification, error) {
	recipients, err := s.users.ListUserIDs(ctx, forBusiness)
	if err != nil {
		return nil, fmt.Errorf("resolve broadcast audience: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("broadcast audience is empty")
	}

	n := &Notification{
		ID:          uuid.New(),
		Title:       title,
		Message:     message,
		URL:         url,
		ForTopic:    true,
		ForBusiness: forBusiness,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, n, recipients); err != nil {
		return nil, err
	}

	for _, userID := range recipients {
		if err := s.tracker.Mark(ctx, tracker.NotificationKey(userID, n.ID)); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to pre-mark notification seen")
		}
	}

	pushTitle := ""
	if title != nil {
		pushTitle = *title
	}
	if err := s.push.SendToTopic(ctx, NewsTopic, pushTitle, message, nil); err != nil {
		log.Warn().Err(err).Str("topic", NewsTopic).Msg("topic push failed")
	}

	return n, nil
}

// ListForUser returns the user's notifications newest first, each
// flagged with whether the user has seen it yet
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Item, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	notifications, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(notifications))
	for _, n := range notifications {
		seen, err := s.tracker.Exists(ctx, tracker.NotificationKey(userID, n.ID))
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Notification: n, IsNewNotification: !seen})
	}
	return items, nil
}

// MarkViewed sets the user's seen marker for one notification
func (s *Service) MarkViewed(ctx context.Context, userID, notificationID uuid.UUID) error {
	recipient, err := s.repo.IsRecipient(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !recipient {
		if _, err := s.repo.GetByID(ctx, notificationID); err != nil {
			return err
		}
		return ErrNotRecipient
	}
	return s.tracker.Mark(ctx, tracker.NotificationKey(userID, notificationID))
}
