package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/domain/notification"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

// Tracker is the slice of the redis tracker the chat flow needs: unread
// markers per recipient and the short-lived debounce lock per room.
type Tracker interface {
	Mark(ctx context.Context, key string) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	ClearByPrefix(ctx context.Context, prefix string) error
}

type Notifier interface {
	NotifyOfferAccepted(ctx context.Context, businessUserID, offerID uuid.UUID) error
}

type Deferrer interface {
	AfterFunc(delay time.Duration, fn func(ctx context.Context))
}

type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string)
}

type TokenDirectory interface {
	GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
}

type Broadcaster interface {
	BroadcastToRoom(roomID uuid.UUID, event *Event)
}

type Config struct {
	// PushDebounce is how long after the first message in a burst the
	// unread-messages push goes out.
	PushDebounce time.Duration
	// DebounceKeyTTL bounds the redis lock that keeps a burst of
	// messages from scheduling more than one push job.
	DebounceKeyTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.PushDebounce <= 0 {
		c.PushDebounce = 9 * time.Second
	}
	if c.DebounceKeyTTL <= 0 {
		c.DebounceKeyTTL = 10 * time.Second
	}
}

type Service struct {
	repo     Repository
	trk      Tracker
	notifier Notifier
	deferrer Deferrer
	push     Pusher
	tokens   TokenDirectory
	hub      Broadcaster
	cfg      Config
}

func NewService(repo Repository, trk Tracker, notifier Notifier, deferrer Deferrer, push Pusher, tokens TokenDirectory, hub Broadcaster, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		repo:     repo,
		trk:      trk,
		notifier: notifier,
		deferrer: deferrer,
		push:     push,
		tokens:   tokens,
		hub:      hub,
		cfg:      cfg,
	}
}

func (s *Service) getRoom(ctx context.Context, userID, roomID uuid.UUID) (*Room, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(userID) {
		return nil, ErrNotMember
	}
	return room, nil
}

// PostMessage appends a message to the room. The first message the
// requesting user sends flips the room to accepted and notifies the
// business; the flip happens in the same transaction as the insert.
func (s *Service) PostMessage(ctx context.Context, senderID, roomID uuid.UUID, req PostMessageRequest) (*Message, error) {
	room, err := s.getRoom(ctx, senderID, roomID)
	if err != nil {
		return nil, err
	}

	recipient := room.OtherParty(senderID)
	flip := senderID == room.UserID && !room.IsAccepted

	msg := &Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertMessage(ctx, msg, flip); err != nil {
		return nil, err
	}

	if flip {
		room.IsAccepted = true
		if err := s.notifier.NotifyOfferAccepted(ctx, room.BusinessUserID, room.OfferID); err != nil {
			log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to notify offer acceptance")
		}
		if s.hub != nil {
			s.hub.BroadcastToRoom(roomID, &Event{Type: EventRoomAccepted, RoomID: roomID, SenderID: senderID})
		}
	}

	if err := s.trk.Mark(ctx, tracker.ChatMessageKey(roomID, recipient, msg.ID)); err != nil {
		log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to mark unread message")
	}
	if recipient == room.UserID {
		if err := s.trk.Mark(ctx, tracker.RequestMessageKey(room.RequestID, msg.ID)); err != nil {
			log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to mark request-level unread message")
		}
	}

	s.scheduleUnreadPush(ctx, roomID, recipient)

	if s.hub != nil {
		s.hub.BroadcastToRoom(roomID, &Event{Type: EventNewMessage, RoomID: roomID, SenderID: senderID, Message: msg})
	}

	return msg, nil
}

// scheduleUnreadPush arranges one delayed push per burst of messages.
// Only the message that wins the debounce lock schedules the job; the
// job re-checks unread markers so a room read in the meantime cancels
// the push.
func (s *Service) scheduleUnreadPush(ctx context.Context, roomID, recipient uuid.UUID) {
	won, err := s.trk.Acquire(ctx, tracker.ChatDebounceKey(roomID), s.cfg.DebounceKeyTTL)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to acquire chat debounce lock")
		return
	}
	if !won {
		return
	}

	s.deferrer.AfterFunc(s.cfg.PushDebounce, func(jobCtx context.Context) {
		count, err := s.trk.CountByPrefix(jobCtx, tracker.ChatMessagePrefix(roomID, recipient))
		if err != nil {
			log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to count unread messages")
			return
		}
		if count == 0 {
			return
		}
		tokens, err := s.tokens.GetFCMTokens(jobCtx, []uuid.UUID{recipient})
		if err != nil {
			log.Warn().Err(err).Msg("failed to resolve push tokens for unread messages")
			return
		}
		if len(tokens) > 0 {
			s.push.SendToTokens(jobCtx, tokens, notification.UnreadMessagesTitle, notification.UnreadMessagesMessage, nil)
		}
	})
}

// Transcript is a page of a room's history together with the offer the
// room was opened for.
type Transcript struct {
	Room     *Room     `json:"chat_room"`
	Messages []Message `json:"messages"`
}

// Transcript returns a page of messages in chronological order and
// clears the calling reader's unread markers. The other party's markers
// are untouched.
func (s *Service) Transcript(ctx context.Context, userID, roomID uuid.UUID, limit, offset int) (*Transcript, error) {
	room, err := s.getRoom(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 30
	}
	if limit > 60 {
		limit = 60
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.repo.ListMessages(ctx, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	// Pages are fetched latest-first; a transcript reads oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if err := s.trk.ClearByPrefix(ctx, tracker.ChatMessagePrefix(roomID, userID)); err != nil {
		log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to clear unread messages")
	}
	if userID == room.UserID {
		if err := s.trk.ClearByPrefix(ctx, tracker.RequestMessagePrefix(room.RequestID)); err != nil {
			log.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to clear request-level unread messages")
		}
	}

	return &Transcript{Room: room, Messages: messages}, nil
}

// RoomItem is a business-side room row with its unread badge.
type RoomItem struct {
	*BusinessRoom
	NewMessagesCount int `json:"new_messages_count"`
}

// BusinessRooms lists the business's rooms ordered by latest activity.
func (s *Service) BusinessRooms(ctx context.Context, businessID uuid.UUID) ([]RoomItem, error) {
	rooms, err := s.repo.ListRoomsForBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	items := make([]RoomItem, 0, len(rooms))
	for _, room := range rooms {
		unread, err := s.trk.CountByPrefix(ctx, tracker.ChatMessagePrefix(room.ID, room.BusinessUserID))
		if err != nil {
			return nil, err
		}
		items = append(items, RoomItem{BusinessRoom: room, NewMessagesCount: unread})
	}
	return items, nil
}
