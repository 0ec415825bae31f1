package offer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/request"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

type repoStub struct {
	offers     map[uuid.UUID]*Offer
	duplicate  bool
	images     map[uuid.UUID][]Image
	resetCalls int
}

func newRepoStub() *repoStub {
	return &repoStub{
		offers: make(map[uuid.UUID]*Offer),
		images: make(map[uuid.UUID][]Image),
	}
}

func (r *repoStub) Submit(_ context.Context, o *Offer, imageURLs []string, _ uuid.UUID) error {
	if r.duplicate {
		return ErrDuplicateOffer
	}
	roomID := uuid.New()
	o.ChatRoomID = &roomID
	r.offers[o.ID] = o
	for _, url := range imageURLs {
		r.images[o.ID] = append(r.images[o.ID], Image{ID: uuid.New(), OfferID: o.ID, URL: url})
	}
	return nil
}

func (r *repoStub) GetByID(_ context.Context, id uuid.UUID) (*Offer, error) {
	o, ok := r.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (r *repoStub) Update(_ context.Context, o *Offer) error {
	if _, ok := r.offers[o.ID]; !ok {
		return ErrNotFound
	}
	r.offers[o.ID] = o
	return nil
}

func (r *repoStub) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*Offer, error) {
	var out []*Offer
	for _, o := range r.offers {
		if o.RequestID == requestID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *repoStub) HasOffer(_ context.Context, requestID, businessID uuid.UUID) (bool, error) {
	for _, o := range r.offers {
		if o.RequestID == requestID && o.BusinessID == businessID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repoStub) AddImages(_ context.Context, offerID uuid.UUID, urls []string) error {
	for _, url := range urls {
		r.images[offerID] = append(r.images[offerID], Image{ID: uuid.New(), OfferID: offerID, URL: url})
	}
	return nil
}

func (r *repoStub) DeleteImages(_ context.Context, offerID uuid.UUID, imageIDs []uuid.UUID) error {
	var kept []Image
	for _, img := range r.images[offerID] {
		deleted := false
		for _, id := range imageIDs {
			if img.ID == id {
				deleted = true
			}
		}
		if !deleted {
			kept = append(kept, img)
		}
	}
	r.images[offerID] = kept
	return nil
}

func (r *repoStub) ListImages(_ context.Context, offerID uuid.UUID) ([]Image, error) {
	return r.images[offerID], nil
}

func (r *repoStub) AcceptedListForUser(_ context.Context, userID uuid.UUID) ([]*Offer, error) {
	var out []*Offer
	for _, o := range r.offers {
		if o.IsAccepted && o.RoomUserID != nil && *o.RoomUserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *repoStub) ResetRoomAccepted(_ context.Context, offerID uuid.UUID) error {
	o, ok := r.offers[offerID]
	if !ok {
		return ErrNotFound
	}
	o.IsAccepted = false
	r.resetCalls++
	return nil
}

func (r *repoStub) ResetAllRoomsForUser(_ context.Context, userID uuid.UUID) error {
	for _, o := range r.offers {
		if o.RoomUserID != nil && *o.RoomUserID == userID {
			o.IsAccepted = false
		}
	}
	return nil
}

func (r *repoStub) DeleteAcceptedForBusiness(_ context.Context, businessID uuid.UUID) error {
	for id, o := range r.offers {
		if o.BusinessID == businessID && o.IsAccepted {
			delete(r.offers, id)
		}
	}
	return nil
}

type requestsStub struct {
	requests map[uuid.UUID]*request.PurchaseRequest
}

func (s *requestsStub) GetByID(_ context.Context, id uuid.UUID) (*request.PurchaseRequest, error) {
	pr, ok := s.requests[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	return pr, nil
}

type notifierStub struct {
	calls []uuid.UUID
}

func (n *notifierStub) NotifyNewOffer(_ context.Context, ownerID, _ uuid.UUID) error {
	n.calls = append(n.calls, ownerID)
	return nil
}

type trackerStub struct {
	keys map[string]bool
}

func newTrackerStub() *trackerStub {
	return &trackerStub{keys: make(map[string]bool)}
}

func (t *trackerStub) Mark(_ context.Context, key string) error {
	t.keys[key] = true
	return nil
}

func (t *trackerStub) CountByPrefix(_ context.Context, prefix string) (int, error) {
	count := 0
	for key := range t.keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

// deferrerStub runs scheduled jobs synchronously
type deferrerStub struct {
	delays []time.Duration
}

func (d *deferrerStub) AfterFunc(delay time.Duration, fn func(ctx context.Context)) {
	d.delays = append(d.delays, delay)
	fn(context.Background())
}

type pushStub struct {
	sends [][]string
}

func (p *pushStub) SendToTokens(_ context.Context, tokens []string, _, _ string, _ map[string]string) {
	p.sends = append(p.sends, tokens)
}

type tokensStub struct {
	tokens map[uuid.UUID]string
}

func (t *tokensStub) GetFCMTokens(_ context.Context, userIDs []uuid.UUID) ([]string, error) {
	var out []string
	for _, id := range userIDs {
		if token, ok := t.tokens[id]; ok {
			out = append(out, token)
		}
	}
	return out, nil
}

type fixture struct {
	repo     *repoStub
	requests *requestsStub
	notifier *notifierStub
	tracker  *trackerStub
	deferrer *deferrerStub
	push     *pushStub
	svc      *Service
}

func newFixture(owner uuid.UUID) (*fixture, *request.PurchaseRequest) {
	pr := &request.PurchaseRequest{
		ID:       uuid.New(),
		UserID:   owner,
		IsActive: true,
	}
	f := &fixture{
		repo:     newRepoStub(),
		requests: &requestsStub{requests: map[uuid.UUID]*request.PurchaseRequest{pr.ID: pr}},
		notifier: &notifierStub{},
		tracker:  newTrackerStub(),
		deferrer: &deferrerStub{},
		push:     &pushStub{},
	}
	tokens := &tokensStub{tokens: map[uuid.UUID]string{owner: "owner-token"}}
	f.svc = NewService(f.repo, f.requests, f.notifier, f.tracker, f.deferrer, f.push, tokens)
	return f, pr
}

func TestSubmitCreatesOfferWithSideEffects(t *testing.T) {
	owner := uuid.New()
	f, pr := newFixture(owner)
	businessID := uuid.New()

	o, err := f.svc.Submit(context.Background(), businessID, SubmitRequest{
		RequestID: pr.ID,
		Price:     decimal.NewFromInt(1500),
	}, []string{"https://cdn.example/img.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.ChatRoomID == nil {
		t.Fatal("offer must come back with a chat room")
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != owner {
		t.Errorf("expected one notification to the owner, got %v", f.notifier.calls)
	}
	if !f.tracker.keys[tracker.OfferKey(pr.ID, o.ID)] {
		t.Error("unread-offer marker not set")
	}
	if len(f.push.sends) != 1 || f.push.sends[0][0] != "owner-token" {
		t.Errorf("expected one deferred push to the owner, got %v", f.push.sends)
	}
	if len(f.repo.images[o.ID]) != 1 {
		t.Errorf("expected one image stored, got %d", len(f.repo.images[o.ID]))
	}
}

func TestSubmitRejectsDuplicateWithoutSideEffects(t *testing.T) {
	owner := uuid.New()
	f, pr := newFixture(owner)
	f.repo.duplicate = true

	_, err := f.svc.Submit(context.Background(), uuid.New(), SubmitRequest{
		RequestID: pr.ID,
		Price:     decimal.NewFromInt(100),
	}, nil)
	if !errors.Is(err, ErrDuplicateOffer) {
		t.Fatalf("expected ErrDuplicateOffer, got %v", err)
	}
	if len(f.notifier.calls) != 0 {
		t.Error("no notification may fire on a duplicate")
	}
	if len(f.push.sends) != 0 {
		t.Error("no push may fire on a duplicate")
	}
}

func TestSubmitRejectsInactiveRequest(t *testing.T) {
	owner := uuid.New()
	f, pr := newFixture(owner)
	pr.IsActive = false

	_, err := f.svc.Submit(context.Background(), uuid.New(), SubmitRequest{
		RequestID: pr.ID,
		Price:     decimal.NewFromInt(100),
	}, nil)
	if !errors.Is(err, request.ErrInactive) {
		t.Fatalf("expected request.ErrInactive, got %v", err)
	}
}

func TestDeleteAcceptedResetsRoomQuietly(t *testing.T) {
	owner := uuid.New()
	f, _ := newFixture(owner)

	roomID := uuid.New()
	o := &Offer{
		ID:         uuid.New(),
		RequestID:  uuid.New(),
		BusinessID: uuid.New(),
		ChatRoomID: &roomID,
		RoomUserID: &owner,
		IsAccepted: true,
	}
	f.repo.offers[o.ID] = o

	if err := f.svc.DeleteAccepted(context.Background(), owner, o.ID); err != nil {
		t.Fatalf("DeleteAccepted: %v", err)
	}
	if o.IsAccepted {
		t.Error("room accepted flag not reset")
	}
	if f.repo.resetCalls != 1 {
		t.Errorf("expected one reset, got %d", f.repo.resetCalls)
	}
	if len(f.notifier.calls) != 0 {
		t.Error("archiving must not re-fire notifications")
	}
}

func TestDeleteAcceptedRejectsOtherUsersRoom(t *testing.T) {
	owner := uuid.New()
	f, _ := newFixture(owner)

	stranger := uuid.New()
	roomID := uuid.New()
	o := &Offer{
		ID:         uuid.New(),
		ChatRoomID: &roomID,
		RoomUserID: &stranger,
		IsAccepted: true,
	}
	f.repo.offers[o.ID] = o

	if err := f.svc.DeleteAccepted(context.Background(), owner, o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptedListCountsUnreadMessages(t *testing.T) {
	owner := uuid.New()
	f, pr := newFixture(owner)

	roomID := uuid.New()
	o := &Offer{
		ID:         uuid.New(),
		RequestID:  pr.ID,
		BusinessID: uuid.New(),
		ChatRoomID: &roomID,
		RoomUserID: &owner,
		IsAccepted: true,
	}
	f.repo.offers[o.ID] = o
	f.tracker.keys[tracker.ChatMessageKey(roomID, owner, uuid.New())] = true
	f.tracker.keys[tracker.ChatMessageKey(roomID, owner, uuid.New())] = true

	items, err := f.svc.AcceptedList(context.Background(), owner)
	if err != nil {
		t.Fatalf("AcceptedList: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one accepted offer, got %d", len(items))
	}
	if items[0].NewMessagesCount != 2 {
		t.Errorf("expected 2 unread messages, got %d", items[0].NewMessagesCount)
	}
}
