package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/domain/business"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

type repoStub struct {
	requests map[uuid.UUID]*PurchaseRequest
	types    map[uuid.UUID]*RequestType
	images   map[uuid.UUID][]Image
	views    map[uuid.UUID]map[uuid.UUID]bool

	lastFilter      BusinessFilter
	markViewedCalls int
	lastCutoff      time.Time
}

func newRepoStub() *repoStub {
	return &repoStub{
		requests: make(map[uuid.UUID]*PurchaseRequest),
		types:    make(map[uuid.UUID]*RequestType),
		images:   make(map[uuid.UUID][]Image),
		views:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *repoStub) Create(_ context.Context, req *PurchaseRequest) error {
	r.requests[req.ID] = req
	return nil
}

func (r *repoStub) Update(_ context.Context, req *PurchaseRequest) error {
	if _, ok := r.requests[req.ID]; !ok {
		return ErrNotFound
	}
	r.requests[req.ID] = req
	return nil
}

func (r *repoStub) GetByID(_ context.Context, id uuid.UUID) (*PurchaseRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

func (r *repoStub) ListByUser(_ context.Context, userID uuid.UUID, activeOnly bool) ([]*PurchaseRequest, error) {
	var out []*PurchaseRequest
	for _, req := range r.requests {
		if req.UserID == userID && (!activeOnly || req.IsActive) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *repoStub) ListForBusiness(_ context.Context, f BusinessFilter) ([]*PurchaseRequest, error) {
	r.lastFilter = f
	return nil, nil
}

func (r *repoStub) Deactivate(_ context.Context, id uuid.UUID) error {
	req, ok := r.requests[id]
	if !ok {
		return ErrNotFound
	}
	req.IsActive = false
	return nil
}

func (r *repoStub) DeactivateAllByUser(_ context.Context, userID uuid.UUID) error {
	for _, req := range r.requests {
		if req.UserID == userID {
			req.IsActive = false
		}
	}
	return nil
}

func (r *repoStub) DeactivateOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.lastCutoff = cutoff
	var count int64
	for _, req := range r.requests {
		if req.IsActive && req.CreatedAt.Before(cutoff) {
			req.IsActive = false
			count++
		}
	}
	return count, nil
}

func (r *repoStub) AddImages(_ context.Context, requestID uuid.UUID, urls []string) error {
	for _, url := range urls {
		r.images[requestID] = append(r.images[requestID], Image{ID: uuid.New(), RequestID: requestID, URL: url})
	}
	return nil
}

func (r *repoStub) DeleteImages(_ context.Context, requestID uuid.UUID, imageIDs []uuid.UUID) error {
	var kept []Image
	for _, img := range r.images[requestID] {
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
	r.images[requestID] = kept
	return nil
}

func (r *repoStub) ListImages(_ context.Context, requestID uuid.UUID) ([]Image, error) {
	return r.images[requestID], nil
}

func (r *repoStub) MarkViewed(_ context.Context, requestID, userID uuid.UUID) error {
	r.markViewedCalls++
	if r.views[requestID] == nil {
		r.views[requestID] = make(map[uuid.UUID]bool)
	}
	r.views[requestID][userID] = true
	return nil
}

func (r *repoStub) ViewedCount(_ context.Context, requestID uuid.UUID) (int, error) {
	return len(r.views[requestID]), nil
}

func (r *repoStub) IsViewedBy(_ context.Context, requestID, userID uuid.UUID) (bool, error) {
	return r.views[requestID][userID], nil
}

func (r *repoStub) ListTypes(_ context.Context) ([]*RequestType, error) {
	var out []*RequestType
	for _, t := range r.types {
		out = append(out, t)
	}
	return out, nil
}

func (r *repoStub) GetTypeByID(_ context.Context, id uuid.UUID) (*RequestType, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, ErrTypeNotFound
	}
	return t, nil
}

type counterStub struct {
	keys map[string]bool
}

func newCounterStub() *counterStub {
	return &counterStub{keys: make(map[string]bool)}
}

func (c *counterStub) Exists(_ context.Context, key string) (bool, error) {
	return c.keys[key], nil
}

func (c *counterStub) MarkWithTTL(_ context.Context, key string, _ time.Duration) error {
	c.keys[key] = true
	return nil
}

func (c *counterStub) CountByPrefix(_ context.Context, prefix string) (int, error) {
	count := 0
	for key := range c.keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

func (c *counterStub) ClearByPrefix(_ context.Context, prefix string) error {
	for key := range c.keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.keys, key)
		}
	}
	return nil
}

type bizStub struct {
	biz *business.Business
}

func (b *bizStub) GetByUserID(_ context.Context, _ uuid.UUID) (*business.Business, error) {
	if b.biz == nil {
		return nil, business.ErrNotFound
	}
	return b.biz, nil
}

func newService(repo *repoStub, counters *counterStub, biz *bizStub) *Service {
	return NewService(repo, counters, biz, Config{TTL: 24 * time.Hour, ViewDedupTTL: time.Minute})
}

func activeRequest(userID uuid.UUID) *PurchaseRequest {
	return &PurchaseRequest{
		ID:        uuid.New(),
		UserID:    userID,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	repo := newRepoStub()
	svc := newService(repo, newCounterStub(), &bizStub{})

	typeID := uuid.New()
	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		ModelID: 1, Year: 2015, PartID: 2, TypeID: &typeID,
	})
	if !errors.Is(err, ErrTypeNotFound) {
		t.Fatalf("expected ErrTypeNotFound, got %v", err)
	}
}

func TestMarkViewedDeduplicatesWithinWindow(t *testing.T) {
	repo := newRepoStub()
	counters := newCounterStub()
	svc := newService(repo, counters, &bizStub{})

	pr := activeRequest(uuid.New())
	repo.requests[pr.ID] = pr
	viewer := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.MarkViewed(context.Background(), pr.ID, viewer); err != nil {
			t.Fatalf("MarkViewed: %v", err)
		}
	}
	if repo.markViewedCalls != 1 {
		t.Errorf("expected one view write, got %d", repo.markViewedCalls)
	}
	count, _ := repo.ViewedCount(context.Background(), pr.ID)
	if count != 1 {
		t.Errorf("expected viewed count 1, got %d", count)
	}
}

func TestDetailClearsNewOfferMarkers(t *testing.T) {
	repo := newRepoStub()
	counters := newCounterStub()
	svc := newService(repo, counters, &bizStub{})

	owner := uuid.New()
	pr := activeRequest(owner)
	repo.requests[pr.ID] = pr

	counters.keys[tracker.OfferKey(pr.ID, uuid.New())] = true
	counters.keys[tracker.OfferKey(pr.ID, uuid.New())] = true

	if _, err := svc.Detail(context.Background(), owner, pr.ID); err != nil {
		t.Fatalf("Detail: %v", err)
	}
	left, _ := counters.CountByPrefix(context.Background(), tracker.OfferPrefix(pr.ID))
	if left != 0 {
		t.Errorf("expected offer markers cleared, %d left", left)
	}
}

func TestListMineReportsUnreadCounts(t *testing.T) {
	repo := newRepoStub()
	counters := newCounterStub()
	svc := newService(repo, counters, &bizStub{})

	owner := uuid.New()
	pr := activeRequest(owner)
	repo.requests[pr.ID] = pr

	counters.keys[tracker.OfferKey(pr.ID, uuid.New())] = true
	counters.keys[tracker.RequestMessageKey(pr.ID, uuid.New())] = true
	counters.keys[tracker.RequestMessageKey(pr.ID, uuid.New())] = true

	items, err := svc.ListMine(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].NewOffersCount != 1 || items[0].NewMessagesCount != 2 {
		t.Errorf("unexpected counts: offers=%d messages=%d",
			items[0].NewOffersCount, items[0].NewMessagesCount)
	}
}

func TestCloseChecksOwnershipAndState(t *testing.T) {
	repo := newRepoStub()
	svc := newService(repo, newCounterStub(), &bizStub{})

	owner := uuid.New()
	pr := activeRequest(owner)
	repo.requests[pr.ID] = pr

	if err := svc.Close(context.Background(), uuid.New(), pr.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.Close(context.Background(), owner, pr.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := svc.Close(context.Background(), owner, pr.ID); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on second close, got %v", err)
	}
}

func TestBusinessFeedPassesEntitlementFilter(t *testing.T) {
	repo := newRepoStub()
	biz := &bizStub{biz: &business.Business{
		ID:             uuid.New(),
		RequestsFilter: business.FilterByCarBrands,
	}}
	svc := newService(repo, newCounterStub(), biz)

	before := time.Now()
	if _, err := svc.BusinessFeed(context.Background(), uuid.New(), false, 0, 0); err != nil {
		t.Fatalf("BusinessFeed: %v", err)
	}

	f := repo.lastFilter
	if f.BusinessID != biz.biz.ID {
		t.Errorf("wrong business id in filter: %s", f.BusinessID)
	}
	if f.Mode != business.FilterByCarBrands {
		t.Errorf("wrong mode in filter: %s", f.Mode)
	}
	if f.Staff {
		t.Error("staff flag must be false for a regular business")
	}
	wantCutoff := before.Add(-24 * time.Hour)
	if f.CreatedAfter.Before(wantCutoff.Add(-time.Minute)) || f.CreatedAfter.After(wantCutoff.Add(time.Minute)) {
		t.Errorf("cutoff not within the TTL window: %s", f.CreatedAfter)
	}
}

func TestDeactivateExpiredSweepsOldRequests(t *testing.T) {
	repo := newRepoStub()
	svc := newService(repo, newCounterStub(), &bizStub{})

	old := activeRequest(uuid.New())
	old.CreatedAt = time.Now().Add(-25 * time.Hour)
	fresh := activeRequest(uuid.New())
	repo.requests[old.ID] = old
	repo.requests[fresh.ID] = fresh

	count, err := svc.DeactivateExpired(context.Background())
	if err != nil {
		t.Fatalf("DeactivateExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one deactivation, got %d", count)
	}
	if old.IsActive || !fresh.IsActive {
		t.Errorf("wrong requests swept: old=%v fresh=%v", old.IsActive, fresh.IsActive)
	}
}
