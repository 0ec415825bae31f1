package tariff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avtoline/avtoline-api/internal/domain/ledger"
)

type tariffRepoStub struct {
	tariffs map[uuid.UUID]*Tariff
	byTitle map[string]*Tariff
}

func newTariffRepoStub() *tariffRepoStub {
	return &tariffRepoStub{
		tariffs: make(map[uuid.UUID]*Tariff),
		byTitle: make(map[string]*Tariff),
	}
}

func (r *tariffRepoStub) add(t *Tariff) *Tariff {
	r.tariffs[t.ID] = t
	r.byTitle[t.Title] = t
	return t
}

func (r *tariffRepoStub) List(context.Context) ([]*Tariff, error) { return nil, nil }

func (r *tariffRepoStub) GetByID(_ context.Context, id uuid.UUID) (*Tariff, error) {
	t, ok := r.tariffs[id]
	if !ok {
		return nil, ErrTariffNotFound
	}
	return t, nil
}

func (r *tariffRepoStub) GetOrCreateByTitle(_ context.Context, title string, price decimal.Decimal, carBrands, commonParts int) (*Tariff, error) {
	if t, ok := r.byTitle[title]; ok {
		return t, nil
	}
	return r.add(&Tariff{
		ID:               uuid.New(),
		Title:            title,
		Price:            price,
		CarBrandsCount:   carBrands,
		CommonPartsCount: commonParts,
	}), nil
}

type businessStoreStub struct {
	tariffID  *uuid.UUID
	userID    uuid.UUID
	endDay    *time.Time
	truncated [][2]int
	due       []*DueBusiness
}

func (b *businessStoreStub) GetAssignment(context.Context, uuid.UUID) (*uuid.UUID, uuid.UUID, error) {
	return b.tariffID, b.userID, nil
}

func (b *businessStoreStub) AssignTariff(_ context.Context, _ uuid.UUID, tariffID uuid.UUID, endDay *time.Time) error {
	b.tariffID = &tariffID
	b.endDay = endDay
	return nil
}

func (b *businessStoreStub) TruncateEntitlements(_ context.Context, _ uuid.UUID, carBrands, commonParts int) error {
	b.truncated = append(b.truncated, [2]int{carBrands, commonParts})
	return nil
}

func (b *businessStoreStub) ListWithEndDay(context.Context, time.Time) ([]*DueBusiness, error) {
	return b.due, nil
}

type ledgerStub struct {
	balance      decimal.Decimal
	transactions []*ledger.Transaction
	marked       map[uuid.UUID]bool
}

func newLedgerStub(balance int64) *ledgerStub {
	return &ledgerStub{balance: decimal.NewFromInt(balance), marked: make(map[uuid.UUID]bool)}
}

func (l *ledgerStub) GetBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return l.balance, nil
}

func (l *ledgerStub) Debit(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.GreaterThan(l.balance) {
		return decimal.Zero, ledger.ErrInsufficientFunds
	}
	l.balance = l.balance.Sub(amount)
	return l.balance, nil
}

func (l *ledgerStub) CreateTransaction(_ context.Context, businessID uuid.UUID, amount decimal.Decimal, kind ledger.TransactionKind, description string) (*ledger.Transaction, error) {
	t := &ledger.Transaction{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
	}
	l.transactions = append(l.transactions, t)
	return t, nil
}

func (l *ledgerStub) MarkTransaction(_ context.Context, id uuid.UUID, success bool) error {
	l.marked[id] = success
	return nil
}

type notifierStub struct {
	titles []string
}

func (n *notifierStub) NotifyTariff(_ context.Context, _ uuid.UUID, title, _ string, _ uuid.UUID) {
	n.titles = append(n.titles, title)
}

func TestChangeTariffDebitsAndSetsEndDay(t *testing.T) {
	repo := newTariffRepoStub()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150), CarBrandsCount: 5, CommonPartsCount: 5})
	businesses := &businessStoreStub{userID: uuid.New()}
	led := newLedgerStub(200)
	svc := NewService(repo, businesses, led, &notifierStub{}, "Стандарт")

	got, err := svc.ChangeTariff(context.Background(), uuid.New(), paid.ID)
	if err != nil {
		t.Fatalf("change failed: %v", err)
	}
	if got.ID != paid.ID {
		t.Fatalf("expected tariff %s, got %s", paid.ID, got.ID)
	}
	if !led.balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50, got %s", led.balance)
	}
	if businesses.endDay == nil {
		t.Fatal("expected end day to be set for a paid tariff")
	}
	wantEnd := time.Now().AddDate(0, 1, 0)
	if businesses.endDay.Sub(wantEnd) > time.Minute || wantEnd.Sub(*businesses.endDay) > time.Minute {
		t.Fatalf("expected end day about one month out, got %s", businesses.endDay)
	}
	if len(led.transactions) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", len(led.transactions))
	}
	tr := led.transactions[0]
	if tr.Kind != ledger.TransactionKindWithdrawal || !tr.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected transaction: %+v", tr)
	}
	if !led.marked[tr.ID] {
		t.Fatal("expected transaction flagged success")
	}
	if len(businesses.truncated) != 1 || businesses.truncated[0] != [2]int{5, 5} {
		t.Fatalf("expected entitlements truncated to new caps, got %v", businesses.truncated)
	}
}

func TestChangeTariffInsufficientFundsKeepsTariff(t *testing.T) {
	repo := newTariffRepoStub()
	oldID := uuid.New()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150)})
	businesses := &businessStoreStub{tariffID: &oldID}
	led := newLedgerStub(100)
	svc := NewService(repo, businesses, led, &notifierStub{}, "Стандарт")

	_, err := svc.ChangeTariff(context.Background(), uuid.New(), paid.ID)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if *businesses.tariffID != oldID {
		t.Fatal("expected tariff unchanged on failed debit")
	}
	if !led.balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance unchanged, got %s", led.balance)
	}
	if len(led.transactions) != 1 {
		t.Fatalf("expected exactly one failed transaction, got %d", len(led.transactions))
	}
	if success, flagged := led.marked[led.transactions[0].ID]; !flagged || success {
		t.Fatal("expected transaction flagged success=false")
	}
}

func TestChangeTariffSameTariff(t *testing.T) {
	repo := newTariffRepoStub()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150)})
	businesses := &businessStoreStub{tariffID: &paid.ID}
	svc := NewService(repo, businesses, newLedgerStub(500), &notifierStub{}, "Стандарт")

	if _, err := svc.ChangeTariff(context.Background(), uuid.New(), paid.ID); !errors.Is(err, ErrSameTariff) {
		t.Fatalf("expected ErrSameTariff, got %v", err)
	}
}

func TestChangeTariffToFreeSkipsDebit(t *testing.T) {
	repo := newTariffRepoStub()
	free := repo.add(&Tariff{ID: uuid.New(), Title: "Стандарт", Price: decimal.Zero, CarBrandsCount: 1, CommonPartsCount: 1})
	businesses := &businessStoreStub{}
	led := newLedgerStub(30)
	svc := NewService(repo, businesses, led, &notifierStub{}, "Стандарт")

	if _, err := svc.ChangeTariff(context.Background(), uuid.New(), free.ID); err != nil {
		t.Fatalf("change to free tariff failed: %v", err)
	}
	if businesses.endDay != nil {
		t.Fatal("expected nil end day for a free tariff")
	}
	if !led.balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected balance untouched, got %s", led.balance)
	}
}

func TestRenewalSweepDowngradesOnInsufficientFunds(t *testing.T) {
	repo := newTariffRepoStub()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150), CarBrandsCount: 5, CommonPartsCount: 5})
	userID := uuid.New()
	businesses := &businessStoreStub{
		tariffID: &paid.ID,
		due:      []*DueBusiness{{ID: uuid.New(), UserID: userID, TariffID: paid.ID}},
	}
	led := newLedgerStub(100)
	notifier := &notifierStub{}
	svc := NewService(repo, businesses, led, notifier, "Стандарт")

	if err := svc.RenewalSweep(context.Background(), time.Now()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	standard := repo.byTitle["Стандарт"]
	if standard == nil {
		t.Fatal("expected default tariff to be created")
	}
	if *businesses.tariffID != standard.ID {
		t.Fatal("expected business downgraded to default tariff")
	}
	if businesses.endDay != nil {
		t.Fatal("expected end day cleared on downgrade")
	}
	if len(led.transactions) != 1 {
		t.Fatalf("expected one failed transaction, got %d", len(led.transactions))
	}
	if success := led.marked[led.transactions[0].ID]; success {
		t.Fatal("expected failed transaction flag")
	}
	if len(notifier.titles) != 1 || notifier.titles[0] != "Ваш тариф обновлён" {
		t.Fatalf("expected update notification, got %v", notifier.titles)
	}
}

func TestRenewalSweepAdvancesEndDay(t *testing.T) {
	repo := newTariffRepoStub()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150)})
	businesses := &businessStoreStub{
		tariffID: &paid.ID,
		due:      []*DueBusiness{{ID: uuid.New(), UserID: uuid.New(), TariffID: paid.ID}},
	}
	led := newLedgerStub(500)
	notifier := &notifierStub{}
	svc := NewService(repo, businesses, led, notifier, "Стандарт")

	today := time.Now()
	if err := svc.RenewalSweep(context.Background(), today); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if !led.balance.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected balance 350 after renewal debit, got %s", led.balance)
	}
	if businesses.endDay == nil {
		t.Fatal("expected advanced end day")
	}
	want := today.AddDate(0, 1, 0)
	if !businesses.endDay.Equal(want) {
		t.Fatalf("expected end day %s, got %s", want, businesses.endDay)
	}
	if len(notifier.titles) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.titles))
	}
}

func TestExpiringSweepSkipsFreeTariffs(t *testing.T) {
	repo := newTariffRepoStub()
	paid := repo.add(&Tariff{ID: uuid.New(), Title: "Бизнес", Price: decimal.NewFromInt(150)})
	free := repo.add(&Tariff{ID: uuid.New(), Title: "Стандарт", Price: decimal.Zero})
	businesses := &businessStoreStub{
		due: []*DueBusiness{
			{ID: uuid.New(), UserID: uuid.New(), TariffID: paid.ID},
			{ID: uuid.New(), UserID: uuid.New(), TariffID: free.ID},
		},
	}
	notifier := &notifierStub{}
	svc := NewService(repo, businesses, newLedgerStub(0), notifier, "Стандарт")

	if err := svc.ExpiringSweep(context.Background(), time.Now()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(notifier.titles) != 1 || notifier.titles[0] != "Ваш тариф скоро закончится" {
		t.Fatalf("expected a single expiring notification, got %v", notifier.titles)
	}
}
