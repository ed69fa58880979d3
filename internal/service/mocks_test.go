package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/messaging"

	"github.com/google/uuid"
)

type fakeOrderRepo struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.OrderReview
	items       map[uuid.UUID][]domain.OrderItem
	details     map[uuid.UUID]domain.FulfillmentDetails
	snapshotErr error
	approveErr  error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[uuid.UUID]*domain.OrderReview),
		items:   make(map[uuid.UUID][]domain.OrderItem),
		details: make(map[uuid.UUID]domain.FulfillmentDetails),
	}
}

func (f *fakeOrderRepo) add(order *domain.OrderReview, items ...domain.OrderItem) {
	f.orders[order.ID] = order
	f.items[order.ID] = items
}

func (f *fakeOrderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.OrderReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) FindLatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.OrderReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var candidates []*domain.OrderReview
	for _, o := range f.orders {
		if o.UserID == userID && o.Status == domain.OrderPendingPayment {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (f *fakeOrderRepo) ApproveIfPending(ctx context.Context, id uuid.UUID, orderNumber string, reviewedAt time.Time) (bool, error) {
	if f.approveErr != nil {
		return false, f.approveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != domain.OrderPendingPayment {
		return false, nil
	}
	order.Status = domain.OrderApprovedProcessing
	order.OrderNumber = orderNumber
	order.ReviewedAt = &reviewedAt
	return true, nil
}

func (f *fakeOrderRepo) UpdateFulfillmentDetails(ctx context.Context, id uuid.UUID, d domain.FulfillmentDetails) error {
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[id] = d
	return nil
}

func (f *fakeOrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) FindStalePending(ctx context.Context, olderThan time.Duration) ([]domain.OrderReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OrderReview
	cutoff := time.Now().Add(-olderThan)
	for _, o := range f.orders {
		if o.Status == domain.OrderPendingPayment && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.OrderReview, items []domain.OrderItem) error {
	f.add(order, items...)
	return nil
}

type fakeStockRepo struct {
	mu           sync.Mutex
	stock        map[uuid.UUID]int
	claimed      map[uuid.UUID]bool
	claimErr     error
	decrementErr error
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		stock:   make(map[uuid.UUID]int),
		claimed: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStockRepo) ClaimDeduction(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[orderID] {
		return false, nil
	}
	f.claimed[orderID] = true
	return true, nil
}

func (f *fakeStockRepo) DecrementFloored(ctx context.Context, productID uuid.UUID, quantity int) error {
	if f.decrementErr != nil {
		return f.decrementErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.stock[productID]
	if !ok {
		return errors.New("product not found")
	}
	current -= quantity
	if current < 0 {
		current = 0
	}
	f.stock[productID] = current
	return nil
}

func (f *fakeStockRepo) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[productID], nil
}

func (f *fakeStockRepo) CreateProduct(ctx context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[p.ID] = p.Stock
	return nil
}

type fakeLedgerRepo struct {
	mu        sync.Mutex
	entries   map[string]*domain.LedgerEntry
	insertErr error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: make(map[string]*domain.LedgerEntry)}
}

func (f *fakeLedgerRepo) Insert(ctx context.Context, e *domain.LedgerEntry) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.entries[e.TransactionID]; exists {
		return false, nil
	}
	cp := *e
	f.entries[e.TransactionID] = &cp
	return true, nil
}

func (f *fakeLedgerRepo) FindByTransactionId(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

type emitted struct {
	room      string
	eventType string
	payload   map[string]any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *recordingNotifier) Emit(room, eventType string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{room: room, eventType: eventType, payload: payload})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.FulfillmentEvent
	err    error
}

func (p *recordingPublisher) PublishFulfillmentEvent(ctx context.Context, e *messaging.FulfillmentEvent) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
