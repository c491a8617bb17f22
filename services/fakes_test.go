package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/keshav-const/BTP-sub000/repository"
)

// fakeProducts is an in-memory catalog with the same conditional stock
// semantics as the real stores.
type fakeProducts struct {
	mu           sync.Mutex
	items        map[string]*models.Product
	decrementErr map[string]error
	incrementErr map[string]error
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	f := &fakeProducts{
		items:        map[string]*models.Product{},
		decrementErr: map[string]error{},
		incrementErr: map[string]error{},
	}
	for i := range products {
		p := products[i]
		f.items[p.ID] = &p
	}
	return f
}

func (f *fakeProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []string) (map[string]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.decrementErr[id]; err != nil {
		return err
	}
	p, ok := f.items[id]
	switch {
	case !ok:
		return repository.ErrNotFound
	case !p.IsActive:
		return repository.ErrProductInactive
	case p.Stock < qty:
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProducts) IncrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.incrementErr[id]; err != nil {
		return err
	}
	p, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	return nil
}

func (f *fakeProducts) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Stock
}

func (f *fakeProducts) setPrice(id string, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Price = d(price)
}

type fakeCarts struct {
	mu       sync.Mutex
	carts    map[string]*models.Cart
	clearErr error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[string]*models.Cart{}}
}

func (f *fakeCarts) get(userID string) *models.Cart {
	c, ok := f.carts[userID]
	if !ok {
		now := time.Now().UTC()
		c = &models.Cart{ID: uuid.NewString(), UserID: userID, Items: []models.CartItem{}, CreatedAt: now, UpdatedAt: now}
		f.carts[userID] = c
	}
	return c
}

func snapshot(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp
}

func (f *fakeCarts) GetOrCreate(_ context.Context, userID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return snapshot(f.get(userID)), nil
}

func (f *fakeCarts) AddItem(_ context.Context, userID, productID string, qty int) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.get(userID)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			return snapshot(c), nil
		}
	}
	c.Items = append(c.Items, models.CartItem{ID: uuid.NewString(), ProductID: productID, Quantity: qty})
	return snapshot(c), nil
}

func (f *fakeCarts) SetItemQuantity(_ context.Context, userID, itemID string, qty int) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.get(userID)
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = qty
			return snapshot(c), nil
		}
	}
	return nil, repository.ErrItemNotFound
}

func (f *fakeCarts) RemoveItem(_ context.Context, userID, itemID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.get(userID)
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return snapshot(c), nil
		}
	}
	return nil, repository.ErrItemNotFound
}

func (f *fakeCarts) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.get(userID).Items = []models.CartItem{}
	return nil
}

func (f *fakeCarts) items(userID string) []models.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartItem(nil), f.get(userID).Items...)
}

type fakeOrders struct {
	mu            sync.Mutex
	byID          map[string]models.Order
	createCalls   int
	dupFailures   int
	createErr     error
	transitions   int
	transitionErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byID: map[string]models.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if f.dupFailures > 0 {
		f.dupFailures--
		return repository.ErrDuplicateKey
	}
	for _, o := range f.byID {
		if o.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateKey
		}
	}
	f.byID[order.ID] = *order
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) FindByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.OrderNumber == orderNumber {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrders) FindByUserID(_ context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Order
	for _, o := range f.byID {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	return paginate(all, page, limit), int64(len(all)), nil
}

func (f *fakeOrders) FindAll(_ context.Context, page, limit int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Order
	for _, o := range f.byID {
		all = append(all, o)
	}
	return paginate(all, page, limit), int64(len(all)), nil
}

func paginate(all []models.Order, page, limit int) []models.Order {
	start := repository.Offset(page, limit)
	if start >= len(all) {
		return []models.Order{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (f *fakeOrders) Transition(_ context.Context, next *models.Order, from models.OrderState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions++
	if f.transitionErr != nil {
		return f.transitionErr
	}
	cur, ok := f.byID[next.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.State() != from {
		return repository.ErrConflict
	}
	f.byID[next.ID] = *next
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeIdempotency) Claim(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.keys[key]; ok {
		return v, false, nil
	}
	f.keys[key] = ""
	f.ttls[key] = ttl
	return "", true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, orderID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = orderID
	f.ttls[key] = ttl
	return nil
}

func (f *fakeIdempotency) ttl(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key]
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// rollbackTx snapshots the catalog and restores it when fn fails, the way
// a store transaction discards its writes.
type rollbackTx struct {
	products *fakeProducts
}

func (tx rollbackTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.products.mu.Lock()
	saved := make(map[string]models.Product, len(tx.products.items))
	for id, p := range tx.products.items {
		saved[id] = *p
	}
	tx.products.mu.Unlock()

	err := fn(repository.MarkTransaction(ctx))
	if err != nil {
		tx.products.mu.Lock()
		for id, p := range saved {
			p := p
			tx.products.items[id] = &p
		}
		tx.products.mu.Unlock()
	}
	return err
}

type latencySample struct {
	name    string
	outcome string
	took    time.Duration
}

type recordingMetrics struct {
	mu        sync.Mutex
	counts    map[string]int
	latencies []latencySample
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *recordingMetrics) RecordLatency(_ context.Context, name string, took time.Duration, dims map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latencySample{name: name, outcome: dims["Outcome"], took: took})
	return nil
}
