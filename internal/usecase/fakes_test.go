package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

// store: общее состояние фейковых репозиториев. Транзакция фейкового
// менеджера делает снимок store и восстанавливает его при ошибке.
type store struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	events   []*OutboxEvent
}

func newStore() *store {
	return &store{
		products: make(map[string]*domain.Product),
		orders:   make(map[string]*domain.Order),
	}
}

type snapshot struct {
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	events   int
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		products: make(map[string]*domain.Product, len(s.products)),
		orders:   make(map[string]*domain.Order, len(s.orders)),
		events:   len(s.events),
	}
	for id, p := range s.products {
		snap.products[id] = p.Clone()
	}
	for id, o := range s.orders {
		snap.orders[id] = o.Clone()
	}

	return snap
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.orders = snap.orders
	s.events = s.events[:snap.events]
}

func (s *store) putProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p.Clone()
}

func (s *store) product(t *testing.T, id string) *domain.Product {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		t.Fatalf("product %s is not stored", id)
	}
	return p.Clone()
}

func (s *store) order(t *testing.T, id string) *domain.Order {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		t.Fatalf("order %s is not stored", id)
	}
	return o.Clone()
}

func (s *store) ordersCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *store) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventType
	}
	return out
}

type txKey struct{}

// fakeTxManager выполняет транзакции строго по одной.
type fakeTxManager struct {
	mu    sync.Mutex
	s     *store
	calls int
}

func (f *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	snap := f.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		f.s.restore(snap)
		return err
	}

	return nil
}

type fakeProductRepo struct {
	s *store
	// beforeSave вызывается перед условным сохранением, например чтобы сымитировать параллельную запись.
	beforeSave func(p *domain.Product)
	saveErr    error
	infoCalls  [][]string
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	return p.Clone(), nil
}

func (r *fakeProductRepo) SaveItems(_ context.Context, p *domain.Product) error {
	if r.beforeSave != nil {
		r.beforeSave(p)
	}
	if r.saveErr != nil {
		return r.saveErr
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[p.ID]
	if !ok {
		return e.ErrProductNotFound
	}
	if stored.Version != p.Version {
		return e.ErrWriteConflict
	}

	stored.Items = p.Clone().Items
	stored.Version++
	p.Version = stored.Version
	return nil
}

func (r *fakeProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; ok {
		return nil, fmt.Errorf("product %s already exists", p.ID)
	}
	r.s.products[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (r *fakeProductRepo) GetProductsInfo(_ context.Context, ids []string) ([]ProductInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.infoCalls = append(r.infoCalls, slices.Clone(ids))
	var out []ProductInfo
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok && p.Active {
			out = append(out, NewProductInfo(p))
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	s             *store
	lastFind      *FindOrdersReq
	setReturnErr  error
	getByIDCalled int
}

func (r *fakeOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	r.s.orders[o.ID] = o.Clone()
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.getByIDCalled++

	o, ok := r.s.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *fakeOrderRepo) GetByInvoiceID(_ context.Context, invoiceID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.InvoiceID != nil && *o.InvoiceID == invoiceID {
			return o.Clone(), nil
		}
	}
	return nil, e.ErrOrderNotFound
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[o.ID]
	if !ok {
		return e.ErrOrderNotFound
	}
	c := o.Clone()
	stored.Status = c.Status
	stored.StatusHistory = c.StatusHistory
	stored.LastStatusUpdateDate = c.LastStatusUpdateDate
	return nil
}

func (r *fakeOrderRepo) SetItemsReturned(_ context.Context, id string) error {
	if r.setReturnErr != nil {
		return r.setReturnErr
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[id]
	if !ok {
		return e.ErrOrderNotFound
	}
	if stored.IsItemsReturned {
		return e.ErrWriteConflict
	}
	stored.IsItemsReturned = true
	return nil
}

func (r *fakeOrderRepo) SetInvoice(_ context.Context, id string, invoiceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[id]
	if !ok {
		return e.ErrOrderNotFound
	}
	stored.InvoiceID = &invoiceID
	return nil
}

func (r *fakeOrderRepo) Find(_ context.Context, req *FindOrdersReq) ([]*domain.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q := *req
	r.lastFind = &q

	var matched []*domain.Order
	for _, o := range r.s.orders {
		if len(req.Statuses) > 0 && !slices.Contains(req.Statuses, o.Status) {
			continue
		}
		if req.PhoneNumber != "" && o.PhoneNumber != req.PhoneNumber {
			continue
		}
		matched = append(matched, o.Clone())
	}

	slices.SortFunc(matched, func(a, b *domain.Order) int {
		c := a.CreateDate.Compare(b.CreateDate)
		if req.SortBy == SortByTotalPrice {
			c = cmp.Compare(a.TotalPrice, b.TotalPrice)
		}
		if req.SortDesc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	start := min(int(req.Skip), len(matched))
	end := min(start+int(req.Limit), len(matched))
	return matched[start:end], total, nil
}

type fakeOutboxRepo struct {
	s *store
}

func (r *fakeOutboxRepo) Create(_ context.Context, ev *OutboxEvent) (*OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *ev
	c.ID = int64(len(r.s.events) + 1)
	r.s.events = append(r.s.events, &c)
	return &c, nil
}

func (r *fakeOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkAsProcessed(context.Context, int64) error { return nil }

func (r *fakeOutboxRepo) MarkAsPending(context.Context, int64) error { return nil }

type fakeCacheRepo struct {
	mu      sync.Mutex
	items   map[string]ProductInfo
	getErr  error
	deleted [][]string
	setCh   chan []ProductInfo
}

func newFakeCache() *fakeCacheRepo {
	return &fakeCacheRepo{items: make(map[string]ProductInfo), setCh: make(chan []ProductInfo, 8)}
}

func (c *fakeCacheRepo) GetProducts(_ context.Context, ids []string) (map[string]ProductInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string]ProductInfo)
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *fakeCacheRepo) SetProducts(_ context.Context, products []ProductInfo) error {
	c.mu.Lock()
	for _, p := range products {
		c.items[p.ID] = p
	}
	c.mu.Unlock()

	c.setCh <- products
	return nil
}

func (c *fakeCacheRepo) DeleteProducts(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleted = append(c.deleted, slices.Clone(ids))
	for _, id := range ids {
		delete(c.items, id)
	}
	return nil
}

type fakeRatesRepo struct {
	rates *domain.RateState
	err   error
}

func (r *fakeRatesRepo) Get(context.Context) (*domain.RateState, error) {
	return r.rates, r.err
}

func (r *fakeRatesRepo) Set(_ context.Context, rates *domain.RateState) error {
	r.rates = rates
	return nil
}

type fakeArchiveRepo struct {
	puts []*ArchivePaymentReq
	err  error
}

func (r *fakeArchiveRepo) Put(_ context.Context, req *ArchivePaymentReq) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.puts = append(r.puts, req)
	return fmt.Sprintf("%s/%d.json", req.InvoiceID, len(r.puts)), nil
}

// sequence возвращает детерминированный генератор id вида prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// ticker возвращает часы, которые сдвигаются на минуту при каждом вызове.
func ticker(start time.Time) func() time.Time {
	var (
		mu  sync.Mutex
		now = start
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

type orderFixture struct {
	uc       *OrderUseCase
	s        *store
	tm       *fakeTxManager
	products *fakeProductRepo
	orders   *fakeOrderRepo
	cache    *fakeCacheRepo
	rates    *fakeRatesRepo
	archive  *fakeArchiveRepo
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	s := newStore()
	f := &orderFixture{
		s:        s,
		tm:       &fakeTxManager{s: s},
		products: &fakeProductRepo{s: s},
		orders:   &fakeOrderRepo{s: s},
		cache:    newFakeCache(),
		rates:    &fakeRatesRepo{},
		archive:  &fakeArchiveRepo{},
	}

	f.uc = NewOrderUC(
		f.tm,
		f.products,
		f.orders,
		&fakeOutboxRepo{s: s},
		f.cache,
		f.rates,
		f.archive,
		logger.NewNop(),
		WithClock(ticker(testNow)),
		WithIDGenerator(sequence("id")),
	)

	return f
}

func variant(sku string, attrs domain.Attributes) domain.ItemVariant {
	return domain.ItemVariant{SKU: sku, Attributes: attrs}
}

func skus(items []domain.ItemVariant) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.SKU
	}
	return out
}
