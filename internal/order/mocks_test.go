package order

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/google/uuid"
)

// memStore backs every mock repository. Units of work are serialized and
// roll back orders and tables on error. Interleavings between a read and a
// guarded write are staged through MockOrderRepo.TransitionFunc.
type memStore struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	orders    map[uuid.UUID]*Order
	tables    map[uuid.UUID]*tables.Table
	carts     map[uuid.UUID][]Item
	addresses map[uuid.UUID]*Address
	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[uuid.UUID]*Order),
		tables:    make(map[uuid.UUID]*tables.Table),
		carts:     make(map[uuid.UUID][]Item),
		addresses: make(map[uuid.UUID]*Address),
	}
}

func (s *memStore) order(id uuid.UUID) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

func (s *memStore) table(id uuid.UUID) *tables.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil
	}
	return cloneTable(t)
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// MockUnitOfWork serializes units and restores a snapshot on failure.
type MockUnitOfWork struct {
	store *memStore
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.Lock()
	orders := make(map[uuid.UUID]*Order, len(m.store.orders))
	for id, o := range m.store.orders {
		orders[id] = cloneOrder(o)
	}
	tbls := make(map[uuid.UUID]*tables.Table, len(m.store.tables))
	for id, t := range m.store.tables {
		tbls[id] = cloneTable(t)
	}
	m.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.store.mu.Lock()
		m.store.orders = orders
		m.store.tables = tbls
		m.store.rollbacks++
		m.store.mu.Unlock()
		return err
	}

	m.store.mu.Lock()
	m.store.commits++
	m.store.mu.Unlock()
	return nil
}

type MockOrderRepo struct {
	store *memStore

	CreateFunc     func(ctx context.Context, o *Order) error
	TransitionFunc func(ctx context.Context, o *Order, expected []string) (bool, error)
	CountFunc      func(ctx context.Context, status string) (int64, error)
}

func (m *MockOrderRepo) Create(ctx context.Context, o *Order) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, o); err != nil {
			return err
		}
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.orders {
		if existing.Number == o.Number {
			return ErrDuplicateOrderNumber
		}
	}
	m.store.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return m.store.order(id), nil
}

func (m *MockOrderRepo) Transition(ctx context.Context, o *Order, expected []string) (bool, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, o, expected)
	}
	return m.store.transition(o, expected), nil
}

// transition is the guarded lifecycle write shared by the mock repository
// and tests that commit a competing transition mid-unit.
func (s *memStore) transition(o *Order, expected []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok || !contains(expected, stored.Status) {
		return false
	}

	stored.Status = o.Status
	stored.PayStatus = o.PayStatus
	stored.CheckoutTime = o.CheckoutTime
	stored.CancelTime = o.CancelTime
	stored.DeliveryTime = o.DeliveryTime
	stored.CancelReason = o.CancelReason
	stored.RejectionReason = o.RejectionReason
	stored.UpdatedAt = o.UpdatedAt
	stored.UpdatedBy = o.UpdatedBy
	return true
}

func (s *memStore) setTableStatus(id uuid.UUID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[id]; ok {
		t.Status = status
	}
}

func (m *MockOrderRepo) CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, o := range m.store.orders {
		if o.TableID != nil && *o.TableID == tableID && o.IsActive() {
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, status)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, o := range m.store.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, o := range m.store.orders {
		if o.UserID == userID && o.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) Search(ctx context.Context, q Query) (Page, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var matched []*Order
	for _, o := range m.store.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if q.Number != "" && !strings.Contains(o.Number, q.Number) {
			continue
		}
		if q.From != nil && o.OrderTime.Before(*q.From) {
			continue
		}
		if q.To != nil && o.OrderTime.After(*q.To) {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OrderTime.After(matched[j].OrderTime)
	})

	page := Page{Total: int64(len(matched))}
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page.Records = matched[start:end]
	return page, nil
}

// MockTableRepo is a tables.TableRepo over the shared store.
type MockTableRepo struct {
	store *memStore

	CompareAndSetFunc func(ctx context.Context, id uuid.UUID, guard tables.Guard, next tables.Assignment) (*tables.Table, error)
}

func (m *MockTableRepo) Create(ctx context.Context, t *tables.Table) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.tables[t.ID] = cloneTable(t)
	return nil
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	return m.store.table(id), nil
}

func (m *MockTableRepo) GetByNumber(ctx context.Context, number string) (*tables.Table, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, t := range m.store.tables {
		if t.Number == number {
			return cloneTable(t), nil
		}
	}
	return nil, nil
}

func (m *MockTableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []*tables.Table
	for _, t := range m.store.tables {
		result = append(result, cloneTable(t))
	}
	return result, nil
}

func (m *MockTableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []*tables.Table
	for _, t := range m.store.tables {
		if t.Status == status {
			result = append(result, cloneTable(t))
		}
	}
	return result, nil
}

func (m *MockTableRepo) Save(ctx context.Context, t *tables.Table) error {
	return nil
}

func (m *MockTableRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (m *MockTableRepo) CompareAndSet(ctx context.Context, id uuid.UUID, guard tables.Guard, next tables.Assignment) (*tables.Table, error) {
	if m.CompareAndSetFunc != nil {
		return m.CompareAndSetFunc(ctx, id, guard, next)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	t, ok := m.store.tables[id]
	if !ok || !contains(guard.Statuses, t.Status) {
		return nil, nil
	}
	if guard.Holder != nil && (t.OrderID == nil || *t.OrderID != *guard.Holder) {
		return nil, nil
	}

	before := cloneTable(t)
	t.Status = next.Status
	t.OrderID = nil
	if next.Holder != nil {
		holder := *next.Holder
		t.OrderID = &holder
	}
	t.UpdatedBy = next.By
	return before, nil
}

type MockCarts struct {
	store *memStore

	ListFunc  func(ctx context.Context, userID uuid.UUID) ([]Item, error)
	ClearFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *MockCarts) ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]Item(nil), m.store.carts[userID]...), nil
}

func (m *MockCarts) AddItems(ctx context.Context, userID uuid.UUID, items []Item) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.carts[userID] = MergeItems(m.store.carts[userID], items)
	return nil
}

func (m *MockCarts) Clear(ctx context.Context, userID uuid.UUID) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, userID)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.carts, userID)
	return nil
}

type MockAddresses struct {
	store *memStore
}

func (m *MockAddresses) Resolve(ctx context.Context, id uuid.UUID) (*Address, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	a, ok := m.store.addresses[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *MockAddresses) Create(ctx context.Context, a *Address) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c := *a
	m.store.addresses[a.ID] = &c
	return nil
}

// MockNotifier records notifications.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []Notification
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
}

func (m *MockNotifier) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// MockAnomalies records reported anomalies.
type MockAnomalies struct {
	mu       sync.Mutex
	Reported []*ReconciliationError
}

func (m *MockAnomalies) Report(ctx context.Context, anomaly *ReconciliationError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reported = append(m.Reported, anomaly)
}

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Topics      []string
	Messages    [][]byte
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics = append(m.Topics, topic)
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.Topics {
		if t == topic {
			n++
		}
	}
	return n
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	return &c
}

func cloneTable(t *tables.Table) *tables.Table {
	c := *t
	if t.OrderID != nil {
		holder := *t.OrderID
		c.OrderID = &holder
	}
	return &c
}
