package tables

import (
	"context"
	"sync"

	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

// MockTableRepo is an in-memory TableRepo. CompareAndSet is atomic under
// the mock's mutex, like the conditional update of a real store.
type MockTableRepo struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table

	GetFunc           func(ctx context.Context, id uuid.UUID) (*Table, error)
	CompareAndSetFunc func(ctx context.Context, id uuid.UUID, guard Guard, next Assignment) (*Table, error)
	ListFunc          func(ctx context.Context) ([]*Table, error)
	SaveFunc          func(ctx context.Context, table *Table) error
}

func NewMockTableRepo(tables ...*Table) *MockTableRepo {
	m := &MockTableRepo{tables: make(map[uuid.UUID]*Table)}
	for _, t := range tables {
		m.tables[t.ID] = clone(t)
	}
	return m
}

func (m *MockTableRepo) Create(ctx context.Context, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.Number == table.Number {
			return ErrDuplicateNumber
		}
	}
	m.tables[table.ID] = clone(table)
	return nil
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, nil
	}
	return clone(t), nil
}

func (m *MockTableRepo) GetByNumber(ctx context.Context, number string) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.Number == number {
			return clone(t), nil
		}
	}
	return nil, nil
}

func (m *MockTableRepo) List(ctx context.Context) ([]*Table, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		result = append(result, clone(t))
	}
	return result, nil
}

func (m *MockTableRepo) ListByStatus(ctx context.Context, status string) ([]*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Table
	for _, t := range m.tables {
		if t.Status == status {
			result = append(result, clone(t))
		}
	}
	return result, nil
}

func (m *MockTableRepo) Save(ctx context.Context, table *Table) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tables[table.ID]
	if !ok {
		return ErrTableNotFound
	}
	current.Number = table.Number
	current.Capacity = table.Capacity
	current.Sort = table.Sort
	current.UpdatedAt = table.UpdatedAt
	current.UpdatedBy = table.UpdatedBy
	return nil
}

func (m *MockTableRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok || t.IsHeld() {
		return false, nil
	}
	delete(m.tables, id)
	return true, nil
}

func (m *MockTableRepo) CompareAndSet(ctx context.Context, id uuid.UUID, guard Guard, next Assignment) (*Table, error) {
	if m.CompareAndSetFunc != nil {
		return m.CompareAndSetFunc(ctx, id, guard, next)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[id]
	if !ok || !guardMatches(t, guard) {
		return nil, nil
	}

	before := clone(t)
	t.Status = next.Status
	t.OrderID = nil
	if next.Holder != nil {
		holder := *next.Holder
		t.OrderID = &holder
	}
	t.UpdatedBy = next.By
	return before, nil
}

// status reads the stored status directly, bypassing GetFunc.
func (m *MockTableRepo) status(id uuid.UUID) (string, *uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return "", nil
	}
	return t.Status, t.OrderID
}

func guardMatches(t *Table, guard Guard) bool {
	matched := false
	for _, s := range guard.Statuses {
		if t.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if guard.Holder == nil {
		return true
	}
	return t.OrderID != nil && *t.OrderID == *guard.Holder
}

func clone(t *Table) *Table {
	c := *t
	if t.OrderID != nil {
		holder := *t.OrderID
		c.OrderID = &holder
	}
	return &c
}

// MockPublisher records published messages.
type MockPublisher struct {
	mu          sync.Mutex
	Messages    []PublishedMessage
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

type PublishedMessage struct {
	Topic string
	Data  []byte
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
	m.Messages = append(m.Messages, PublishedMessage{Topic: topic, Data: msg})
	return nil
}

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.Messages {
		if msg.Topic == topic {
			n++
		}
	}
	return n
}

// MockSubscriber is a mock implementation of events.Subscriber for testing
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// MockOrderCounter is a fixed ActiveOrderCounter.
type MockOrderCounter struct {
	Counts map[uuid.UUID]int64
	Err    error
}

func (m *MockOrderCounter) CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Counts[tableID], nil
}

func newTestTable(id, number, status string) *Table {
	t := NewTable()
	t.ID = uuid.MustParse(id)
	t.Number = number
	t.Status = status
	t.Capacity = 4
	return t
}
