// Package ordertest provides an in-memory order.Repository for tests.
package ordertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/pkg/database"
	"github.com/shopverse/checkout-api/internal/pkg/database/txtest"
)

// Repository keeps orders in memory. Writes made inside a txtest
// transaction are undone when it rolls back.
type Repository struct {
	txtest.Locker

	mu       sync.Mutex
	orders   map[uuid.UUID]*order.Order
	failNext error
}

var _ order.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{orders: map[uuid.UUID]*order.Order{}}
}

func (m *Repository) saveLocked(tx database.Tx, o *order.Order) {
	prev, existed := m.orders[o.ID]
	cp := *o
	m.orders[o.ID] = &cp
	if h := txtest.Hooks(tx); h != nil {
		h.OnRollback(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if existed {
				m.orders[o.ID] = prev
			} else {
				delete(m.orders, o.ID)
			}
		})
	}
}

func (m *Repository) CreateTx(ctx context.Context, tx database.Tx, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	m.saveLocked(tx, o)
	return nil
}

func (m *Repository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *Repository) GetForUpdateTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*order.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return []*order.Order{}, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func (m *Repository) UpdateStatusTx(ctx context.Context, tx database.Tx, o *order.Order) error {
	return m.update(tx, o)
}

func (m *Repository) UpdatePaymentTx(ctx context.Context, tx database.Tx, o *order.Order) error {
	return m.update(tx, o)
}

func (m *Repository) update(tx database.Tx, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	m.saveLocked(tx, o)
	return nil
}

func (m *Repository) SetGatewayOrderTx(ctx context.Context, tx database.Tx, id uuid.UUID, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	cp.GatewayOrderID = &gatewayOrderID
	m.saveLocked(tx, &cp)
	return nil
}

// Put stores o directly
func (m *Repository) Put(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// Count returns the number of stored orders
func (m *Repository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// FailNext makes the next write return err
func (m *Repository) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Repository) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}
