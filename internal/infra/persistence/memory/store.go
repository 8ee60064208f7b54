// Package memory provides an in-memory implementation of the catalog
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"cheeseshop/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type memoryState struct {
	producers    map[int64]domain.Producer
	cheeses      map[int64]domain.Cheese
	nextProducer int64
	nextCheese   int64
}

func newMemoryState() memoryState {
	return memoryState{
		producers: make(map[int64]domain.Producer),
		cheeses:   make(map[int64]domain.Cheese),
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		producers:    make(map[int64]domain.Producer, len(s.producers)),
		cheeses:      make(map[int64]domain.Cheese, len(s.cheeses)),
		nextProducer: s.nextProducer,
		nextCheese:   s.nextCheese,
	}
	for k, v := range s.producers {
		out.producers[k] = v.Clone()
	}
	for k, v := range s.cheeses {
		out.cheeses[k] = v.Clone()
	}
	return out
}

// Store keeps catalog state in process memory. Transactions run against a
// clone of the state which replaces the live state on success.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// RunInTransaction applies fn to a cloned state and publishes it if fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{view: view{state: ptr(s.state.clone())}}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = *tx.state
	return nil
}

// View runs fn against a read-only clone of the current state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&view{state: &snapshot})
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func ptr[T any](v T) *T { return &v }

type view struct {
	state *memoryState
}

func (v *view) ListProducers() ([]domain.Producer, error) {
	out := make([]domain.Producer, 0, len(v.state.producers))
	for _, p := range v.state.producers {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) FindProducer(id int64) (domain.Producer, error) {
	p, ok := v.state.producers[id]
	if !ok {
		return domain.Producer{}, domain.ErrNotFound{Entity: domain.EntityProducer, ID: id}
	}
	return p.Clone(), nil
}

func (v *view) ListCheeses() ([]domain.Cheese, error) {
	return v.cheesesWhere(func(domain.Cheese) bool { return true }), nil
}

func (v *view) ListCheesesByProducer(producerID int64) ([]domain.Cheese, error) {
	return v.cheesesWhere(func(c domain.Cheese) bool { return c.ProducerID == producerID }), nil
}

func (v *view) FindCheese(id int64) (domain.Cheese, error) {
	c, ok := v.state.cheeses[id]
	if !ok {
		return domain.Cheese{}, domain.ErrNotFound{Entity: domain.EntityCheese, ID: id}
	}
	return c.Clone(), nil
}

func (v *view) cheesesWhere(keep func(domain.Cheese) bool) []domain.Cheese {
	out := make([]domain.Cheese, 0)
	for _, c := range v.state.cheeses {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type transaction struct {
	view
}

func (tx *transaction) CreateProducer(p domain.Producer) (domain.Producer, error) {
	tx.state.nextProducer++
	p = p.Clone()
	p.ID = tx.state.nextProducer
	tx.state.producers[p.ID] = p
	return p.Clone(), nil
}

func (tx *transaction) DeleteProducer(id int64) error {
	if _, ok := tx.state.producers[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityProducer, ID: id}
	}
	for cid, c := range tx.state.cheeses {
		if c.ProducerID == id {
			delete(tx.state.cheeses, cid)
		}
	}
	delete(tx.state.producers, id)
	return nil
}

func (tx *transaction) CreateCheese(c domain.Cheese) (domain.Cheese, error) {
	if _, ok := tx.state.producers[c.ProducerID]; !ok {
		return domain.Cheese{}, domain.ErrNotFound{Entity: domain.EntityProducer, ID: c.ProducerID}
	}
	tx.state.nextCheese++
	c = c.Clone()
	c.ID = tx.state.nextCheese
	tx.state.cheeses[c.ID] = c
	return c.Clone(), nil
}

func (tx *transaction) UpdateCheese(id int64, mutator func(*domain.Cheese) error) (domain.Cheese, error) {
	current, ok := tx.state.cheeses[id]
	if !ok {
		return domain.Cheese{}, domain.ErrNotFound{Entity: domain.EntityCheese, ID: id}
	}
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.Cheese{}, err
	}
	updated.ID = id
	if _, ok := tx.state.producers[updated.ProducerID]; !ok {
		return domain.Cheese{}, domain.ErrNotFound{Entity: domain.EntityProducer, ID: updated.ProducerID}
	}
	tx.state.cheeses[id] = updated
	return updated.Clone(), nil
}

func (tx *transaction) DeleteCheese(id int64) error {
	if _, ok := tx.state.cheeses[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityCheese, ID: id}
	}
	delete(tx.state.cheeses, id)
	return nil
}
