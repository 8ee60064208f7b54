package domain

import "context"

// TransactionView provides read access to catalog state. Lists are ordered by
// ascending id.
type TransactionView interface {
	ListProducers() ([]Producer, error)
	FindProducer(id int64) (Producer, error)
	ListCheeses() ([]Cheese, error)
	ListCheesesByProducer(producerID int64) ([]Cheese, error)
	FindCheese(id int64) (Cheese, error)
}

// Transaction exposes the mutations a persistence implementation must
// support within an atomic scope. Finders return ErrNotFound for unknown
// ids, and so do deletes and updates.
type Transaction interface {
	TransactionView
	CreateProducer(Producer) (Producer, error)
	// DeleteProducer removes the producer and every cheese that references it.
	DeleteProducer(id int64) error
	// CreateCheese fails with ErrNotFound when the producer does not exist.
	CreateCheese(Cheese) (Cheese, error)
	// UpdateCheese loads the cheese, applies mutator, and writes the result.
	// A mutator error aborts the update.
	UpdateCheese(id int64, mutator func(*Cheese) error) (Cheese, error)
	DeleteCheese(id int64) error
}

// PersistentStore is the storage abstraction used by the service layer.
// RunInTransaction commits only when fn returns nil; otherwise no change made
// by fn is observable.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
