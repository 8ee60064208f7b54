package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cheeseshop/internal/infra/persistence/memory"
	"cheeseshop/pkg/domain"
)

// Clock supplies the evaluation time for date validation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the structured logging surface the service needs. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for validation.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the operation logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Service exposes transactional catalog operations. Each write runs in a
// single store transaction with validation inside it, so a failed
// validation or lookup leaves no trace.
type Service struct {
	store   domain.PersistentStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	switch {
	case err == nil:
		s.logger.Debug("catalog operation completed", "operation", op, "duration", duration)
	case domain.IsValidation(err) || domain.IsNotFound(err):
		s.logger.Info("catalog operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("catalog operation failed", "operation", op, "error", err)
	}
	return err
}

// ListProducers returns every producer ordered by id.
func (s *Service) ListProducers(ctx context.Context) ([]domain.Producer, error) {
	var out []domain.Producer
	err := s.run(ctx, "list_producers", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			out, err = v.ListProducers()
			return err
		})
	})
	return out, err
}

// GetProducer returns a producer together with its cheeses.
func (s *Service) GetProducer(ctx context.Context, id int64) (domain.Producer, []domain.Cheese, error) {
	var (
		producer domain.Producer
		cheeses  []domain.Cheese
	)
	err := s.run(ctx, "get_producer", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			if producer, err = v.FindProducer(id); err != nil {
				return err
			}
			cheeses, err = v.ListCheesesByProducer(id)
			return err
		})
	})
	return producer, cheeses, err
}

// CreateProducer validates and persists a new producer.
func (s *Service) CreateProducer(ctx context.Context, in domain.ProducerInput) (domain.Producer, error) {
	var created domain.Producer
	err := s.run(ctx, "create_producer", func(ctx context.Context) error {
		producer, err := domain.NewProducer(in)
		if err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateProducer(producer)
			return err
		})
	})
	return created, err
}

// DeleteProducer removes a producer and all of its cheeses atomically.
func (s *Service) DeleteProducer(ctx context.Context, id int64) error {
	return s.run(ctx, "delete_producer", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteProducer(id)
		})
	})
}

// ListCheeses returns every cheese ordered by id.
func (s *Service) ListCheeses(ctx context.Context) ([]domain.Cheese, error) {
	var out []domain.Cheese
	err := s.run(ctx, "list_cheeses", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			out, err = v.ListCheeses()
			return err
		})
	})
	return out, err
}

// GetCheese returns a cheese and its producer.
func (s *Service) GetCheese(ctx context.Context, id int64) (domain.Cheese, domain.Producer, error) {
	var (
		cheese   domain.Cheese
		producer domain.Producer
	)
	err := s.run(ctx, "get_cheese", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			if cheese, err = v.FindCheese(id); err != nil {
				return err
			}
			producer, err = v.FindProducer(cheese.ProducerID)
			return err
		})
	})
	return cheese, producer, err
}

// CreateCheese resolves the producer, validates the fields and persists the
// cheese in one transaction.
func (s *Service) CreateCheese(ctx context.Context, in domain.CheeseInput) (domain.Cheese, domain.Producer, error) {
	var (
		created  domain.Cheese
		producer domain.Producer
	)
	err := s.run(ctx, "create_cheese", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var refErr error
			if in.ProducerID > 0 {
				var err error
				if producer, err = tx.FindProducer(in.ProducerID); err != nil {
					if refErr = producerReference(err); !domain.IsValidation(refErr) {
						return refErr
					}
				}
			}
			cheese, err := domain.NewCheese(in, s.clock.Now())
			if err = errors.Join(refErr, err); err != nil {
				return err
			}
			created, err = tx.CreateCheese(cheese)
			return producerReference(err)
		})
	})
	return created, producer, err
}

// UpdateCheese applies a partial update. Either every field in the patch is
// stored or none is.
func (s *Service) UpdateCheese(ctx context.Context, id int64, patch domain.CheesePatch) (domain.Cheese, domain.Producer, error) {
	var (
		updated  domain.Cheese
		producer domain.Producer
	)
	err := s.run(ctx, "update_cheese", func(ctx context.Context) error {
		if patch.Empty() {
			return s.store.View(ctx, func(v domain.TransactionView) error {
				var err error
				if updated, err = v.FindCheese(id); err != nil {
					return err
				}
				producer, err = v.FindProducer(updated.ProducerID)
				return err
			})
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateCheese(id, func(c *domain.Cheese) error {
				return patch.Apply(c, s.clock.Now())
			})
			if err != nil {
				return producerReference(err)
			}
			producer, err = tx.FindProducer(updated.ProducerID)
			return err
		})
	})
	return updated, producer, err
}

// producerReference turns a missing producer behind a cheese write into a
// producer_id validation failure. Missing cheeses stay not-found.
func producerReference(err error) error {
	var nf domain.ErrNotFound
	if errors.As(err, &nf) && nf.Entity == domain.EntityProducer {
		return &domain.ValidationError{Field: "producer_id", Message: fmt.Sprintf("producer %d does not exist", nf.ID)}
	}
	return err
}

// DeleteCheese removes a single cheese.
func (s *Service) DeleteCheese(ctx context.Context, id int64) error {
	return s.run(ctx, "delete_cheese", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteCheese(id)
		})
	})
}

// CatalogSnapshot is a consistent read of every producer with its cheeses.
type CatalogSnapshot struct {
	Producers []domain.ProducerDetail
	TakenAt   time.Time
}

// Snapshot reads all producers and cheeses inside one view.
func (s *Service) Snapshot(ctx context.Context) (CatalogSnapshot, error) {
	snap := CatalogSnapshot{TakenAt: s.clock.Now()}
	err := s.run(ctx, "snapshot_catalog", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			producers, err := v.ListProducers()
			if err != nil {
				return err
			}
			cheeses, err := v.ListCheeses()
			if err != nil {
				return err
			}
			byProducer := make(map[int64][]domain.Cheese, len(producers))
			for _, c := range cheeses {
				byProducer[c.ProducerID] = append(byProducer[c.ProducerID], c)
			}
			snap.Producers = make([]domain.ProducerDetail, 0, len(producers))
			for _, p := range producers {
				snap.Producers = append(snap.Producers, p.Detail(byProducer[p.ID]))
			}
			return nil
		})
	})
	return snap, err
}
