// Package sqlstore implements the catalog persistence contract on top of
// database/sql. Dialect-specific packages supply the driver, DDL bundle, and
// placeholder style.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cheeseshop/internal/entitymodel/sqlbundle"
	"cheeseshop/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Dialect captures the differences between supported SQL engines.
type Dialect struct {
	Name string
	// DDL returns the idempotent schema bundle applied on open.
	DDL func() string
	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
}

// Store executes catalog operations against a relational database. Every
// RunInTransaction call maps to exactly one sql.Tx.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. Callers normally go through sqlite.Open or
// postgres.Open, which also apply the schema.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// ApplySchema executes the dialect's DDL bundle statement by statement.
func (s *Store) ApplySchema(ctx context.Context) error {
	if s.dialect.DDL == nil {
		return nil
	}
	for _, stmt := range sqlbundle.SplitStatements(s.dialect.DDL()) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RunInTransaction runs fn inside a database transaction and commits only
// when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (retErr error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && retErr == nil {
				retErr = fmt.Errorf("rollback: %w", rbErr)
			}
		}
	}()
	if err := fn(&transaction{view: view{ctx: ctx, q: sqlTx, store: s}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// View runs fn inside a transaction that is always rolled back, giving fn a
// consistent read of producers and cheeses.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()
	return fn(&view{ctx: ctx, q: sqlTx, store: s})
}

// rebind rewrites "?" placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	producerColumns = `id, name, founding_year, region, operation_size, image`
	cheeseColumns   = `id, producer_id, kind, is_raw_milk, production_date, image, price`
)

type view struct {
	ctx   context.Context
	q     queryer
	store *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProducer(row rowScanner) (domain.Producer, error) {
	var (
		p      domain.Producer
		size   string
		region sql.NullString
		image  sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.FoundingYear, &region, &size, &image); err != nil {
		return domain.Producer{}, err
	}
	p.OperationSize = domain.OperationSize(size)
	p.Region = fromNull(region)
	p.Image = fromNull(image)
	return p, nil
}

func scanCheese(row rowScanner) (domain.Cheese, error) {
	var (
		c     domain.Cheese
		date  any
		image sql.NullString
	)
	if err := row.Scan(&c.ID, &c.ProducerID, &c.Kind, &c.IsRawMilk, &date, &image, &c.Price); err != nil {
		return domain.Cheese{}, err
	}
	parsed, err := decodeDate(date)
	if err != nil {
		return domain.Cheese{}, err
	}
	c.ProductionDate = parsed
	c.Image = fromNull(image)
	return c, nil
}

// decodeDate accepts the representations drivers return for a stored date:
// time.Time from Postgres DATE columns, text from SQLite.
func decodeDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return parseStoredDate(d)
	case []byte:
		return parseStoredDate(string(d))
	default:
		return time.Time{}, fmt.Errorf("unsupported production_date type %T", v)
	}
}

func parseStoredDate(s string) (time.Time, error) {
	if len(s) >= len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode production_date: %w", err)
	}
	return t, nil
}

func (v *view) ListProducers() ([]domain.Producer, error) {
	rows, err := v.q.QueryContext(v.ctx, `SELECT `+producerColumns+` FROM producers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select producers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]domain.Producer, 0)
	for rows.Next() {
		p, err := scanProducer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan producer: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate producers: %w", err)
	}
	return out, nil
}

func (v *view) FindProducer(id int64) (domain.Producer, error) {
	row := v.q.QueryRowContext(v.ctx, v.store.rebind(`SELECT `+producerColumns+` FROM producers WHERE id = ?`), id)
	p, err := scanProducer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Producer{}, domain.ErrNotFound{Entity: domain.EntityProducer, ID: id}
	}
	if err != nil {
		return domain.Producer{}, fmt.Errorf("select producer %d: %w", id, err)
	}
	return p, nil
}

func (v *view) ListCheeses() ([]domain.Cheese, error) {
	return v.queryCheeses(`SELECT ` + cheeseColumns + ` FROM cheeses ORDER BY id`)
}

func (v *view) ListCheesesByProducer(producerID int64) ([]domain.Cheese, error) {
	return v.queryCheeses(v.store.rebind(`SELECT `+cheeseColumns+` FROM cheeses WHERE producer_id = ? ORDER BY id`), producerID)
}

func (v *view) queryCheeses(query string, args ...any) ([]domain.Cheese, error) {
	rows, err := v.q.QueryContext(v.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cheeses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]domain.Cheese, 0)
	for rows.Next() {
		c, err := scanCheese(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cheese: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cheeses: %w", err)
	}
	return out, nil
}

func (v *view) FindCheese(id int64) (domain.Cheese, error) {
	row := v.q.QueryRowContext(v.ctx, v.store.rebind(`SELECT `+cheeseColumns+` FROM cheeses WHERE id = ?`), id)
	c, err := scanCheese(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cheese{}, domain.ErrNotFound{Entity: domain.EntityCheese, ID: id}
	}
	if err != nil {
		return domain.Cheese{}, fmt.Errorf("select cheese %d: %w", id, err)
	}
	return c, nil
}

type transaction struct {
	view
}

func (tx *transaction) CreateProducer(p domain.Producer) (domain.Producer, error) {
	query := tx.store.rebind(`INSERT INTO producers (name, founding_year, region, operation_size, image) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := tx.q.QueryRowContext(tx.ctx, query, p.Name, p.FoundingYear, toNull(p.Region), string(p.OperationSize), toNull(p.Image)).Scan(&id); err != nil {
		return domain.Producer{}, fmt.Errorf("insert producer: %w", err)
	}
	p = p.Clone()
	p.ID = id
	return p, nil
}

func (tx *transaction) DeleteProducer(id int64) error {
	// The schema cascades too; deleting children explicitly keeps the
	// behaviour independent of per-connection foreign key settings.
	if _, err := tx.q.ExecContext(tx.ctx, tx.store.rebind(`DELETE FROM cheeses WHERE producer_id = ?`), id); err != nil {
		return fmt.Errorf("delete cheeses of producer %d: %w", id, err)
	}
	res, err := tx.q.ExecContext(tx.ctx, tx.store.rebind(`DELETE FROM producers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete producer %d: %w", id, err)
	}
	return requireAffected(res, domain.ErrNotFound{Entity: domain.EntityProducer, ID: id})
}

func (tx *transaction) CreateCheese(c domain.Cheese) (domain.Cheese, error) {
	if err := tx.requireProducer(c.ProducerID); err != nil {
		return domain.Cheese{}, err
	}
	query := tx.store.rebind(`INSERT INTO cheeses (producer_id, kind, is_raw_milk, production_date, image, price) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := tx.q.QueryRowContext(tx.ctx, query,
		c.ProducerID, c.Kind, c.IsRawMilk, c.ProductionDate.Format(domain.DateLayout), toNull(c.Image), c.Price,
	).Scan(&id); err != nil {
		return domain.Cheese{}, fmt.Errorf("insert cheese: %w", err)
	}
	c = c.Clone()
	c.ID = id
	return c, nil
}

func (tx *transaction) UpdateCheese(id int64, mutator func(*domain.Cheese) error) (domain.Cheese, error) {
	current, err := tx.FindCheese(id)
	if err != nil {
		return domain.Cheese{}, err
	}
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.Cheese{}, err
	}
	updated.ID = id
	if updated.ProducerID != current.ProducerID {
		if err := tx.requireProducer(updated.ProducerID); err != nil {
			return domain.Cheese{}, err
		}
	}
	query := tx.store.rebind(`UPDATE cheeses SET producer_id = ?, kind = ?, is_raw_milk = ?, production_date = ?, image = ?, price = ? WHERE id = ?`)
	if _, err := tx.q.ExecContext(tx.ctx, query,
		updated.ProducerID, updated.Kind, updated.IsRawMilk, updated.ProductionDate.Format(domain.DateLayout), toNull(updated.Image), updated.Price, id,
	); err != nil {
		return domain.Cheese{}, fmt.Errorf("update cheese %d: %w", id, err)
	}
	return updated, nil
}

func (tx *transaction) DeleteCheese(id int64) error {
	res, err := tx.q.ExecContext(tx.ctx, tx.store.rebind(`DELETE FROM cheeses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete cheese %d: %w", id, err)
	}
	return requireAffected(res, domain.ErrNotFound{Entity: domain.EntityCheese, ID: id})
}

func (tx *transaction) requireProducer(id int64) error {
	var one int
	err := tx.q.QueryRowContext(tx.ctx, tx.store.rebind(`SELECT 1 FROM producers WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound{Entity: domain.EntityProducer, ID: id}
	}
	if err != nil {
		return fmt.Errorf("lookup producer %d: %w", id, err)
	}
	return nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
