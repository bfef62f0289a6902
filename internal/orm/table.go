package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Schema declares how a record type maps onto a table.
type Schema[T any] struct {
	// Name of the table; derived from the type name when empty.
	Name string
	// Columns in the order Bind returns destinations. Must include "id".
	Columns []string
	// Bind returns scan destinations for rec, one per column.
	Bind func(rec *T) []any
	// ID returns the primary key of rec.
	ID func(rec *T) int64
}

// Table maps records of type T to rows of a single table.
// A Table holds no per-query state and is safe for concurrent use.
type Table[T any] struct {
	db       *DB
	name     string
	typeName string
	cols     columnSet
	bind     func(*T) []any
	id       func(*T) int64
	now      func() time.Time
}

// NewTable panics when the schema is incomplete; tables are declared once
// at startup.
func NewTable[T any](db *DB, s Schema[T]) *Table[T] {
	typeName := reflect.TypeOf((*T)(nil)).Elem().Name()
	if s.Bind == nil || s.ID == nil {
		panic("orm: schema for " + typeName + " needs Bind and ID")
	}
	name := s.Name
	if name == "" {
		name = TableName(typeName)
	}
	cols := newColumnSet(s.Columns)
	if !cols.has("id") {
		panic("orm: schema for " + typeName + " has no id column")
	}
	return &Table[T]{
		db:       db,
		name:     name,
		typeName: typeName,
		cols:     cols,
		bind:     s.Bind,
		id:       s.ID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (t *Table[T]) Name() string { return t.name }

// TypeName is the Go type name of the records, used to key validation messages.
func (t *Table[T]) TypeName() string { return t.typeName }

func (t *Table[T]) Columns() []string { return t.cols.list }

func (t *Table[T]) HasColumn(col string) bool { return t.cols.has(col) }

func (t *Table[T]) DB() *DB { return t.db }

// Create inserts a row built from fields and returns its id.
// created_at and updated_at are filled in when the table has them.
func (t *Table[T]) Create(ctx context.Context, fields Fields) (int64, error) {
	if err := t.cols.check(t.name, fields); err != nil {
		return 0, err
	}
	fields = t.stamp(fields, "created_at", "updated_at")
	query, args := insertSQL(t.db.Dialect, t.name, fields)

	var id int64
	if t.db.Dialect.Returning() {
		query += " RETURNING " + t.db.Dialect.Quote("id")
		if err := t.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, t.wrap("insert", err)
		}
		return id, nil
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, t.wrap("insert", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, t.wrap("insert", err)
	}
	return id, nil
}

// RetrieveAll returns every row matching filter; an empty filter
// returns the whole table.
func (t *Table[T]) RetrieveAll(ctx context.Context, filter Fields, opts ...QueryOption) ([]*T, error) {
	o := collect(opts)
	if err := t.cols.check(t.name, filter); err != nil {
		return nil, err
	}
	if err := t.cols.checkOptions(t.name, o); err != nil {
		return nil, err
	}
	query, args := selectSQL(t.db.Dialect, t.name, t.cols.list, filter, o)
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, t.wrap("select", err)
	}
	return t.scanAll(rows)
}

// RetrieveOne returns the first row matching filter or ErrNotFound.
func (t *Table[T]) RetrieveOne(ctx context.Context, filter Fields, opts ...QueryOption) (*T, error) {
	recs, err := t.RetrieveAll(ctx, filter, append(opts[:len(opts):len(opts)], Limit(1))...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("orm: %s %v: %w", t.name, filter, ErrNotFound)
	}
	return recs[0], nil
}

// Get is RetrieveOne by primary key.
func (t *Table[T]) Get(ctx context.Context, id int64) (*T, error) {
	return t.RetrieveOne(ctx, Fields{"id": id})
}

// Update sets fields on the row with the given id.
func (t *Table[T]) Update(ctx context.Context, id int64, fields Fields) error {
	if err := t.cols.check(t.name, fields); err != nil {
		return err
	}
	if _, ok := fields["id"]; ok {
		return fmt.Errorf("orm: %s: id is not updatable: %w", t.name, ErrUnknownColumn)
	}
	fields = t.stamp(fields, "updated_at")
	if len(fields) == 0 {
		return nil
	}
	query, args := updateSQL(t.db.Dialect, t.name, id, fields)
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return t.wrap("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("orm: update %s id=%d: %w", t.name, id, ErrNotFound)
	}
	return nil
}

// Delete removes the rows matching filter and reports how many went away.
// An empty filter is refused.
func (t *Table[T]) Delete(ctx context.Context, filter Fields) (int64, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("orm: delete %s: %w", t.name, ErrEmptyFilter)
	}
	if err := t.cols.check(t.name, filter); err != nil {
		return 0, err
	}
	query, args := deleteSQL(t.db.Dialect, t.name, filter)
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, t.wrap("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, t.wrap("delete", err)
	}
	return n, nil
}

// Record returns a handle bound to the row with the given id.
func (t *Table[T]) Record(id int64) Record[T] {
	return Record[T]{table: t, id: id}
}

// Of returns the handle for a loaded record.
func (t *Table[T]) Of(rec *T) Record[T] {
	return t.Record(t.id(rec))
}

func (t *Table[T]) scanAll(rows *sql.Rows) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		rec := new(T)
		if err := rows.Scan(t.bind(rec)...); err != nil {
			return nil, t.wrap("scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, t.wrap("select", err)
	}
	return out, nil
}

// stamp returns a copy of fields with the given timestamp columns set to
// now, for the ones the table declares and the caller left out.
func (t *Table[T]) stamp(fields Fields, cols ...string) Fields {
	out := make(Fields, len(fields)+len(cols))
	for k, v := range fields {
		out[k] = v
	}
	now := t.now()
	for _, c := range cols {
		if _, set := out[c]; !set && t.cols.has(c) {
			out[c] = now
		}
	}
	return out
}

func (t *Table[T]) wrap(op string, err error) error {
	if t.db.Dialect.IsUniqueViolation(err) {
		return fmt.Errorf("orm: %s %s: %w: %v", op, t.name, ErrConflict, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("orm: %s %s: %w", op, t.name, ErrNotFound)
	}
	return fmt.Errorf("orm: %s %s: %w", op, t.name, err)
}

// Record is a row handle that carries its table and id, so updates and
// deletes cannot target another row.
type Record[T any] struct {
	table *Table[T]
	id    int64
}

func (r Record[T]) ID() int64 { return r.id }

func (r Record[T]) Load(ctx context.Context) (*T, error) {
	return r.table.Get(ctx, r.id)
}

func (r Record[T]) Update(ctx context.Context, fields Fields) error {
	return r.table.Update(ctx, r.id, fields)
}

func (r Record[T]) Delete(ctx context.Context) error {
	n, err := r.table.Delete(ctx, Fields{"id": r.id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("orm: delete %s id=%d: %w", r.table.name, r.id, ErrNotFound)
	}
	return nil
}
