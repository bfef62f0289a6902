package orm

import (
	"context"
	"fmt"
	"strings"
)

// ManyToMany links records of L to records of R through a join table that
// holds only the two foreign keys.
type ManyToMany[L, R any] struct {
	left     *Table[L]
	right    *Table[R]
	join     string
	leftKey  string
	rightKey string
}

// NewManyToMany relates left and right through join. Empty key names default
// to KeyColumn of the respective table, e.g. "question_id" and "tag_id".
func NewManyToMany[L, R any](left *Table[L], right *Table[R], join, leftKey, rightKey string) *ManyToMany[L, R] {
	if leftKey == "" {
		leftKey = KeyColumn(left.name)
	}
	if rightKey == "" {
		rightKey = KeyColumn(right.name)
	}
	return &ManyToMany[L, R]{left: left, right: right, join: join, leftKey: leftKey, rightKey: rightKey}
}

func (m *ManyToMany[L, R]) Table() string { return m.join }

// Add inserts one join row per item.
func (m *ManyToMany[L, R]) Add(ctx context.Context, owner *L, items ...*R) error {
	ownerID, ids, err := m.ids(owner, items)
	if err != nil || len(ids) == 0 {
		return err
	}
	s := newStmt(m.dialect())
	s.write("INSERT INTO ", s.ident(m.join), " (", s.ident(m.leftKey), ", ", s.ident(m.rightKey), ") VALUES ")
	rows := make([]string, len(ids))
	for i, id := range ids {
		rows[i] = "(" + s.bind(ownerID) + ", " + s.bind(id) + ")"
	}
	s.write(strings.Join(rows, ", "))
	if _, err := m.left.db.ExecContext(ctx, s.String(), s.args...); err != nil {
		return m.wrap("add", err)
	}
	return nil
}

// Remove deletes the join rows between owner and the given items.
func (m *ManyToMany[L, R]) Remove(ctx context.Context, owner *L, items ...*R) error {
	ownerID, ids, err := m.ids(owner, items)
	if err != nil || len(ids) == 0 {
		return err
	}
	s := newStmt(m.dialect())
	s.write("DELETE FROM ", s.ident(m.join), " WHERE ", s.ident(m.leftKey), " = ", s.bind(ownerID))
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = s.bind(id)
	}
	s.write(" AND ", s.ident(m.rightKey), " IN (", strings.Join(marks, ", "), ")")
	if _, err := m.left.db.ExecContext(ctx, s.String(), s.args...); err != nil {
		return m.wrap("remove", err)
	}
	return nil
}

// Clear deletes every join row of owner.
func (m *ManyToMany[L, R]) Clear(ctx context.Context, owner *L) error {
	if owner == nil {
		return fmt.Errorf("orm: %s: nil owner: %w", m.join, ErrInvalidRelated)
	}
	s := newStmt(m.dialect())
	s.write("DELETE FROM ", s.ident(m.join), " WHERE ", s.ident(m.leftKey), " = ", s.bind(m.left.id(owner)))
	if _, err := m.left.db.ExecContext(ctx, s.String(), s.args...); err != nil {
		return m.wrap("clear", err)
	}
	return nil
}

// Retrieve returns the records related to owner, optionally narrowed by
// equality on columns of R.
func (m *ManyToMany[L, R]) Retrieve(ctx context.Context, owner *L, filter Fields, opts ...QueryOption) ([]*R, error) {
	if owner == nil {
		return nil, fmt.Errorf("orm: %s: nil owner: %w", m.join, ErrInvalidRelated)
	}
	o := collect(opts)
	if err := m.right.cols.check(m.right.name, filter); err != nil {
		return nil, err
	}
	if err := m.right.cols.checkOptions(m.right.name, o); err != nil {
		return nil, err
	}
	s := newStmt(m.dialect())
	cols := make([]string, len(m.right.cols.list))
	for i, c := range m.right.cols.list {
		cols[i] = s.ident(m.right.name, c)
	}
	s.write("SELECT ", strings.Join(cols, ", "),
		" FROM ", s.ident(m.right.name),
		" JOIN ", s.ident(m.join), " ON ", s.ident(m.join, m.rightKey), " = ", s.ident(m.right.name, "id"),
		" WHERE ", s.ident(m.join, m.leftKey), " = ", s.bind(m.left.id(owner)))
	for _, k := range filter.Keys() {
		if v := filter[k]; v == nil {
			s.write(" AND ", s.ident(m.right.name, k), " IS NULL")
		} else {
			s.write(" AND ", s.ident(m.right.name, k), " = ", s.bind(v))
		}
	}
	s.options(m.right.name, o)

	rows, err := m.left.db.QueryContext(ctx, s.String(), s.args...)
	if err != nil {
		return nil, m.wrap("retrieve", err)
	}
	return m.right.scanAll(rows)
}

func (m *ManyToMany[L, R]) ids(owner *L, items []*R) (int64, []int64, error) {
	if owner == nil {
		return 0, nil, fmt.Errorf("orm: %s: nil owner: %w", m.join, ErrInvalidRelated)
	}
	ownerID := m.left.id(owner)
	if ownerID == 0 {
		return 0, nil, fmt.Errorf("orm: %s: owner %s is not saved: %w", m.join, m.left.typeName, ErrInvalidRelated)
	}
	ids := make([]int64, 0, len(items))
	for i, it := range items {
		if it == nil {
			return 0, nil, fmt.Errorf("orm: %s: item %d is not a %s: %w", m.join, i, m.right.typeName, ErrInvalidRelated)
		}
		id := m.right.id(it)
		if id == 0 {
			return 0, nil, fmt.Errorf("orm: %s: item %d (%s) is not saved: %w", m.join, i, m.right.typeName, ErrInvalidRelated)
		}
		ids = append(ids, id)
	}
	return ownerID, ids, nil
}

func (m *ManyToMany[L, R]) dialect() Dialect { return m.left.db.Dialect }

func (m *ManyToMany[L, R]) wrap(op string, err error) error {
	if m.dialect().IsUniqueViolation(err) {
		return fmt.Errorf("orm: %s %s: %w: %v", op, m.join, ErrConflict, err)
	}
	return fmt.Errorf("orm: %s %s: %w", op, m.join, err)
}
