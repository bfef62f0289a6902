package orm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fields maps column names to values. Keys are checked against the
// declared columns of a table before they reach SQL.
type Fields map[string]any

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Order struct {
	Column string
	Desc   bool
}

// QueryOptions are per-call modifiers of a SELECT.
type QueryOptions struct {
	OrderBy []Order
	Limit   int
}

type QueryOption func(*QueryOptions)

func OrderBy(column string, desc bool) QueryOption {
	return func(o *QueryOptions) {
		o.OrderBy = append(o.OrderBy, Order{Column: column, Desc: desc})
	}
}

func Limit(n int) QueryOption {
	return func(o *QueryOptions) { o.Limit = n }
}

func collect(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type columnSet struct {
	list []string
	set  map[string]struct{}
}

func newColumnSet(cols []string) columnSet {
	cs := columnSet{list: cols, set: make(map[string]struct{}, len(cols))}
	for _, c := range cols {
		cs.set[c] = struct{}{}
	}
	return cs
}

func (cs columnSet) has(col string) bool {
	_, ok := cs.set[col]
	return ok
}

func (cs columnSet) check(table string, fields Fields) error {
	for k := range fields {
		if !cs.has(k) {
			return fmt.Errorf("orm: %s.%s: %w", table, k, ErrUnknownColumn)
		}
	}
	return nil
}

func (cs columnSet) checkOptions(table string, o QueryOptions) error {
	for _, ob := range o.OrderBy {
		if !cs.has(ob.Column) {
			return fmt.Errorf("orm: order by %s.%s: %w", table, ob.Column, ErrUnknownColumn)
		}
	}
	return nil
}

// stmt accumulates SQL text and bound arguments.
type stmt struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newStmt(d Dialect) *stmt { return &stmt{d: d} }

func (s *stmt) write(parts ...string) *stmt {
	for _, p := range parts {
		s.sb.WriteString(p)
	}
	return s
}

func (s *stmt) bind(v any) string {
	s.args = append(s.args, v)
	return s.d.Placeholder(len(s.args))
}

// ident quotes a possibly qualified identifier: ident("t", "c") is "t"."c".
func (s *stmt) ident(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, s.d.Quote(p))
	}
	return strings.Join(quoted, ".")
}

func (s *stmt) where(qual string, filter Fields) *stmt {
	if len(filter) == 0 {
		return s
	}
	conds := make([]string, 0, len(filter))
	for _, k := range filter.Keys() {
		v := filter[k]
		if v == nil {
			conds = append(conds, s.ident(qual, k)+" IS NULL")
			continue
		}
		conds = append(conds, s.ident(qual, k)+" = "+s.bind(v))
	}
	return s.write(" WHERE ", strings.Join(conds, " AND "))
}

func (s *stmt) options(qual string, o QueryOptions) *stmt {
	if len(o.OrderBy) > 0 {
		terms := make([]string, 0, len(o.OrderBy))
		for _, ob := range o.OrderBy {
			term := s.ident(qual, ob.Column)
			if ob.Desc {
				term += " DESC"
			}
			terms = append(terms, term)
		}
		s.write(" ORDER BY ", strings.Join(terms, ", "))
	}
	if o.Limit > 0 {
		s.write(" LIMIT ", strconv.Itoa(o.Limit))
	}
	return s
}

func (s *stmt) String() string { return s.sb.String() }

func insertSQL(d Dialect, table string, fields Fields) (string, []any) {
	s := newStmt(d).write("INSERT INTO ", d.Quote(table))
	if len(fields) == 0 {
		return s.write(" DEFAULT VALUES").String(), nil
	}
	keys := fields.Keys()
	cols := make([]string, len(keys))
	vals := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = s.ident(k)
		vals[i] = s.bind(fields[k])
	}
	s.write(" (", strings.Join(cols, ", "), ") VALUES (", strings.Join(vals, ", "), ")")
	return s.String(), s.args
}

func selectSQL(d Dialect, table string, cols []string, filter Fields, o QueryOptions) (string, []any) {
	s := newStmt(d)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.ident(c)
	}
	s.write("SELECT ", strings.Join(quoted, ", "), " FROM ", s.ident(table))
	s.where("", filter).options("", o)
	return s.String(), s.args
}

func updateSQL(d Dialect, table string, id int64, fields Fields) (string, []any) {
	s := newStmt(d).write("UPDATE ", d.Quote(table), " SET ")
	keys := fields.Keys()
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = s.ident(k) + " = " + s.bind(fields[k])
	}
	s.write(strings.Join(sets, ", "), " WHERE ", s.ident("id"), " = ", s.bind(id))
	return s.String(), s.args
}

func deleteSQL(d Dialect, table string, filter Fields) (string, []any) {
	s := newStmt(d).write("DELETE FROM ", d.Quote(table))
	s.where("", filter)
	return s.String(), s.args
}

