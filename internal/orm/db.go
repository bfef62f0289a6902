// Package orm is a small record mapper: typed tables that turn field
// mappings into parameterized INSERT, SELECT, UPDATE and DELETE statements,
// explicit validation rulesets, and a many-to-many helper over join tables.
package orm

import (
	"database/sql"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// DB is a database handle paired with the dialect used to talk to it.
type DB struct {
	*sql.DB
	Dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Rebind rewrites the '?' markers of a hand-written query into the
// placeholders of the dialect.
func (db *DB) Rebind(query string) string {
	if db.Dialect.Placeholder(1) == "?" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(db.Dialect.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TableName derives a table name from a Go type name:
// "Question" becomes "questions", "QuestionTag" becomes "question_tags".
func TableName(typeName string) string {
	return inflection.Plural(snake(typeName))
}

// KeyColumn is the foreign key column that points at table,
// e.g. "questions" gives "question_id".
func KeyColumn(table string) string {
	return inflection.Singular(table) + "_id"
}

func snake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
