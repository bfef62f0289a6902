package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertSQL(t *testing.T) {
	query, args := insertSQL(SQLite, "users", Fields{"username": "bob", "email": "bob@example.com"})
	assert.Equal(t, `INSERT INTO "users" ("email", "username") VALUES (?, ?)`, query)
	assert.Equal(t, []any{"bob@example.com", "bob"}, args)

	query, args = insertSQL(Postgres, "users", Fields{"username": "bob", "email": "bob@example.com"})
	assert.Equal(t, `INSERT INTO "users" ("email", "username") VALUES ($1, $2)`, query)
	assert.Len(t, args, 2)

	query, args = insertSQL(SQLite, "users", nil)
	assert.Equal(t, `INSERT INTO "users" DEFAULT VALUES`, query)
	assert.Empty(t, args)
}

func TestSelectSQL(t *testing.T) {
	o := QueryOptions{OrderBy: []Order{{Column: "id", Desc: true}}, Limit: 5}
	query, args := selectSQL(Postgres, "questions", []string{"id", "question"},
		Fields{"asker_id": int64(3), "answered": true}, o)
	assert.Equal(t,
		`SELECT "id", "question" FROM "questions" WHERE "answered" = $1 AND "asker_id" = $2 ORDER BY "id" DESC LIMIT 5`,
		query)
	assert.Equal(t, []any{true, int64(3)}, args)

	query, args = selectSQL(SQLite, "questions", []string{"id"}, nil, QueryOptions{})
	assert.Equal(t, `SELECT "id" FROM "questions"`, query)
	assert.Empty(t, args)
}

func TestUpdateAndDeleteSQL(t *testing.T) {
	query, args := updateSQL(Postgres, "answers", 7, Fields{"selected": true})
	assert.Equal(t, `UPDATE "answers" SET "selected" = $1 WHERE "id" = $2`, query)
	assert.Equal(t, []any{true, int64(7)}, args)

	query, args = deleteSQL(SQLite, "answers", Fields{"id": 1, "answerer_id": nil})
	assert.Equal(t, `DELETE FROM "answers" WHERE "answerer_id" IS NULL AND "id" = ?`, query)
	assert.Equal(t, []any{1}, args)
}

func TestQuoteEscapesIdentifiers(t *testing.T) {
	assert.Equal(t, `"we""ird"`, SQLite.Quote(`we"ird`))
}

func TestRebind(t *testing.T) {
	pg := New(nil, Postgres)
	assert.Equal(t, "a = $1 AND b = $2", pg.Rebind("a = ? AND b = ?"))

	lite := New(nil, SQLite)
	assert.Equal(t, "a = ? AND b = ?", lite.Rebind("a = ? AND b = ?"))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "questions", TableName("Question"))
	assert.Equal(t, "answers", TableName("Answer"))
	assert.Equal(t, "users", TableName("User"))
	assert.Equal(t, "question_tags", TableName("QuestionTag"))
	assert.Equal(t, "question_id", KeyColumn("questions"))
	assert.Equal(t, "tag_id", KeyColumn("tags"))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = DialectFor("pgx")
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}
