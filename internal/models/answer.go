package models

import (
	"context"

	"qaboard/internal/orm"
)

type Answers struct {
	*orm.Table[Answer]
	store *Store
	rules orm.Ruleset
}

func newAnswers(db *orm.DB, s *Store) *Answers {
	a := &Answers{
		Table: orm.NewTable(db, orm.Schema[Answer]{
			Columns: []string{"id", "answer", "selected", "answerer_id", "question_id", "created_at", "updated_at"},
			Bind: func(a *Answer) []any {
				return []any{&a.ID, &a.Answer, &a.Selected, &a.AnswererID, &a.QuestionID, &a.CreatedAt, &a.UpdatedAt}
			},
			ID: func(a *Answer) int64 { return a.ID },
		}),
		store: s,
	}
	a.rules = orm.NewRuleset(a.TypeName(),
		orm.Rule{Field: "answer", Message: "Answer must be at least 20 characters", Check: orm.MinLen(20)},
	)
	return a
}

func (a *Answers) Rules() orm.Ruleset { return a.rules }

func (a *Answers) Question(ctx context.Context, answer *Answer) (*Question, error) {
	return a.store.Questions.Get(ctx, answer.QuestionID)
}

func (a *Answers) Answerer(ctx context.Context, answer *Answer) (*User, error) {
	return a.store.Users.Get(ctx, answer.AnswererID)
}
