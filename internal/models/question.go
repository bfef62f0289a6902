package models

import (
	"context"

	"qaboard/internal/orm"
)

type Questions struct {
	*orm.Table[Question]
	store *Store
	tags  *orm.ManyToMany[Question, Tag]
	rules orm.Ruleset
}

func newQuestions(db *orm.DB, s *Store) *Questions {
	q := &Questions{
		Table: orm.NewTable(db, orm.Schema[Question]{
			Columns: []string{"id", "question", "description", "answered", "asker_id", "created_at", "updated_at"},
			Bind: func(q *Question) []any {
				return []any{&q.ID, &q.Question, &q.Description, &q.Answered, &q.AskerID, &q.CreatedAt, &q.UpdatedAt}
			},
			ID: func(q *Question) int64 { return q.ID },
		}),
		store: s,
	}
	q.rules = orm.NewRuleset(q.TypeName(),
		orm.Rule{Field: "question", Message: "Question must be at least 20 characters", Check: orm.MinLen(20)},
	)
	return q
}

func (q *Questions) Rules() orm.Ruleset { return q.rules }

// ByAnswered lists questions with the given answered flag, newest first.
func (q *Questions) ByAnswered(ctx context.Context, answered bool) ([]*Question, error) {
	return q.RetrieveAll(ctx, orm.Fields{"answered": answered}, orm.OrderBy("id", true))
}

func (q *Questions) Asker(ctx context.Context, question *Question) (*User, error) {
	return q.store.Users.Get(ctx, question.AskerID)
}

// Answers returns the answers of question that are not selected, oldest first.
func (q *Questions) Answers(ctx context.Context, question *Question) ([]*Answer, error) {
	return q.store.Answers.RetrieveAll(ctx,
		orm.Fields{"question_id": question.ID, "selected": false},
		orm.OrderBy("id", false))
}

// SelectedAnswer returns orm.ErrNotFound while no answer is selected.
func (q *Questions) SelectedAnswer(ctx context.Context, question *Question) (*Answer, error) {
	return q.store.Answers.RetrieveOne(ctx, orm.Fields{"question_id": question.ID, "selected": true})
}

func (q *Questions) Tags(ctx context.Context, question *Question) ([]*Tag, error) {
	return q.tags.Retrieve(ctx, question, nil, orm.OrderBy("name", false))
}

// SetTags replaces the tags of question.
func (q *Questions) SetTags(ctx context.Context, question *Question, tags []*Tag) error {
	if err := q.tags.Clear(ctx, question); err != nil {
		return err
	}
	return q.tags.Add(ctx, question, tags...)
}

func (q *Questions) TagRelation() *orm.ManyToMany[Question, Tag] { return q.tags }
