package models

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"qaboard/internal/orm"
)

type Tags struct {
	*orm.Table[Tag]
	store     *Store
	questions *orm.ManyToMany[Tag, Question]
	rules     orm.Ruleset
}

func newTags(db *orm.DB, s *Store) *Tags {
	t := &Tags{
		Table: orm.NewTable(db, orm.Schema[Tag]{
			Columns: []string{"id", "name", "slug", "created_at", "updated_at"},
			Bind: func(t *Tag) []any {
				return []any{&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt}
			},
			ID: func(t *Tag) int64 { return t.ID },
		}),
		store: s,
	}
	t.rules = orm.NewRuleset(t.TypeName(),
		orm.Rule{Field: "name", Message: "Tag must be between 2 and 32 characters", Check: orm.MinLen(2)},
		orm.Rule{Field: "name", Message: "Tag must be between 2 and 32 characters", Check: orm.MaxLen(32)},
	)
	return t
}

func (t *Tags) Rules() orm.Ruleset { return t.rules }

func (t *Tags) BySlug(ctx context.Context, s string) (*Tag, error) {
	return t.RetrieveOne(ctx, orm.Fields{"slug": s})
}

// Questions returns the questions carrying tag, newest first.
func (t *Tags) Questions(ctx context.Context, tag *Tag) ([]*Question, error) {
	return t.questions.Retrieve(ctx, tag, nil, orm.OrderBy("id", true))
}

// Ensure returns a tag for every name, creating the missing ones. Names that
// share a slug collapse into one tag.
func (t *Tags) Ensure(ctx context.Context, names []string) ([]*Tag, error) {
	seen := make(map[string]bool, len(names))
	var out []*Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		s := slug.Make(name)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true

		tag, err := t.BySlug(ctx, s)
		if errors.Is(err, orm.ErrNotFound) {
			tag, err = t.create(ctx, name, s)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

func (t *Tags) create(ctx context.Context, name, s string) (*Tag, error) {
	id, err := t.Create(ctx, orm.Fields{"name": name, "slug": s})
	if errors.Is(err, orm.ErrConflict) {
		// created by a concurrent request
		return t.BySlug(ctx, s)
	}
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, id)
}

// ParseTagNames splits a comma separated tag field.
func ParseTagNames(field string) []string {
	var names []string
	for _, n := range strings.Split(field, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
