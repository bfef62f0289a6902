package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManyToMany(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notes, labels := noteTable(db), labelTable(db)
	rel := NewManyToMany(notes, labels, "note_labels", "", "")

	nid, err := notes.Create(ctx, Fields{"title": "groceries"})
	require.NoError(t, err)
	owner, err := notes.Get(ctx, nid)
	require.NoError(t, err)

	var ls []*label
	for _, name := range []string{"home", "urgent", "later"} {
		id, err := labels.Create(ctx, Fields{"name": name})
		require.NoError(t, err)
		l, err := labels.Get(ctx, id)
		require.NoError(t, err)
		ls = append(ls, l)
	}

	require.NoError(t, rel.Add(ctx, owner, ls[0], ls[1]))

	got, err := rel.Retrieve(ctx, owner, nil, OrderBy("name", false))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "home", got[0].Name)
	assert.Equal(t, "urgent", got[1].Name)

	urgent, err := rel.Retrieve(ctx, owner, Fields{"name": "urgent"})
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, ls[1].ID, urgent[0].ID)

	require.NoError(t, rel.Remove(ctx, owner, ls[0], ls[2]))
	got, err = rel.Retrieve(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "urgent", got[0].Name)

	require.NoError(t, rel.Clear(ctx, owner))
	got, err = rel.Retrieve(ctx, owner, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManyToManyRejectsInvalidItems(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notes, labels := noteTable(db), labelTable(db)
	rel := NewManyToMany(notes, labels, "note_labels", "", "")

	nid, err := notes.Create(ctx, Fields{"title": "n"})
	require.NoError(t, err)
	owner := &note{ID: nid}

	assert.ErrorIs(t, rel.Add(ctx, owner, nil), ErrInvalidRelated)
	assert.ErrorIs(t, rel.Add(ctx, owner, &label{Name: "unsaved"}), ErrInvalidRelated)
	assert.ErrorIs(t, rel.Add(ctx, nil, &label{ID: 1}), ErrInvalidRelated)
	assert.ErrorIs(t, rel.Add(ctx, &note{}, &label{ID: 1}), ErrInvalidRelated)

	_, err = rel.Retrieve(ctx, owner, Fields{"color": "red"})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	assert.NoError(t, rel.Add(ctx, owner))
	assert.NoError(t, rel.Remove(ctx, owner))
}

func TestManyToManyDuplicateLink(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notes, labels := noteTable(db), labelTable(db)
	rel := NewManyToMany(notes, labels, "note_labels", "", "")

	nid, err := notes.Create(ctx, Fields{"title": "n"})
	require.NoError(t, err)
	lid, err := labels.Create(ctx, Fields{"name": "l"})
	require.NoError(t, err)

	owner, item := &note{ID: nid}, &label{ID: lid}
	require.NoError(t, rel.Add(ctx, owner, item))
	assert.ErrorIs(t, rel.Add(ctx, owner, item), ErrConflict)
}
