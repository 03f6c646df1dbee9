package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.Create(ctx, Tasks, "", map[string]any{
		"title":        "Write onboarding doc",
		"assigned_to":  "emp-1",
		"reviewpoints": 80,
		"id":           "ignored",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.NotEqual(t, "ignored", doc.ID)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, float64(80), doc.Data["reviewpoints"])
	assert.NotContains(t, doc.Data, "id")

	got, err := s.Get(ctx, Tasks, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// returned documents are copies
	got.Data["title"] = "mutated"
	again, err := s.Get(ctx, Tasks, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write onboarding doc", again.Data["title"])
}

func TestMemoryStoreCreateWithIDTwice(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, HRFeedback, "emp-1_2026-10-19", map[string]any{"score": 90})
	require.NoError(t, err)
	_, err = s.Create(ctx, HRFeedback, "emp-1_2026-10-19", map[string]any{"score": 10})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStoreUnknownCollection(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Query(context.Background(), "widgets")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, d := range []map[string]any{
		{"title": "a", "assigned_to": "emp-1", "status": "pending"},
		{"title": "b", "assigned_to": "emp-1", "status": "completed"},
		{"title": "c", "assigned_to": "emp-2", "status": "completed"},
	} {
		_, err := s.Create(ctx, Tasks, "", d)
		require.NoError(t, err)
	}

	all, err := s.Query(ctx, Tasks)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.Query(ctx, Tasks, Where("assigned_to", "emp-1"))
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	done, err := s.Query(ctx, Tasks, Where("assigned_to", "emp-1"), Where("status", "completed"))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "b", done[0].Data["title"])

	none, err := s.Query(ctx, Tasks, Where("missing", "x"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.Create(ctx, Tasks, "", map[string]any{
		"title": "t", "status": "pending", "progress_status": "pending",
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, Tasks, doc.ID, map[string]any{
		"status":          "completed",
		"progress_status": nil,
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "completed", updated.Data["status"])
	assert.NotContains(t, updated.Data, "progress_status")
	assert.Equal(t, "t", updated.Data["title"])
	assert.False(t, updated.UpdatedAt.Before(doc.UpdatedAt))
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.Create(ctx, Tasks, "", map[string]any{"title": "t"})
	require.NoError(t, err)

	_, err = s.Update(ctx, Tasks, doc.ID, map[string]any{"title": "first"}, doc.Version)
	require.NoError(t, err)

	// second writer still holds version 1
	_, err = s.Update(ctx, Tasks, doc.ID, map[string]any{"title": "second"}, doc.Version)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.Get(ctx, Tasks, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Data["title"])
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.Create(ctx, Tickets, "", map[string]any{"title": "printer"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, Tickets, doc.ID))

	_, err = s.Get(ctx, Tickets, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, Tickets, doc.ID), ErrNotFound)
	_, err = s.Update(ctx, Tickets, doc.ID, map[string]any{"title": "x"}, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentFlatten(t *testing.T) {
	d := Document{ID: "t-1", Version: 3, Data: map[string]any{"title": "x"}}
	flat := d.Flatten()
	assert.Equal(t, "t-1", flat["id"])
	assert.Equal(t, int64(3), flat["version"])
	assert.Equal(t, "x", flat["title"])
	assert.NotContains(t, d.Data, "id")
}
