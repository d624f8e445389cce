package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/domain"
)

func TestAuditRecorder_Record(t *testing.T) {
	store := &mockAuditStore{}
	rec := app.NewAuditRecorder(store, newFakeClock(t0))

	rec.Record(context.Background(), "editor-1", domain.VerbRename, domain.FamilyArticle, "a-1",
		domain.Snapshot{"title": "Old"}, domain.Snapshot{"title": "New"})

	records := store.all()
	require.Len(t, records, 1)

	r := records[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "editor-1", r.ActorID)
	assert.Equal(t, "rename_article", r.Action)
	assert.Equal(t, domain.FamilyArticle, r.Family)
	assert.Equal(t, "a-1", r.EntityID)
	assert.Equal(t, "Old", r.Before["title"])
	assert.Equal(t, "New", r.After["title"])
	assert.True(t, r.OccurredAt.Equal(t0))
}

func TestAuditRecorder_SwallowsStoreFailure(t *testing.T) {
	store := &mockAuditStore{err: errStorage}
	rec := app.NewAuditRecorder(store, newFakeClock(t0))

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), "editor-1", domain.VerbCreate, domain.FamilyListing, "l-1", nil, domain.Snapshot{"title": "x"})
	})
	assert.Empty(t, store.all())
}

func TestAuditRecorder_List(t *testing.T) {
	store := &mockAuditStore{}
	rec := app.NewAuditRecorder(store, newFakeClock(t0))
	ctx := context.Background()

	rec.Record(ctx, "a", domain.VerbCreate, domain.FamilyArticle, "a-1", nil, domain.Snapshot{"title": "x"})
	rec.Record(ctx, "a", domain.VerbCreate, domain.FamilyArticle, "a-2", nil, domain.Snapshot{"title": "y"})

	got, err := rec.List(ctx, domain.AuditFilter{EntityID: "a-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a-2", got[0].EntityID)
}
