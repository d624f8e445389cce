package otel_test

import (
	"context"
	"testing"

	adapter "github.com/neomorfeo/goodnews/internal/adapter/otel"
	"github.com/neomorfeo/goodnews/internal/adapter/sqlite"
	"github.com/neomorfeo/goodnews/internal/domain"
)

func TestOpenDB_TracesQueries(t *testing.T) {
	exporter := setupTestTracer(t)

	db, err := adapter.OpenDB(t.TempDir() + "/otel_test.db")
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		t.Fatalf("NewFromDB failed: %v", err)
	}

	exporter.Reset()
	if _, err := repo.GetByID(context.Background(), domain.FamilyArticle, "missing"); err == nil {
		t.Fatal("expected not found")
	}

	if len(exporter.GetSpans()) == 0 {
		t.Error("expected SQL spans from the instrumented driver")
	}
}

func TestOpenDB_SingleConnection(t *testing.T) {
	db, err := adapter.OpenDB(t.TempDir() + "/otel_test.db")
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}
