package memindex

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

func record(id int, cat domain.Category, vec ...float32) domain.IndexRecord {
	rid := domain.RecordID(id)
	if cat != "" {
		rid = domain.CategoryRecordID(id, cat)
	}
	return domain.IndexRecord{
		ID:       rid,
		Vector:   vec,
		Metadata: domain.RecordMetadata{DocumentID: id, Category: cat},
	}
}

func newIndex(t *testing.T, dim int, recs ...domain.IndexRecord) *Index {
	t.Helper()
	x := New()
	ctx := context.Background()
	if err := x.Ensure(ctx, dim, false); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := x.Upsert(ctx, recs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return x
}

func TestQuery_OrdersByCosine(t *testing.T) {
	x := newIndex(t, 2,
		record(1, "", 0, 1),
		record(2, "", 1, 0),
		record(3, "", 1, 1),
	)

	got, err := x.Query(context.Background(), []float32{1, 0}, 3, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []int{2, 3, 1}
	for i, id := range wantIDs {
		if got[i].Metadata.DocumentID != id {
			t.Fatalf("order = %+v, want ids %v", got, wantIDs)
		}
	}
	if math.Abs(got[0].Score-1) > 1e-9 {
		t.Errorf("identical direction score = %f, want 1", got[0].Score)
	}
	if math.Abs(got[1].Score-1/math.Sqrt2) > 1e-6 {
		t.Errorf("45 degree score = %f", got[1].Score)
	}
	if got[2].Score != 0 {
		t.Errorf("orthogonal score = %f, want 0", got[2].Score)
	}
}

func TestQuery_TopKAndTies(t *testing.T) {
	x := newIndex(t, 2,
		record(5, "", 1, 0),
		record(4, "", 1, 0),
		record(3, "", 1, 0),
	)
	got, err := x.Query(context.Background(), []float32{1, 0}, 2, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Metadata.DocumentID != 5 || got[1].Metadata.DocumentID != 4 {
		t.Errorf("ties must keep insertion order: %+v", got)
	}
}

func TestQuery_CategoryFilter(t *testing.T) {
	x := newIndex(t, 2,
		record(1, domain.CategoryRoles, 1, 0),
		record(1, domain.CategorySkills, 1, 0),
		record(2, domain.CategorySkills, 0.9, 0.1),
	)
	expr, _ := filter.Category(string(domain.CategorySkills))

	got, err := x.Query(context.Background(), []float32{1, 0}, 10, expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 skills matches, got %d", len(got))
	}
	for _, m := range got {
		if m.Metadata.Category != domain.CategorySkills {
			t.Errorf("unexpected category %q", m.Metadata.Category)
		}
	}
}

func TestUpsert_ReplacesByID(t *testing.T) {
	x := newIndex(t, 2, record(1, "", 1, 0), record(2, "", 0, 1))

	updated := record(1, "", 0, 1)
	updated.Metadata.Text = "new"
	if err := x.Upsert(context.Background(), []domain.IndexRecord{updated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := x.Query(context.Background(), []float32{0, 1}, 10, filter.Expression{})
	if len(got) != 2 {
		t.Fatalf("expected 2 records after replace, got %d", len(got))
	}
	if got[0].Metadata.DocumentID != 1 || got[0].Metadata.Text != "new" {
		t.Errorf("replaced record = %+v", got[0])
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	x := newIndex(t, 2)
	err := x.Upsert(context.Background(), []domain.IndexRecord{
		record(1, "", 1, 0),
		record(2, "", 1, 0, 0),
	})
	var iwe *domain.IndexWriteError
	if !errors.As(err, &iwe) {
		t.Fatalf("expected IndexWriteError, got %v", err)
	}
	if iwe.Flushed != 1 || !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("err = %v", err)
	}
}

func TestEnsure_RecreateClears(t *testing.T) {
	x := newIndex(t, 2, record(1, "", 1, 0))
	ok, _ := x.Exists(context.Background())
	if !ok {
		t.Fatal("expected populated index")
	}
	if err := x.Ensure(context.Background(), 2, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ = x.Exists(context.Background())
	if ok {
		t.Error("recreate should clear records")
	}
}

func TestManifest_ClearedOnRecreate(t *testing.T) {
	x := newIndex(t, 2, record(1, "", 1, 0))
	ctx := context.Background()

	if _, ok, _ := x.Manifest(ctx); ok {
		t.Fatal("fresh index has no manifest")
	}
	want := domain.IndexManifest{Mode: "single", Dimensions: 2, Documents: 1}
	if err := x.WriteManifest(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := x.Manifest(ctx)
	if err != nil || !ok || got != want {
		t.Fatalf("Manifest() = %+v, %v, %v", got, ok, err)
	}

	if err := x.Ensure(ctx, 2, true); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := x.Manifest(ctx); ok {
		t.Error("recreate should clear the manifest")
	}
}
