package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"fineclub/internal/adapters/storage/document"
	domain "fineclub/internal/domain/outbox"
)

var t0 = time.Date(2025, 1, 12, 15, 0, 0, 0, time.UTC)

func entry(t *testing.T, id string, created time.Time) domain.Entry {
	t.Helper()
	e, err := domain.New(id, domain.KindFineNotice, `[{"to":["kim@example.com"]}]`, created)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// TestDocumentStore_Lifecycle verifies enqueue, listing, update and removal on success.
func TestDocumentStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(document.NewMemoryStore())

	if pending, err := s.ListPending(ctx, 10); err != nil || len(pending) != 0 {
		t.Fatalf("empty outbox: %v %v", pending, err)
	}

	if err := s.Enqueue(ctx, entry(t, "b", t0.Add(time.Minute))); err != nil {
		t.Fatalf("Enqueue b: %v", err)
	}
	if err := s.Enqueue(ctx, entry(t, "a", t0)); err != nil {
		t.Fatalf("Enqueue a: %v", err)
	}
	if err := s.Enqueue(ctx, entry(t, "a", t0)); err == nil {
		t.Error("expected duplicate id to be rejected")
	}

	pending, err := s.ListPending(ctx, 10)
	if err != nil || len(pending) != 2 || pending[0].ID != "a" {
		t.Fatalf("ListPending = %+v, %v", pending, err)
	}
	if limited, _ := s.ListPending(ctx, 1); len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}

	a := pending[0]
	a.MarkAttempt(t0)
	a.MarkFailed(errors.New("smtp down"))
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	pending, _ = s.ListPending(ctx, 10)
	if pending[0].Attempts != 1 || pending[0].LastError != "smtp down" {
		t.Errorf("update not persisted: %+v", pending[0])
	}

	a = pending[0]
	a.MarkSuccess()
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save done: %v", err)
	}
	pending, _ = s.ListPending(ctx, 10)
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Errorf("done entry should be removed, got %+v", pending)
	}
}

// TestDocumentStore_FailedEntries verifies exhausted entries leave the pending list.
func TestDocumentStore_FailedEntries(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(document.NewMemoryStore())
	e := entry(t, "x", t0)
	e.MaxAttempts = 1
	if err := s.Enqueue(ctx, e); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	e.MarkAttempt(t0)
	e.MarkFailed(errors.New("rejected"))
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if pending, _ := s.ListPending(ctx, 10); len(pending) != 0 {
		t.Errorf("failed entry still pending: %+v", pending)
	}
	failed, err := s.ListFailed(ctx)
	if err != nil || len(failed) != 1 || failed[0].ID != "x" {
		t.Errorf("ListFailed = %+v, %v", failed, err)
	}
}

// TestDocumentStore_SaveUnknown verifies updates to missing entries fail.
func TestDocumentStore_SaveUnknown(t *testing.T) {
	s := NewDocumentStore(document.NewMemoryStore())
	err := s.Save(context.Background(), entry(t, "ghost", t0))
	if !errors.Is(err, document.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
