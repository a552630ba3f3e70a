//go:build integration

package cases

import (
	"context"
	"errors"
	"testing"

	"github.com/AdityaK05/AMLGuard/internal/testutil"
)

func TestPostgresCases_CreateAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	c := &Case{
		Title:      "Review structuring pattern",
		Priority:   PriorityUrgent,
		AlertID:    "alr_test001",
		CustomerID: "cus_test001",
		AssignedTo: "Marcus Webb",
	}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Status != StatusOpen {
		t.Errorf("Status: got %s, want open", c.Status)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != c.Title {
		t.Errorf("Title: got %s, want %s", got.Title, c.Title)
	}
	if got.Priority != PriorityUrgent {
		t.Errorf("Priority: got %s, want urgent", got.Priority)
	}
	if got.ClosedAt != nil {
		t.Error("ClosedAt should be nil for an open case")
	}
}

func TestPostgresCases_ApplyTransitions(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	c := &Case{Title: "Investigate wire activity"}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	investigating := StatusInvestigating
	updated, err := store.Apply(ctx, c.ID, Update{Status: &investigating})
	if err != nil {
		t.Fatalf("Apply investigating failed: %v", err)
	}
	if updated.Status != StatusInvestigating {
		t.Errorf("Status: got %s, want investigating", updated.Status)
	}

	closed := StatusClosed
	updated, err = store.Apply(ctx, c.ID, Update{Status: &closed})
	if err != nil {
		t.Fatalf("Apply closed failed: %v", err)
	}
	if updated.ClosedAt == nil {
		t.Error("ClosedAt should be set when closing")
	}

	// Closed cases cannot reopen
	reopen := StatusOpen
	if _, err := store.Apply(ctx, c.ID, Update{Status: &reopen}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestPostgresCases_Counts(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	for _, p := range []string{PriorityUrgent, PriorityNormal, PriorityNormal} {
		if err := store.Create(ctx, &Case{Title: "Case " + p, Priority: p}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	open, err := store.CountOpen(ctx)
	if err != nil {
		t.Fatalf("CountOpen failed: %v", err)
	}
	if open != 3 {
		t.Errorf("CountOpen: got %d, want 3", open)
	}

	urgent, err := store.CountOpenUrgent(ctx)
	if err != nil {
		t.Fatalf("CountOpenUrgent failed: %v", err)
	}
	if urgent != 1 {
		t.Errorf("CountOpenUrgent: got %d, want 1", urgent)
	}
}

func TestPostgresCases_NotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)

	if _, err := store.Get(context.Background(), "case_nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
