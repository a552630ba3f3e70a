package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDefaults(t *testing.T) {
	store := NewMemoryStore()
	c := &Case{Title: "Review wire activity"}
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusOpen {
		t.Errorf("status = %q, want %q", c.Status, StatusOpen)
	}
	if c.Priority != PriorityNormal {
		t.Errorf("priority = %q, want %q", c.Priority, PriorityNormal)
	}
	if c.ID == "" {
		t.Error("expected generated id")
	}
}

func TestCreateRejectsBadPriority(t *testing.T) {
	store := NewMemoryStore()
	err := store.Create(context.Background(), &Case{Title: "x", Priority: "asap"})
	if err != ErrInvalidPriority {
		t.Fatalf("err = %v, want ErrInvalidPriority", err)
	}
}

func TestCloseSetsClosedAt(t *testing.T) {
	store := NewMemoryStore()
	c := &Case{Title: "Structuring review"}
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}

	closed := StatusClosed
	got, err := store.Apply(context.Background(), c.ID, Update{Status: &closed})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.ClosedAt == nil {
		t.Fatal("expected ClosedAt to be set")
	}

	// a closed case cannot be reopened
	open := StatusOpen
	if _, err := store.Apply(context.Background(), c.ID, Update{Status: &open}); err != ErrInvalidTransition {
		t.Fatalf("reopen err = %v, want ErrInvalidTransition", err)
	}
}

func TestReopenBeforeCloseClearsClosedAt(t *testing.T) {
	store := NewMemoryStore()
	c := &Case{Title: "Velocity spike"}
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}
	investigating := StatusInvestigating
	got, err := store.Apply(context.Background(), c.ID, Update{Status: &investigating})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.ClosedAt != nil {
		t.Error("ClosedAt should stay nil while the case is active")
	}
}

func TestListFiltersAndOrdering(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now().UTC().Add(-time.Hour)
	for i, p := range []string{PriorityNormal, PriorityUrgent, PriorityHigh, PriorityUrgent} {
		c := &Case{Title: "case", Priority: p, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Create(context.Background(), c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	urgent, err := store.List(context.Background(), ListOptions{Priority: PriorityUrgent})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(urgent) != 2 {
		t.Fatalf("len = %d, want 2", len(urgent))
	}
	if urgent[0].CreatedAt.Before(urgent[1].CreatedAt) {
		t.Error("expected newest-first ordering")
	}
}

func TestCountOpenUrgent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &Case{Title: "a", Priority: PriorityUrgent}
	b := &Case{Title: "b", Priority: PriorityUrgent}
	c := &Case{Title: "c", Priority: PriorityNormal}
	for _, k := range []*Case{a, b, c} {
		if err := store.Create(ctx, k); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	closed := StatusClosed
	if _, err := store.Apply(ctx, b.ID, Update{Status: &closed}); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, err := store.CountOpen(ctx)
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if open != 2 {
		t.Errorf("open = %d, want 2", open)
	}
	urgent, err := store.CountOpenUrgent(ctx)
	if err != nil {
		t.Fatalf("count urgent: %v", err)
	}
	if urgent != 1 {
		t.Errorf("urgent = %d, want 1", urgent)
	}
}

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandlers(store).RegisterRoutes(r.Group("/api"))
	return r
}

func TestCreateCaseHandler(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store)

	body, _ := json.Marshal(map[string]string{
		"title":    "Potential structuring pattern",
		"priority": "urgent",
		"alertId":  "alr_0123456789abcdef01234567",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got Case
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, StatusOpen, got.Status)
	assert.Equal(t, PriorityUrgent, got.Priority)
	assert.NotEmpty(t, got.ID)
}

func TestCreateCaseHandlerSanitizesTitle(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(store)

	long := "  " + strings.Repeat("x", 250) + "  "
	body, _ := json.Marshal(map[string]string{"title": long})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got Case
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Title, 200, "title should be trimmed and capped")
}

func TestCreateCaseHandlerRequiresTitle(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cases", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchCaseHandler(t *testing.T) {
	store := NewMemoryStore()
	kase := &Case{Title: "Geographic anomaly"}
	require.NoError(t, store.Create(context.Background(), kase))
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/cases/"+kase.ID, bytes.NewReader([]byte(`{"status":"closed"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got Case
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, StatusClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
}

func TestPatchCaseHandlerNotFound(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/cases/case_ffffffffffffffffffffffff", bytes.NewReader([]byte(`{"status":"closed"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
