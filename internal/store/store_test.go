package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "toolgate.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInvocationCreateAndGet(t *testing.T) {
	repo := newTestStore(t).Invocations()

	inv := &Invocation{
		ID:         "inv-1",
		Tool:       "echo.echo-text",
		Arguments:  json.RawMessage(`{"text":"hi"}`),
		Status:     "ok",
		DurationMs: 42,
	}
	if err := repo.Create(inv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Tool != "echo.echo-text" {
		t.Errorf("Tool = %q", got.Tool)
	}
	if got.Status != "ok" {
		t.Errorf("Status = %q", got.Status)
	}
	if got.DurationMs != 42 {
		t.Errorf("DurationMs = %d", got.DurationMs)
	}
	if string(got.Arguments) != `{"text":"hi"}` {
		t.Errorf("Arguments = %s", got.Arguments)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestInvocationGetByIDNotFound(t *testing.T) {
	repo := newTestStore(t).Invocations()

	_, err := repo.GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestInvocationDefaultsEmptyArguments(t *testing.T) {
	repo := newTestStore(t).Invocations()

	if err := repo.Create(&Invocation{ID: "inv-1", Tool: "a.b", Status: "ok"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if string(got.Arguments) != "{}" {
		t.Errorf("Arguments = %s, want {}", got.Arguments)
	}
}

func TestInvocationStatusConstraint(t *testing.T) {
	repo := newTestStore(t).Invocations()

	err := repo.Create(&Invocation{ID: "inv-1", Tool: "a.b", Status: "pending"})
	if err == nil {
		t.Fatal("Create() accepted unknown status")
	}
}

func TestInvocationRecent(t *testing.T) {
	repo := newTestStore(t).Invocations()

	for i := 0; i < 5; i++ {
		inv := &Invocation{
			ID:     fmt.Sprintf("inv-%d", i),
			Tool:   "a.b",
			Status: "ok",
		}
		if err := repo.Create(inv); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	recent, err := repo.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	if recent[0].ID != "inv-4" || recent[2].ID != "inv-2" {
		t.Errorf("order = [%s %s %s], want newest first", recent[0].ID, recent[1].ID, recent[2].ID)
	}
}

func TestInvocationCountByStatus(t *testing.T) {
	repo := newTestStore(t).Invocations()

	records := []struct {
		id     string
		status string
	}{
		{"inv-1", "ok"},
		{"inv-2", "ok"},
		{"inv-3", "error"},
	}
	for _, rec := range records {
		inv := &Invocation{ID: rec.id, Tool: "a.b", Status: rec.status}
		if rec.status == "error" {
			inv.Error = "boom"
		}
		if err := repo.Create(inv); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	okCount, err := repo.CountByStatus("ok")
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if okCount != 2 {
		t.Errorf("ok count = %d, want 2", okCount)
	}

	errCount, err := repo.CountByStatus("error")
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if errCount != 1 {
		t.Errorf("error count = %d, want 1", errCount)
	}
}
