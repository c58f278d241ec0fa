package session

import (
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(hclog.NewNullLogger())
	go m.Run()
	t.Cleanup(m.Stop)
	return m
}

func TestManager_OpenDeliversManifestFirst(t *testing.T) {
	m := newTestManager(t)

	s := m.Open([]byte("manifest"))
	if err := m.Push(s.ID, []byte("second")); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	first := <-s.Events()
	if string(first) != "manifest" {
		t.Errorf("first event = %q, want manifest", first)
	}
	second := <-s.Events()
	if string(second) != "second" {
		t.Errorf("second event = %q, want second", second)
	}
}

func TestManager_ConcurrentOpensAreIndependent(t *testing.T) {
	m := newTestManager(t)

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.Open([]byte("manifest"))
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
	if m.LiveCount() != n {
		t.Errorf("LiveCount() = %d, want %d", m.LiveCount(), n)
	}
}

func TestManager_CloseReclaimsWithinBoundedDelay(t *testing.T) {
	m := newTestManager(t)

	s := m.Open([]byte("manifest"))
	if m.LiveCount() != 1 {
		t.Fatalf("LiveCount() = %d, want 1", m.LiveCount())
	}

	m.Close(s.ID)

	deadline := time.Now().Add(2 * time.Second)
	for m.LiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not reclaimed within 2s, state = %s", s.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}

	// The event channel is closed on reap; the buffered manifest drains
	// first.
	<-s.Events()
	if _, open := <-s.Events(); open {
		t.Error("events channel should be closed after reap")
	}
}

func TestManager_PushToUnknownSession(t *testing.T) {
	m := newTestManager(t)

	if err := m.Push("no-such-id", []byte("x")); err != ErrSessionNotFound {
		t.Errorf("Push() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_SlowConsumerMarkedClosing(t *testing.T) {
	m := newTestManager(t)

	s := m.Open([]byte("manifest"))

	// Fill the buffer without draining. One slot holds the manifest.
	for i := 0; i < eventBuffer; i++ {
		m.Push(s.ID, []byte("event"))
	}

	if got := s.State(); got == Active {
		t.Error("session should leave Active once its buffer overflows")
	}

	// The reaper removes it without any explicit Close call.
	deadline := time.Now().Add(2 * time.Second)
	for m.LiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stalled session not reclaimed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_CloseIsMonotonic(t *testing.T) {
	m := newTestManager(t)

	s := m.Open([]byte("manifest"))
	m.Close(s.ID)
	m.Close(s.ID) // Repeat close is a no-op.

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != Closed {
		if time.Now().After(deadline) {
			t.Fatal("session never closed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Pushes to a Closed session report not-found after reap removal.
	if err := m.Push(s.ID, []byte("late")); err != ErrSessionNotFound {
		t.Errorf("Push() after close error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_TeardownDoesNotAffectOtherSessions(t *testing.T) {
	m := newTestManager(t)

	a := m.Open([]byte("manifest-a"))
	b := m.Open([]byte("manifest-b"))

	m.Close(a.ID)
	deadline := time.Now().Add(2 * time.Second)
	for m.LiveCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("closed session not reclaimed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if b.State() != Active {
		t.Errorf("unrelated session state = %s, want active", b.State())
	}
	if err := m.Push(b.ID, []byte("still works")); err != nil {
		t.Errorf("Push() to surviving session error = %v", err)
	}
}

func TestManager_Broadcast(t *testing.T) {
	m := newTestManager(t)

	a := m.Open([]byte("m"))
	b := m.Open([]byte("m"))
	m.Broadcast([]byte("update"))

	for _, s := range []*Session{a, b} {
		<-s.Events() // manifest
		ev := <-s.Events()
		if string(ev) != "update" {
			t.Errorf("broadcast event = %q, want update", ev)
		}
	}
}
