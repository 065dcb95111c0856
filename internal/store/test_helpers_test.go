package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vmsite/collector/internal/event"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with the minimal fields set.
func createTestEvent(ts int64, kind, page string) event.Event {
	return event.Event{
		Timestamp: ts,
		Kind:      kind,
		Page:      page,
		Props:     event.EmptyProperties,
	}
}

// mustAppend appends events and fails the test on error.
func mustAppend(t *testing.T, s *Store, events ...event.Event) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		id, err := s.Append(context.Background(), e)
		if err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
