package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/vmsite/collector/internal/event"
)

func TestAppend_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := event.Event{
		Timestamp: 1700000000,
		ClientID:  "c1",
		SessionID: "s1",
		IP:        "10.0.0.1",
		UserAgent: "test-agent",
		Referrer:  "https://example.com/",
		Page:      "/blog/x",
		Kind:      "view",
		Element:   "a#hero",
		Value:     "42",
		Props:     `{"a":1}`,
	}

	id, err := s.Append(ctx, e)
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("Append() id = %d, want > 0", id)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	e.ID = id
	if got != e {
		t.Errorf("Get() = %+v, want %+v", got, e)
	}
}

func TestAppend_EmptyOptionalFieldsStoredAsNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.Append(ctx, event.Event{Timestamp: 5, Kind: "view"})
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var page, ref sql.NullString
	var props string
	err = s.db.QueryRow("SELECT page, ref, props FROM events WHERE id = ?", id).Scan(&page, &ref, &props)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if page.Valid || ref.Valid {
		t.Errorf("page/ref should be NULL, got %v/%v", page, ref)
	}
	if props != "{}" {
		t.Errorf("props = %q, want {}", props)
	}
}

func TestAppend_IDsIncrease(t *testing.T) {
	s := createTestStore(t)

	// Timestamps deliberately go backwards; ids still follow append order
	ids := mustAppend(t, s,
		createTestEvent(300, "view", "/a"),
		createTestEvent(200, "view", "/b"),
		createTestEvent(100, "view", "/c"),
	)
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("ids not increasing: %v", ids)
		}
	}
}

func TestAppend_Concurrent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var mu sync.Mutex
	var ids []int64
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := s.Append(ctx, createTestEvent(int64(w*1000+i), "view", "/"))
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				ids = append(ids, id)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Append() failed: %v", err)
	}

	if len(ids) != workers*perWorker {
		t.Fatalf("got %d ids, want %d", len(ids), workers*perWorker)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate id %d", ids[i])
		}
	}

	n, err := s.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != workers*perWorker {
		t.Errorf("Count() = %d, want %d", n, workers*perWorker)
	}
}

func TestAppendBatch_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ids, err := s.AppendBatch(ctx, []event.Event{
		createTestEvent(1, "view", "/a"),
		createTestEvent(2, "click", "/b"),
		createTestEvent(3, "search", "/c"),
	})
	if err != nil {
		t.Fatalf("AppendBatch() failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("AppendBatch() returned %d ids, want 3", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("batch ids not increasing: %v", ids)
		}
	}
}

func TestAppendBatch_Empty(t *testing.T) {
	s := createTestStore(t)

	ids, err := s.AppendBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("AppendBatch(nil) failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("AppendBatch(nil) = %v, want empty", ids)
	}
}

func TestAppendBatch_ItemFailureIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Reject one specific page at the storage layer
	_, err := s.db.Exec(`
		CREATE TRIGGER reject_boom BEFORE INSERT ON events
		WHEN NEW.page = '/boom'
		BEGIN SELECT RAISE(ABORT, 'boom rejected'); END
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	ids, err := s.AppendBatch(ctx, []event.Event{
		createTestEvent(1, "view", "/a"),
		createTestEvent(2, "view", "/boom"),
		createTestEvent(3, "view", "/c"),
	})

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("AppendBatch() error = %v, want *BatchError", err)
	}
	if !IsBatchError(err) {
		t.Error("IsBatchError() = false, want true")
	}
	if _, ok := be.Items[1]; !ok || len(be.Items) != 1 {
		t.Errorf("BatchError.Items = %v, want only index 1", be.Items)
	}
	if ids[0] == 0 || ids[1] != 0 || ids[2] == 0 {
		t.Errorf("ids = %v, want failure only at index 1", ids)
	}

	n, err := s.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
