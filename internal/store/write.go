package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vmsite/collector/internal/event"
)

const insertSQL = `
	INSERT INTO events
	(ts, client_id, session_id, ip, ua, ref, page, event, element, value, props)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// BatchError reports the items of a batch that could not be stored.
// Items is keyed by the index of the event in the batch.
type BatchError struct {
	Items map[int]error
}

func (e *BatchError) Error() string {
	idx := make([]int, 0, len(e.Items))
	for i := range e.Items {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("item %d: %v", i, e.Items[i]))
	}
	return fmt.Sprintf("append batch: %d failed: %s", len(idx), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Items))
	for _, err := range e.Items {
		out = append(out, err)
	}
	return out
}

// Append inserts one event and returns its id.
//
// The insert is its own transaction: after a crash the row is either fully
// present or absent. The event's ID field is ignored.
func (s *Store) Append(ctx context.Context, e event.Event) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, insertSQL, insertArgs(e)...)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event: last insert id: %w", err)
	}
	return id, nil
}

// AppendBatch inserts events in one transaction, isolating each item behind
// a savepoint so a failing item does not abort its siblings.
//
// ids is index-aligned with events; a failed item has id 0. When some items
// fail the error is a *BatchError. When the transaction itself cannot be
// started or committed, every id is 0 and the error is returned as is.
func (s *Store) AppendBatch(ctx context.Context, events []event.Event) ([]int64, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	ids := make([]int64, len(events))
	if len(events) == 0 {
		return ids, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ids, fmt.Errorf("append batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	failed := make(map[int]error)
	for i, e := range events {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_item"); err != nil {
			return make([]int64, len(events)), fmt.Errorf("append batch: savepoint: %w", err)
		}

		res, err := tx.ExecContext(ctx, insertSQL, insertArgs(e)...)
		if err == nil {
			ids[i], err = res.LastInsertId()
		}
		if err != nil {
			ids[i] = 0
			failed[i] = err
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO batch_item"); rbErr != nil {
				return make([]int64, len(events)), fmt.Errorf("append batch: rollback item %d: %w", i, rbErr)
			}
		}

		if _, err := tx.ExecContext(ctx, "RELEASE batch_item"); err != nil {
			return make([]int64, len(events)), fmt.Errorf("append batch: release: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return make([]int64, len(events)), fmt.Errorf("append batch: commit: %w", err)
	}

	if len(failed) > 0 {
		return ids, &BatchError{Items: failed}
	}
	return ids, nil
}

// IsBatchError reports whether err carries per-item failures.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
