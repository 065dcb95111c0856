package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/store"
)

// fixedNow is 2025-10-08T12:00:00Z.
var fixedNow = time.Unix(1759924800, 0).UTC()

// execute runs the CLI with a frozen clock and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{Now: func() time.Time { return fixedNow }})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seededDB creates a database holding events and returns its path.
func seededDB(t *testing.T, events ...event.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	if len(events) > 0 {
		_, err = st.AppendBatch(context.Background(), events)
		require.NoError(t, err)
	}
	return path
}
