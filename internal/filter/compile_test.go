package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name   string
		pred   Predicate
		sql    string
		params []any
	}{
		{"nil", nil, "1 = 1", nil},
		{"since", Since{Unix: 100}, "ts >= ?", []any{int64(100)}},
		{"kind prefix", KindPrefix{Prefix: "view"}, "(event COLLATE NOCASE >= ? AND event COLLATE NOCASE < ?)", []any{"view", "viex"}},
		{"kind prefix folds case", KindPrefix{Prefix: "View"}, "(event COLLATE NOCASE >= ? AND event COLLATE NOCASE < ?)", []any{"view", "viex"}},
		{"kind prefix bound skips capitals", KindPrefix{Prefix: "a@"}, "(event COLLATE NOCASE >= ? AND event COLLATE NOCASE < ?)", []any{"a@", "a["}},
		{"empty kind prefix", KindPrefix{}, "1 = 1", nil},
		{"kind in", KindIn{Kinds: []string{"a", "b"}}, "event IN (?, ?)", []any{"a", "b"}},
		{"empty kind in", KindIn{}, "1 = 0", nil},
		{"equals", Equals{Field: ColumnKind, Value: "search"}, "event = ?", []any{"search"}},
		{"contains", Contains{Field: ColumnPage, Substr: "/blog/"}, `page LIKE ? ESCAPE '\'`, []any{"%/blog/%"}},
		{"contains escapes", Contains{Field: ColumnValue, Substr: "50%_off"}, `value LIKE ? ESCAPE '\'`, []any{`%50\%\_off%`}},
		{"not null", NotNull{Field: ColumnValue}, "value IS NOT NULL", nil},
		{"empty and", And{}, "1 = 1", nil},
		{"empty or", Or{}, "1 = 0", nil},
		{"single and", All(Since{Unix: 1}), "ts >= ?", []any{int64(1)}},
		{
			"nested",
			All(Since{Unix: 5}, Equals{Field: ColumnKind, Value: "click"},
				Any(Contains{Field: ColumnElement, Substr: "subscribe"}, Contains{Field: ColumnProps, Substr: "youtube.com/"})),
			`(ts >= ? AND event = ? AND (element LIKE ? ESCAPE '\' OR props LIKE ? ESCAPE '\'))`,
			[]any{int64(5), "click", "%subscribe%", "%youtube.com/%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompileRejectsUnknownColumns(t *testing.T) {
	bad := []Predicate{
		Equals{Field: "password", Value: "x"},
		Contains{Field: "1=1; DROP TABLE events; --", Substr: "x"},
		Contains{Field: ColumnTimestamp, Substr: "1"},
		NotNull{Field: "nope"},
		All(Since{Unix: 1}, Equals{Field: "bogus"}),
	}
	for _, p := range bad {
		_, _, err := Compile(p)
		assert.Error(t, err, "%#v", p)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	upper, ok := prefixUpperBound("view")
	require.True(t, ok)
	assert.Equal(t, "viex", upper)

	upper, ok = prefixUpperBound("a\xff")
	require.True(t, ok)
	assert.Equal(t, "b", upper)

	_, ok = prefixUpperBound("\xff\xff")
	assert.False(t, ok)
}
