package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmsite/collector/internal/event"
)

func TestMatch(t *testing.T) {
	view := event.Event{Timestamp: 100, Kind: "view_blog", Page: "/blog/a"}
	click := event.Event{Timestamp: 50, Kind: "click", Element: "btn-Subscribe", Props: event.EmptyProperties}
	ytClick := event.Event{Timestamp: 50, Kind: "click", Props: `{"href":"https://youtube.com/@vm"}`}
	search := event.Event{Timestamp: 70, Kind: "search"}

	subs := All(Equals{Field: ColumnKind, Value: "click"},
		Any(Contains{Field: ColumnElement, Substr: "subscribe"}, Contains{Field: ColumnProps, Substr: "youtube.com/"}))

	tests := []struct {
		name string
		pred Predicate
		ev   event.Event
		want bool
	}{
		{"nil matches", nil, view, true},
		{"since inclusive", Since{Unix: 100}, view, true},
		{"since excludes older", Since{Unix: 101}, view, false},
		{"prefix", KindPrefix{Prefix: "view"}, view, true},
		{"prefix ignores case", KindPrefix{Prefix: "View"}, view, true},
		{"prefix ignores case of kind", KindPrefix{Prefix: "view"}, event.Event{Kind: "VIEW_home"}, true},
		{"prefix mismatch", KindPrefix{Prefix: "vie_"}, view, false},
		{"kind in", KindIn{Kinds: []string{"search", "click"}}, search, true},
		{"kind not in", KindIn{Kinds: []string{"click"}}, search, false},
		{"contains page", Contains{Field: ColumnPage, Substr: "/BLOG/"}, view, true},
		{"contains on null", Contains{Field: ColumnPage, Substr: ""}, search, false},
		{"not null", NotNull{Field: ColumnValue}, search, false},
		{"subscribe element", subs, click, true},
		{"youtube props", subs, ytClick, true},
		{"subs excludes views", subs, view, false},
		{"unknown column", Equals{Field: "nope", Value: ""}, view, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, tt.ev))
		})
	}
}
