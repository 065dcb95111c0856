package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/filter"
)

// TestCountAgreesWithMatch checks that the compiled SQL of every predicate
// selects exactly the events filter.Match accepts.
func TestCountAgreesWithMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	kinds := []string{"", "view", "view_blog", "View", "viewz", "search", "click", "appointment", "appointment_gcal", "email_send", "VIEW_Home", "A@x", "a[y", "a`"}
	pages := []string{"", "/", "/blog/a", "/BLOG/b", "/about", "/blog/%_x"}
	elements := []string{"", "subscribe-btn", "SUBSCRIBE", "nav"}

	var all []event.Event
	for i, k := range kinds {
		for j, p := range pages {
			e := event.Event{
				Timestamp: int64(1000 + i*10 + j),
				Kind:      k,
				Page:      p,
				Element:   elements[(i+j)%len(elements)],
				Value:     pages[(i*3+j)%len(pages)],
				Props:     event.Properties(fmt.Sprintf(`{"n":%d}`, i*j)),
			}
			all = append(all, e)
		}
	}
	if _, err := s.AppendBatch(ctx, all); err != nil {
		t.Fatalf("AppendBatch() failed: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	genLeaf := gen.OneGenOf(
		gen.Int64Range(900, 1200).Map(func(ts int64) filter.Predicate { return filter.Since{Unix: ts} }),
		gen.OneConstOf("", "v", "view", "View", "VIEW_h", "view_", "app", "appointment", "a@", "a", "z").Map(func(p string) filter.Predicate {
			return filter.KindPrefix{Prefix: p}
		}),
		gen.SliceOfN(2, gen.OneConstOf(kinds[0], kinds[1], kinds[5], kinds[7], kinds[8])).Map(func(ks []string) filter.Predicate {
			return filter.KindIn{Kinds: ks}
		}),
		gen.OneConstOf("", "/blog/a", "/").Map(func(v string) filter.Predicate {
			return filter.Equals{Field: filter.ColumnPage, Value: v}
		}),
		gen.OneConstOf("blog", "BLOG/", "%", "_x", "subscribe").Map(func(sub string) filter.Predicate {
			return filter.Contains{Field: filter.ColumnPage, Substr: sub}
		}),
		gen.OneConstOf("subscribe", "Nav").Map(func(sub string) filter.Predicate {
			return filter.Contains{Field: filter.ColumnElement, Substr: sub}
		}),
		gen.OneConstOf(filter.ColumnValue, filter.ColumnElement, filter.ColumnPage).Map(func(c filter.Column) filter.Predicate {
			return filter.NotNull{Field: c}
		}),
	)

	genPred := gopter.CombineGens(gen.SliceOfN(3, genLeaf), gen.IntRange(0, 2)).Map(func(vals []interface{}) filter.Predicate {
		leaves := vals[0].([]filter.Predicate)
		switch vals[1].(int) {
		case 0:
			return filter.And{Predicates: leaves}
		case 1:
			return filter.Or{Predicates: leaves}
		}
		return filter.All(leaves[0], filter.Any(leaves[1], leaves[2]))
	})

	properties.Property("SQL count equals in-memory matches", prop.ForAll(
		func(p filter.Predicate) bool {
			got, err := s.Count(ctx, p)
			if err != nil {
				return false
			}
			var want int64
			for _, e := range all {
				if filter.Match(p, e) {
					want++
				}
			}
			return got == want
		},
		genPred,
	))

	properties.TestingRun(t)
}
