// Package stats computes the dashboard aggregations over stored events.
//
// Every aggregation is a filter.Predicate evaluated by the store, so the
// JSON endpoints and the CSV exports count exactly the same rows for the
// same window. Windows are anchored on a single "now" captured by the
// caller once per request.
package stats
