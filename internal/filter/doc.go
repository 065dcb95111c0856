// Package filter is the small predicate language used to select events.
//
// Predicates are a sealed set of types compiled to parameterized SQL for the
// store, and evaluated in memory by Match. Both backends implement the same
// semantics, so an aggregation computed in SQL and a row-by-row scan agree:
//
//   - KindPrefix is a byte-wise prefix match on the kind column (index range scan)
//   - Contains mirrors SQLite LIKE '%x%' (ASCII case-insensitive)
//   - Optional columns that are empty are NULL and never match Equals/Contains
//   - Values are always bound as parameters, never interpolated
package filter
