// Package harness runs collector scenarios end to end.
//
// A scenario is a YAML file describing a frozen clock, a sequence of HTTP
// requests against the collector API, and assertions over the resulting
// dashboard, exports and stored rows. Each run uses a fresh in-memory store
// and the real server, so scenarios exercise the same code paths as the
// deployed collector.
//
// # Scenario format
//
//	name: weekly_traffic
//	description: Views and conversions across one week
//	now: 2025-10-08T12:00:00Z
//	token: ""                      # shared secret, optional
//	requests:
//	  - events:                    # one item posts an object, more post a batch
//	      - {event: view, page: /blog/a, ago: 1h}
//	  - raw: '{"event":'           # literal body
//	    status: 400
//	  - method: GET
//	    path: /api/stats/summary
//	    anonymous: true            # omit the token header
//	    status: 401
//	assertions:
//	  - type: stored_count
//	    count: 1
//	  - type: counters
//	    window: last24
//	    expect: {views: 1}
//
// Supported assertion types are stored_count, counters, top, series, hours
// and export. RunWithGolden additionally snapshots the request statuses and
// stored rows to testdata/golden/<name>.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
