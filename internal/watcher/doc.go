// Package watcher polls the bulletin source tree and regenerates records
// when documents change.
//
// Each pass moves through the states
//
//	Idle → Scanning → Idle                              (nothing changed)
//	Idle → Scanning → Converting → Rebuilding → Idle    (something changed)
//
// The snapshot of (path, mtime) pairs used for change detection only
// advances after a pass completes, rebuild included. Documents that failed
// to convert are left out of the stored snapshot so the next poll retries
// them. Passes never overlap, and a panic inside a pass is recovered and
// reported as an error.
//
// Polling is the source of truth. An fsnotify watch on the source tree only
// shortens the wait before the next poll.
package watcher
