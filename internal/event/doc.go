// Package event defines the collected event model shared by every other
// internal package.
//
// This package contains the type definitions, the ingestion wire decoder,
// and the named accessors used by aggregations to read the opaque
// properties payload. event imports nothing internal.
//
// Key constraints:
//   - ID is assigned by the store, never by callers
//   - Timestamp and Kind are always set after decoding (server fills defaults)
//   - IP and UserAgent come from the transport, never from the payload
//   - Properties is stored verbatim as JSON text and only read through accessors
package event
