// Package bulletin turns exported HTML documents into weekly bulletin
// records consumed by the site build.
//
// A record is keyed by the Monday of the week containing the document's
// modification time, so editing a document during the same week rewrites
// the same record while a document touched in a later week produces a new
// one. Local assets referenced by the document are copied next to the
// generated pages and the references rewritten to point at the copies.
package bulletin
