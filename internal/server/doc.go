// Package server exposes the collector over HTTP using gin.
//
// Routes under /api and /metrics are gated by the shared token when one is
// configured. Every response carries permissive CORS headers so the site's
// pages, served from another origin, can post events and the admin page can
// read stats.
package server
