// Package metrics exposes Prometheus counters for credential resolution,
// local authentication and HTTP traffic.
//
// A *Metrics is passed to identity.NewResolver and identity.NewLocalStrategy
// as their Observer, wraps the router with Middleware, and is scraped through
// Handler.
package metrics
