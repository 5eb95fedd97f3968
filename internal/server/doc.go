// Package server hosts the Fiber HTTP service and request middleware chain
// for the forwarding proxy: absolute-form request-target parsing, method
// gating, request IDs, and the shared upstream HTTP client. Fiber supplies
// the accept loop and per-connection concurrency, so this package stays a
// thin glue layer that injects explicit dependencies (logger, proxy handler)
// and exposes router constructors that main and the proxy package reuse.
// Keep exports narrow; diagnostics surfaces live under server/routes.
package server
