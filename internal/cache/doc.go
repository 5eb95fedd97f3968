// Package cache implements the in-memory object store shared by all proxy
// connections: a bounded, LRU-ordered key→bytes map guarded by a single
// mutex. Lookups promote entries to most-recently-used; inserts evict from
// the tail until the new object fits and are first-writer-wins so concurrent
// fetches of the same URI never duplicate entries. The store never performs
// I/O and never inspects HTTP semantics; proxy handlers depend on it plus the
// ObjectBuffer accumulation helper to decide what is eligible for caching.
package cache
