// Package retry provides a durable queue of analytics events whose delivery
// failed, re-attempting them with exponential backoff.
//
// The queue holds its entries in memory and mirrors them into a Store after
// every mutation batch. A Store holds exactly one document: the JSON array of
// queued events. Four stores are provided:
//
//   - MemoryStore: process-local, for tests and ephemeral runtimes
//   - FileStore: a single JSON file replaced atomically on save
//   - SQLiteStore: one row of a key/value table (modernc.org/sqlite)
//   - RedisStore: one Redis key (go-redis)
//
// # Lifecycle
//
//	q, err := retry.New(ctx, store, retry.NewHTTPDeliverer(endpoint), retry.DefaultConfig())
//	q.Start(ctx)       // eager pass, then one pass per FlushInterval
//	defer q.Close()    // stop the timer, final persist
//
// Entries older than MaxAge are discarded when the queue is loaded. An entry
// is dropped after MaxRetries failed attempts.
package retry
