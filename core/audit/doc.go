// Package audit appends structured, tamper-evident records of every
// security-relevant decision the gateway makes.
//
// Record is fire-and-forget: the caller's request path never blocks or
// fails because the audit store is slow or down. Internally a worker
// performs durable writes (Store.Append must not ack before the entry
// is persisted) and logs failures locally. Entries are append-only and
// never mutated; retention and export are the backing store owner's
// concern.
package audit
