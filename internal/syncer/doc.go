// Package syncer pushes locally stored events and media to the backend and
// records per-record outcomes in the sync ledger. A failed upload never
// aborts the sweep; the record is retried on a later pass.
package syncer
