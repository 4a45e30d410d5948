// Package store provides SQLite-backed persistence for the outpost daemon:
// sensors, append-only event and media records, and the sync_tracking ledger
// that maps local rows to their backend acknowledgment state.
package store
