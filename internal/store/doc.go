// Package store provides durable SQL storage for decisions and outcomes.
//
// The store is an append-only audit log with two tables:
//   - decisions: one row per issued decision, keyed by id
//   - outcomes: at most one row per decision (UNIQUE decision_id)
//
// Two dialects share the same code: SQLite (the default, file-backed, used by
// the CLI) and PostgreSQL via lib/pq.
//
// # Idempotency
//
// Both tables are written with ON CONFLICT DO NOTHING. Saving a decision id
// twice keeps the first record; a second outcome for the same decision
// reports inserted=false. Restoring metrics from the outcomes table therefore
// counts each decision once, even across restarts.
//
// # Time
//
// created_at and observed_at are stored as Unix nanoseconds so ordering and
// range filters are plain integer comparisons in both dialects.
//
// # SQLite configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
