// Package sqlite provides the persistent stores backing recall:
// the chunk store (vectors.db), the prompt cache (prompts.db) and the
// context memory (contexts.db). Each store owns its own database file so
// the three can be deleted independently - losing one costs acceleration
// or history, never correctness.
//
// Uniqueness invariants (one row per key, insert-or-ignore,
// insert-or-update) are enforced by UNIQUE constraints in the schema,
// never by check-then-insert logic in callers.
package sqlite
