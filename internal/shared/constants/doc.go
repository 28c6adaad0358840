// Package constants centralizes defaults shared across the CLI, the API and
// the analysis pipeline.
//
// Timeouts, body caps and concurrency bounds live here so cmd/ and internal/
// packages agree on them without importing each other.
package constants
