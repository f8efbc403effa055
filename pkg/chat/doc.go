// Package chat holds the provider-agnostic data model shared by the stream
// dispatcher, the turn reconciler and the persistence layer: persisted rows
// as the backend stores them, reconciled UI-facing messages, tool output and
// file ingestion status.
package chat
