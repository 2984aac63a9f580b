// Package draftstore persists in-progress booking form state durably, so a
// draft survives an authentication redirect or a hand-off to the external
// payment gateway. It holds only resumable form state, never credentials.
package draftstore

import "context"

const fieldHistoryCap = 10

// Store is the durable draft interface. All draft persistence goes through
// here. Implementations must be safe for concurrent use; access is
// last-writer-wins with no locking, since the realistic pattern is one
// in-progress booking at a time.
type Store interface {
	// Save writes value under key, replacing any previous value.
	Save(ctx context.Context, key string, value any) error
	// Load reads the value under key into dest. A missing key or a value
	// that fails to decode degrades to (false, nil): there is no prior
	// draft, never an error the caller has to handle.
	Load(ctx context.Context, key string, dest any) (bool, error)
	// Clear removes the value under key. Clearing an absent key is a no-op.
	Clear(ctx context.Context, key string) error
	// AppendFieldHistory records a recently entered field value for input
	// suggestions, most recent first, deduplicated, capped at ten entries.
	AppendFieldHistory(ctx context.Context, field, value string) error
	// FieldHistory returns the recorded values for a field, most recent
	// first.
	FieldHistory(ctx context.Context, field string) ([]string, error)
	Ping(ctx context.Context) error
}
