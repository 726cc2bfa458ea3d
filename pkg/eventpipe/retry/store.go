package retry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// DefaultKey names the document that holds the queue in keyed stores.
const DefaultKey = "eventpipe_retry_queue"

// Store persists the queue document.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored document, or nil if nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error

	// Close releases any resources (connections, files).
	Close() error
}

// Encode serializes events as a JSON array. A nil slice encodes as [].
func Encode(events []QueuedEvent) ([]byte, error) {
	if events == nil {
		events = []QueuedEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	return data, nil
}

// Decode parses a document produced by Encode. Empty input yields no events.
func Decode(data []byte) ([]QueuedEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var events []QueuedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return events, nil
}
