package benchmarks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

func noopDeliverer() retry.Deliverer {
	return retry.DelivererFunc(func(context.Context, retry.QueuedEvent) error { return nil })
}

func benchmarkAdd(b *testing.B, store retry.Store) {
	b.Helper()
	ctx := context.Background()
	q, err := retry.New(ctx, store, noopDeliverer(), retry.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	props := value.Properties{"property_id": value.String("p-1")}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Add(ctx, "property_viewed", props)
		if q.Size() >= 100 {
			b.StopTimer()
			_ = q.Clear(ctx)
			b.StartTimer()
		}
	}
}

// BenchmarkQueueAdd_Memory measures Add with in-memory persistence.
func BenchmarkQueueAdd_Memory(b *testing.B) {
	benchmarkAdd(b, retry.NewMemoryStore())
}

// BenchmarkQueueAdd_File measures Add with atomic file persistence.
func BenchmarkQueueAdd_File(b *testing.B) {
	store, err := retry.NewFileStore(filepath.Join(b.TempDir(), "queue.json"))
	if err != nil {
		b.Fatal(err)
	}
	benchmarkAdd(b, store)
}

// BenchmarkQueueAdd_SQLite measures Add with SQLite persistence.
func BenchmarkQueueAdd_SQLite(b *testing.B) {
	store, err := retry.NewSQLiteStore(filepath.Join(b.TempDir(), "queue.db"), retry.DefaultKey)
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	benchmarkAdd(b, store)
}

// BenchmarkEncode_100 encodes a 100-entry queue document.
func BenchmarkEncode_100(b *testing.B) {
	events := make([]retry.QueuedEvent, 100)
	for i := range events {
		events[i] = retry.QueuedEvent{
			ID:         "1700000000000-abcdef012",
			EventName:  "property_viewed",
			Properties: value.Properties{"property_id": value.String("p-1"), "rank": value.Int(int64(i))},
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = retry.Encode(events)
	}
}

// BenchmarkBackoffDelay measures the delay computation.
func BenchmarkBackoffDelay(b *testing.B) {
	bo := retry.Backoff{Base: 1}
	for i := 0; i < b.N; i++ {
		_ = bo.Delay(i % 40)
	}
}
