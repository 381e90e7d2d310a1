package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/shardindex"
	"mintsniper/internal/storage/memory"
)

// stubSource emits a fixed batch of events and then blocks until cancelled.
type stubSource struct {
	venue  string
	events []domain.TokenSeen
}

func (s *stubSource) Venue() string { return s.venue }

func (s *stubSource) Run(ctx context.Context, out chan<- domain.TokenSeen) error {
	for _, ev := range s.events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func testAddress(prefix string) string {
	return prefix + strings.Repeat("x", domain.MinAddressLen-len(prefix))
}

func TestIngestorHandleIndexesShapedAddresses(t *testing.T) {
	ix := shardindex.New()
	in := NewIngestor(IngestorOptions{
		Index:  ix,
		Logger: zerolog.Nop(),
	})

	addr := testAddress("Hand1eone")
	in.Handle(domain.TokenSeen{Address: addr, Venue: "pumpstream", ObservedAt: 100})

	if !ix.Contains(addr) {
		t.Fatalf("address %q not indexed", addr)
	}
	if got := ix.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
}

func TestIngestorHandleDropsMalformed(t *testing.T) {
	ix := shardindex.New()
	in := NewIngestor(IngestorOptions{
		Index:  ix,
		Logger: zerolog.Nop(),
	})

	in.Handle(domain.TokenSeen{Address: "short", Venue: "pumpstream", ObservedAt: 100})
	in.Handle(domain.TokenSeen{Address: testAddress("Bad") + "!!", Venue: "raydium", ObservedAt: 100})

	if got := ix.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0", got)
	}
}

func TestIngestorHandleDuplicateIsIdempotent(t *testing.T) {
	ix := shardindex.New()
	in := NewIngestor(IngestorOptions{
		Index:  ix,
		Logger: zerolog.Nop(),
	})

	addr := testAddress("DupAddr")
	in.Handle(domain.TokenSeen{Address: addr, Venue: "pumpstream", ObservedAt: 100})
	in.Handle(domain.TokenSeen{Address: addr, Venue: "raydium", ObservedAt: 200})

	if got := ix.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
	if ts, _ := ix.ObservedAt(addr); ts != 100 {
		t.Fatalf("ObservedAt = %d, want first observation 100", ts)
	}
}

func TestIngestorRunStreamsAndFlushesOnShutdown(t *testing.T) {
	ix := shardindex.New()
	mirror := memory.NewShardMirrorStore()

	first := testAddress("RunFirst")
	second := testAddress("RunSecond")
	src := &stubSource{
		venue: "pumpstream",
		events: []domain.TokenSeen{
			{Address: first, Venue: "pumpstream", ObservedAt: 100},
			{Address: second, Venue: "pumpstream", ObservedAt: 200},
			{Address: "malformed", Venue: "pumpstream", ObservedAt: 300},
		},
	}

	in := NewIngestor(IngestorOptions{
		Index:         ix,
		Mirror:        mirror,
		Sources:       []TokenSource{src},
		FlushInterval: time.Hour, // only the shutdown flush should run
		Logger:        zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ix.Size() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for inserts, Size() = %d", ix.Size())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v, want nil on cancellation", err)
	}

	// The shutdown flush must have persisted every shard key of both
	// addresses.
	for _, addr := range []string{first, second} {
		for _, key := range shardindex.ShardKeys(addr) {
			members, err := mirror.GetMembers(context.Background(), key)
			if err != nil {
				t.Fatalf("GetMembers(%q): %v", key, err)
			}
			found := false
			for _, m := range members {
				if m.Address == addr {
					found = true
				}
			}
			if !found {
				t.Fatalf("mirror missing %q under shard key %q", addr, key)
			}
		}
	}
}

func TestIngestorEvictRemovesStaleAndCleansMirror(t *testing.T) {
	ix := shardindex.New()
	mirror := memory.NewShardMirrorStore()

	stale := testAddress("Sta1eAddr")
	fresh := testAddress("FreshAddr")

	in := NewIngestor(IngestorOptions{
		Index:  ix,
		Mirror: mirror,
		MaxAge: time.Minute,
		Logger: zerolog.Nop(),
	})
	in.now = func() int64 { return 200_000 }

	in.Handle(domain.TokenSeen{Address: stale, Venue: "pumpstream", ObservedAt: 100_000})
	in.Handle(domain.TokenSeen{Address: fresh, Venue: "pumpstream", ObservedAt: 195_000})
	in.flush(context.Background())

	in.evict(context.Background())

	if ix.Contains(stale) {
		t.Fatalf("stale address survived eviction")
	}
	if !ix.Contains(fresh) {
		t.Fatalf("fresh address was evicted")
	}

	for _, key := range shardindex.ShardKeys(stale) {
		members, err := mirror.GetMembers(context.Background(), key)
		if err != nil {
			t.Fatalf("GetMembers(%q): %v", key, err)
		}
		for _, m := range members {
			if m.Address == stale {
				t.Fatalf("mirror still holds evicted address under %q", key)
			}
		}
	}
}

func TestIngestorEvictDisabledByZeroMaxAge(t *testing.T) {
	ix := shardindex.New()
	in := NewIngestor(IngestorOptions{
		Index:  ix,
		Logger: zerolog.Nop(),
	})
	in.now = func() int64 { return 1_000_000_000 }

	addr := testAddress("o1dButKept")
	in.Handle(domain.TokenSeen{Address: addr, Venue: "raydium", ObservedAt: 1})

	in.evict(context.Background())

	if !ix.Contains(addr) {
		t.Fatalf("eviction ran with MaxAge disabled")
	}
}
