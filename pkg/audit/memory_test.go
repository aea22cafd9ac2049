package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func record(n int) Record {
	return Record{
		RequestID: fmt.Sprintf("req-%d", n),
		Path:      "/page",
		Outcome:   "allowed",
		AccountID: "a1",
		At:        time.Unix(int64(n), 0),
	}
}

func TestMemorySink_RecentNewestFirst(t *testing.T) {
	sink := NewMemorySink(8)
	for i := 0; i < 5; i++ {
		if err := sink.Record(context.Background(), record(i)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	recent := sink.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("len(Recent(3)) = %d", len(recent))
	}
	for i, want := range []string{"req-4", "req-3", "req-2"} {
		if recent[i].RequestID != want {
			t.Errorf("Recent[%d] = %q, want %q", i, recent[i].RequestID, want)
		}
	}
}

func TestMemorySink_OverwritesOldest(t *testing.T) {
	sink := NewMemorySink(4)
	for i := 0; i < 10; i++ {
		sink.Record(context.Background(), record(i))
	}

	recent := sink.Recent(100)
	if len(recent) != 4 {
		t.Fatalf("len = %d, want capacity 4", len(recent))
	}
	if recent[0].RequestID != "req-9" || recent[3].RequestID != "req-6" {
		t.Errorf("recent = %v, want req-9..req-6", recent)
	}
}

func TestMemorySink_ConcurrentWrites(t *testing.T) {
	sink := NewMemorySink(128)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 32; j++ {
				sink.Record(context.Background(), record(n*100+j))
			}
		}(i)
	}
	wg.Wait()

	if got := len(sink.Recent(128)); got != 128 {
		t.Errorf("len = %d, want full ring", got)
	}
}
