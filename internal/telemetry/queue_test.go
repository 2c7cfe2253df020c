package telemetry

import (
	"sync"
	"testing"

	"github.com/dshills/corekit/internal/bus"
)

func TestQueue_Record(t *testing.T) {
	q := NewQueue()

	q.Record("error", map[string]any{"msg": "boom"}, "forms")

	snap := q.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Len = %d, want 1", len(snap))
	}
	rec := snap[0]
	if rec.Type != "error" {
		t.Errorf("Type = %q, want error", rec.Type)
	}
	if rec.Context != "forms" {
		t.Errorf("Context = %q, want forms", rec.Context)
	}
	if rec.ID == "" {
		t.Error("ID is empty")
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()

	q.Record("a", nil, "")
	q.Record("b", nil, "")
	q.Record("c", nil, "")

	snap := q.Snapshot()
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if snap[i].Type != w {
			t.Errorf("record %d type = %q, want %q", i, snap[i].Type, w)
		}
	}
}

func TestQueue_EvictsOldest(t *testing.T) {
	q := NewQueue()

	// 1 "t1" then 50 "t2": the t1 record and nothing else is evicted.
	q.Record("t1", nil, "")
	for i := 0; i < 50; i++ {
		q.Record("t2", i, "")
	}

	snap := q.Snapshot()
	if len(snap) != 50 {
		t.Fatalf("Len = %d, want 50", len(snap))
	}
	if snap[0].Type != "t2" || snap[0].Payload != 0 {
		t.Errorf("head = {%s %v}, want first t2 record", snap[0].Type, snap[0].Payload)
	}
	if snap[49].Type != "t2" || snap[49].Payload != 49 {
		t.Errorf("tail = {%s %v}, want 50th t2 record", snap[49].Type, snap[49].Payload)
	}
	if got := q.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	q := NewQueue(WithCapacity(5))

	for i := 0; i < 100; i++ {
		q.Record("t", i, "")
		if got := q.Len(); got > 5 {
			t.Fatalf("Len = %d after record %d, exceeds capacity 5", got, i)
		}
	}

	snap := q.Snapshot()
	if snap[0].Payload != 95 || snap[4].Payload != 99 {
		t.Errorf("retained payloads %v..%v, want 95..99", snap[0].Payload, snap[4].Payload)
	}
}

func TestQueue_CapacityFallback(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"zero", 0, DefaultCapacity},
		{"negative", -3, DefaultCapacity},
		{"positive", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(WithCapacity(tt.n))
			if got := q.Capacity(); got != tt.want {
				t.Errorf("Capacity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueue_SnapshotIndependent(t *testing.T) {
	q := NewQueue()
	q.Record("a", nil, "")

	snap := q.Snapshot()
	snap[0].Type = "mutated"
	_ = append(snap, Record{Type: "extra"})

	again := q.Snapshot()
	if len(again) != 1 {
		t.Fatalf("later Snapshot Len = %d, want 1", len(again))
	}
	if again[0].Type != "a" {
		t.Errorf("later Snapshot type = %q, want a", again[0].Type)
	}
}

func TestQueue_RecordNeverPanics(t *testing.T) {
	q := NewQueue()

	// Self-referential and otherwise awkward payloads must be accepted.
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	q.Record("", nil, "")
	q.Record("t", cyclic, "ctx")
	q.Record("t", func() {}, "ctx")

	if got := q.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	q.Record("a", nil, "")
	q.Record("b", nil, "")

	q.Clear()

	if got := q.Len(); got != 0 {
		t.Errorf("Len = %d after Clear, want 0", got)
	}
}

func TestQueue_ConcurrentRecord(t *testing.T) {
	q := NewQueue(WithCapacity(10))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Record("t", i, "")
			}
		}(i)
	}
	wg.Wait()

	if got := q.Len(); got != 10 {
		t.Errorf("Len = %d, want 10", got)
	}
	if got := q.Stats().Recorded; got != 1000 {
		t.Errorf("Recorded = %d, want 1000", got)
	}
}

func TestCollector_Watch(t *testing.T) {
	q := NewQueue()
	b := bus.New()
	c := NewCollector(q, b)

	c.Watch("ui.error", "error", "collector")
	b.Publish("ui.error", "bad input")
	b.Publish("ui.click", "ignored")

	snap := q.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Len = %d, want 1", len(snap))
	}
	if snap[0].Type != "error" || snap[0].Payload != "bad input" {
		t.Errorf("record = {%s %v}, want {error bad input}", snap[0].Type, snap[0].Payload)
	}
}

func TestCollector_Close(t *testing.T) {
	q := NewQueue()
	b := bus.New()
	c := NewCollector(q, b)

	c.Watch("a", "t", "")
	c.Watch("b", "t", "")
	c.Close()

	b.Publish("a", nil)
	b.Publish("b", nil)

	if got := q.Len(); got != 0 {
		t.Errorf("Len = %d after Close, want 0", got)
	}
}
