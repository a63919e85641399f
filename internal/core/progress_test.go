package core

import (
	"testing"
	"time"
)

func TestTrackerStates(t *testing.T) {
	tr := NewTracker("film_work", "genre")

	if tr.Done() {
		t.Fatal("Done() = true for pending tables")
	}

	tr.SetState("film_work", StateExtracting)
	p, _ := tr.Get("film_work")
	if p.StartedAt == nil || p.FinishedAt != nil {
		t.Errorf("after extracting: StartedAt = %v, FinishedAt = %v", p.StartedAt, p.FinishedAt)
	}
	started := *p.StartedAt

	tr.SetState("film_work", StateWriting)
	tr.SetState("film_work", StateVerified)
	p, _ = tr.Get("film_work")
	if !p.StartedAt.Equal(started) {
		t.Errorf("StartedAt moved from %v to %v", started, *p.StartedAt)
	}
	if p.FinishedAt == nil || p.State != StateVerified {
		t.Errorf("after verified: %+v", p)
	}

	tr.SetState("genre", StateFailed)
	if !tr.Done() {
		t.Error("Done() = false with every table terminal")
	}
}

func TestTrackerSnapshotOrder(t *testing.T) {
	tr := NewTracker("film_work", "genre")
	tr.Update("person", func(p *TableProgress) { p.RowsRead = 4 })

	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	for i, want := range []string{"film_work", "genre", "person"} {
		if snap[i].Table != want {
			t.Errorf("Snapshot()[%d] = %s, want %s", i, snap[i].Table, want)
		}
	}
	if snap[2].RowsRead != 4 || snap[2].State != StatePending {
		t.Errorf("person = %+v, want pending with 4 rows read", snap[2])
	}

	// Snapshots are copies
	snap[0].Batches = 99
	if p, _ := tr.Get("film_work"); p.Batches != 0 {
		t.Errorf("Batches = %d after mutating snapshot, want 0", p.Batches)
	}
}

func TestTrackerSubscribe(t *testing.T) {
	tr := NewTracker("genre")
	ch := tr.Subscribe()

	tr.Update("genre", func(p *TableProgress) { p.Batches = 1 })

	select {
	case p := <-ch:
		if p.Table != "genre" || p.Batches != 1 {
			t.Errorf("update = %+v, want genre with 1 batch", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	tr.Close()
	tr.Close()
	if _, ok := <-ch; ok {
		t.Error("channel open after Close()")
	}
	if _, ok := <-tr.Subscribe(); ok {
		t.Error("Subscribe() after Close() returned an open channel")
	}
}

func TestTrackerSlowSubscriberDoesNotBlock(t *testing.T) {
	tr := NewTracker("genre")
	_ = tr.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			tr.Update("genre", func(p *TableProgress) { p.Batches++ })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on a subscriber that never reads")
	}
	if p, _ := tr.Get("genre"); p.Batches != 100 {
		t.Errorf("Batches = %d, want 100", p.Batches)
	}
}
