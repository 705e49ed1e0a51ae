package delivery

import (
	"sync"
	"testing"
	"time"
)

type sendRecorder struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newSendRecorder(expected int) *sendRecorder {
	return &sendRecorder{done: make(chan struct{}, expected)}
}

func (r *sendRecorder) send(userID int64, text string) error {
	r.mu.Lock()
	r.calls = append(r.calls, text)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *sendRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func waitFired(t *testing.T, r *sendRecorder) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delayed send")
	}
}

func TestSchedulerFires(t *testing.T) {
	rec := newSendRecorder(1)
	s := NewScheduler(rec.send)
	defer s.Close()

	s.Schedule(7, "later", time.Millisecond)
	waitFired(t, rec)

	got := rec.texts()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected sends: %v", got)
	}
}

func TestCancelPreventsSend(t *testing.T) {
	rec := newSendRecorder(1)
	s := NewScheduler(rec.send)
	defer s.Close()

	h := s.Schedule(7, "never", time.Hour)
	if !h.Cancel() {
		t.Fatal("first cancel should win")
	}
	if h.Cancel() {
		t.Fatal("second cancel should report false")
	}
	if got := rec.texts(); len(got) != 0 {
		t.Fatalf("cancelled send still fired: %v", got)
	}
}

func TestCancelAfterFireReportsFalse(t *testing.T) {
	rec := newSendRecorder(1)
	s := NewScheduler(rec.send)
	defer s.Close()

	h := s.Schedule(7, "fast", time.Millisecond)
	waitFired(t, rec)
	if h.Cancel() {
		t.Fatal("cancel after fire should report false")
	}
}

func TestCancelPendingByUser(t *testing.T) {
	rec := newSendRecorder(3)
	s := NewScheduler(rec.send)
	defer s.Close()

	s.Schedule(1, "a", time.Hour)
	s.Schedule(1, "b", time.Hour)
	s.Schedule(2, "c", time.Hour)

	if n := s.CancelPending(1); n != 2 {
		t.Fatalf("cancelled %d follow-ups for user 1, expected 2", n)
	}
	if n := s.CancelPending(2); n != 1 {
		t.Fatalf("cancelled %d follow-ups for user 2, expected 1", n)
	}
	if n := s.CancelPending(3); n != 0 {
		t.Fatalf("cancelled %d follow-ups for user 3, expected 0", n)
	}
}

func TestCloseRejectsNewWork(t *testing.T) {
	rec := newSendRecorder(1)
	s := NewScheduler(rec.send)

	s.Schedule(1, "pending", time.Hour)
	s.Close()

	h := s.Schedule(1, "after close", time.Millisecond)
	if h.Cancel() {
		t.Fatal("handle issued after close should not be cancellable")
	}

	time.Sleep(20 * time.Millisecond)
	if got := rec.texts(); len(got) != 0 {
		t.Fatalf("sends after close: %v", got)
	}
}

func TestScheduleReturnsBeforeFire(t *testing.T) {
	rec := newSendRecorder(1)
	s := NewScheduler(rec.send)
	defer s.Close()

	start := time.Now()
	s.Schedule(1, "slow", 200*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Schedule blocked for %v", elapsed)
	}
}
