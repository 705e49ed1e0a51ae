package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"contactbot/bot/metrics"
	"contactbot/core/logger"
)

// SendFunc performs the actual delayed send. It runs on the timer's goroutine,
// independent of whatever handler scheduled it.
type SendFunc func(userID int64, text string) error

// Handle identifies one scheduled follow-up and allows cancelling it before
// the timer fires.
type Handle struct {
	userID int64
	timer  *time.Timer
	sched  *Scheduler
}

// Cancel prevents the delayed send if it has not fired yet. It reports
// whether this call won the race against the timer.
func (h *Handle) Cancel() bool {
	if h == nil || h.sched == nil {
		return false
	}
	if !h.sched.remove(h) {
		return false
	}
	h.timer.Stop()
	metrics.FollowUpsTotal.WithLabelValues("cancelled").Inc()
	return true
}

// Scheduler fires one-shot delayed sends. Failure of a delayed send is logged
// only; nothing is reported back to the scheduling request.
type Scheduler struct {
	mu      sync.Mutex
	send    SendFunc
	pending map[*Handle]struct{}
	closed  bool
}

// NewScheduler builds a Scheduler around the given send function.
func NewScheduler(send SendFunc) *Scheduler {
	return &Scheduler{
		send:    send,
		pending: make(map[*Handle]struct{}),
	}
}

// Schedule registers exactly one send of text to userID after delay and
// returns immediately. The returned handle may be used to cancel it.
func (s *Scheduler) Schedule(userID int64, text string, delay time.Duration) *Handle {
	h := &Handle{userID: userID, sched: s}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return h
	}
	// Timer creation and registration share the critical section so a handle
	// visible to CancelPending always has its timer set.
	h.timer = time.AfterFunc(delay, func() {
		// Whoever removes the handle first decides: cancelled handles
		// never send, fired handles can no longer be cancelled.
		if !s.remove(h) {
			return
		}
		if err := s.send(userID, text); err != nil {
			metrics.FollowUpsTotal.WithLabelValues("failed").Inc()
			logger.Error(context.Background(), "delivery", "follow_up.fail",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return
		}
		metrics.FollowUpsTotal.WithLabelValues("sent").Inc()
	})
	s.pending[h] = struct{}{}
	s.mu.Unlock()

	metrics.FollowUpsTotal.WithLabelValues("scheduled").Inc()
	logger.Debug(context.Background(), "delivery", "follow_up.scheduled",
		slog.Int64("user_id", userID),
		slog.Duration("delay", delay),
	)
	return h
}

// CancelPending cancels every not-yet-fired follow-up for the given user and
// returns how many were cancelled.
func (s *Scheduler) CancelPending(userID int64) int {
	s.mu.Lock()
	var stale []*Handle
	for h := range s.pending {
		if h.userID == userID {
			stale = append(stale, h)
		}
	}
	s.mu.Unlock()

	cancelled := 0
	for _, h := range stale {
		if h.Cancel() {
			cancelled++
		}
	}
	return cancelled
}

// Close cancels all pending follow-ups and rejects new ones. Used on
// shutdown so no timer outlives the transport.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.pending))
	for h := range s.pending {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

func (s *Scheduler) remove(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[h]; !ok {
		return false
	}
	delete(s.pending, h)
	return true
}
