// Package flow is the conversation dispatch engine: it classifies inbound
// events, consults the per-user pending state, the response catalog, and the
// contact validator, and hands the resolved reply descriptor to the delivery
// pipeline. Every collaborator is injected, so the engine itself holds no
// ambient state.
package flow

import (
	"context"
	"log/slog"
	"time"

	"contactbot/bot/catalog"
	"contactbot/bot/contact"
	"contactbot/bot/metrics"
	"contactbot/core/logger"
	"contactbot/core/telegram/state"
)

// StateAwaitingContact marks a user whose next text message is treated as
// structured "Name +PhoneNumber" input.
const StateAwaitingContact state.State = "AWAITING_CONTACT"

// ContactStore persists validated contact records.
type ContactStore interface {
	Persist(ctx context.Context, rec contact.Record) error
}

// UserObserver records that a user id has been seen. Idempotent, append-only.
type UserObserver interface {
	Observe(ctx context.Context, userID int64) error
}

// Deliverer sends a resolved reply descriptor to a user.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, r catalog.Reply) error
}

// Acknowledger clears the pending UI state of a pressed button.
type Acknowledger interface {
	AcknowledgeCallback(ctx context.Context, callbackID string) error
}

// FollowUpCanceller cancels pending delayed sends for a user.
type FollowUpCanceller interface {
	CancelPending(userID int64) int
}

// Options configure optional engine behaviour.
type Options struct {
	// SuppressStaleFollowUps cancels a user's pending follow-ups whenever
	// their conversation state transitions. Off by default; the observed
	// behaviour lets stale follow-ups fire.
	SuppressStaleFollowUps bool
}

// Engine resolves inbound events to exactly one reply path.
type Engine struct {
	catalog  *catalog.Catalog
	states   state.Manager
	contacts ContactStore
	users    UserObserver
	delivery Deliverer
	acks     Acknowledger
	cancel   FollowUpCanceller
	opts     Options
}

// NewEngine wires a dispatch engine. acks and cancel may be nil when the
// hosting transport has no callback acknowledgement or follow-up cancellation
// to offer (tests, long-poll variants).
func NewEngine(cat *catalog.Catalog, states state.Manager, contacts ContactStore, users UserObserver, delivery Deliverer, acks Acknowledger, cancel FollowUpCanceller, opts Options) *Engine {
	return &Engine{
		catalog:  cat,
		states:   states,
		contacts: contacts,
		users:    users,
		delivery: delivery,
		acks:     acks,
		cancel:   cancel,
		opts:     opts,
	}
}

// HandleStart clears any pending state and replies with the start descriptor.
// Idempotent: the outcome does not depend on prior state.
func (e *Engine) HandleStart(ctx context.Context, userID int64) error {
	metrics.UpdatesTotal.WithLabelValues("message").Inc()
	e.observe(ctx, userID)
	e.transition(ctx, userID, state.StateIdle)
	reply, _ := e.catalog.Lookup(catalog.KeyStart)
	return e.delivery.Deliver(ctx, userID, reply)
}

// HandleButton resolves a button press. ackID is the transport-level callback
// query id; key is the callback data (the button label).
func (e *Engine) HandleButton(ctx context.Context, userID int64, ackID, key string) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	e.observe(ctx, userID)
	e.acknowledge(ctx, ackID)

	if key == catalog.KeyRegister {
		e.transition(ctx, userID, StateAwaitingContact)
		reply, _ := e.catalog.Lookup(catalog.KeyRegister)
		return e.delivery.Deliver(ctx, userID, reply)
	}

	if reply, ok := e.catalog.Lookup(key); ok {
		return e.delivery.Deliver(ctx, userID, reply)
	}

	logger.Debug(ctx, "flow", "callback.unknown",
		slog.Int64("user_id", userID),
		slog.String("cb_key", logger.SanitizeLimit(key, 128)),
	)
	return e.delivery.Deliver(ctx, userID, catalog.UnknownOptionReply(key))
}

// HandleText resolves a plain text message: pending structured input first,
// then the start command, then a catalog key, then the fixed fallback.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) error {
	metrics.UpdatesTotal.WithLabelValues("message").Inc()
	e.observe(ctx, userID)

	if e.states.GetState(userID) == StateAwaitingContact {
		return e.handleContactInput(ctx, userID, text)
	}

	if text == catalog.KeyStart {
		e.transition(ctx, userID, state.StateIdle)
		reply, _ := e.catalog.Lookup(catalog.KeyStart)
		return e.delivery.Deliver(ctx, userID, reply)
	}

	if reply, ok := e.catalog.Lookup(text); ok {
		return e.delivery.Deliver(ctx, userID, reply)
	}

	return e.delivery.Deliver(ctx, userID, catalog.UnknownInputReply())
}

func (e *Engine) handleContactInput(ctx context.Context, userID int64, text string) error {
	parsed, err := contact.Validate(text)
	if err != nil {
		// State stays pending so the user may retry indefinitely.
		logger.Debug(ctx, "flow", "contact.invalid", slog.Int64("user_id", userID))
		return e.delivery.Deliver(ctx, userID, catalog.InvalidContactReply())
	}

	rec := contact.Record{
		UserID:     userID,
		Name:       parsed.Name,
		Phone:      parsed.Phone,
		CapturedAt: time.Now().UTC(),
	}
	if err := e.contacts.Persist(ctx, rec); err != nil {
		logger.Error(ctx, "flow", "contact.persist.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return e.delivery.Deliver(ctx, userID, catalog.RegistrationErrorReply())
	}

	logger.Info(ctx, "flow", "contact.saved",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)

	e.transition(ctx, userID, state.StateIdle)

	// Confirmation first, then back to the main menu. The second send is
	// attempted even if the first one fails; delivery failures are already
	// logged by the pipeline.
	confirmErr := e.delivery.Deliver(ctx, userID, catalog.ContactSavedReply(parsed.Name, parsed.Phone))
	start, _ := e.catalog.Lookup(catalog.KeyStart)
	if err := e.delivery.Deliver(ctx, userID, start); err != nil {
		return err
	}
	return confirmErr
}

// transition updates the user's pending state and, when configured, drops
// follow-ups scheduled before the transition.
func (e *Engine) transition(ctx context.Context, userID int64, st state.State) {
	if st == state.StateIdle {
		e.states.ClearState(userID)
	} else {
		e.states.SetState(userID, st)
	}
	if e.opts.SuppressStaleFollowUps && e.cancel != nil {
		if n := e.cancel.CancelPending(userID); n > 0 {
			logger.Debug(ctx, "flow", "follow_up.suppressed",
				slog.Int64("user_id", userID),
				slog.Int("count", n),
			)
		}
	}
}

func (e *Engine) observe(ctx context.Context, userID int64) {
	if e.users == nil {
		return
	}
	if err := e.users.Observe(ctx, userID); err != nil {
		logger.Warn(ctx, "flow", "observe.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) acknowledge(ctx context.Context, ackID string) {
	if e.acks == nil || ackID == "" {
		return
	}
	if err := e.acks.AcknowledgeCallback(ctx, ackID); err != nil {
		logger.Warn(ctx, "flow", "callback.ack.fail", slog.String("err", err.Error()))
	}
}
