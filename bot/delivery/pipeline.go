// Package delivery turns reply descriptors into transport calls: one primary
// send (media or text), plus at most one delayed follow-up scheduled after
// the primary send succeeds.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contactbot/bot/catalog"
	"contactbot/bot/metrics"
	"contactbot/bot/transport"
	"contactbot/core/logger"
)

// ErrEmptyReply rejects descriptors carrying neither text nor media.
var ErrEmptyReply = errors.New("delivery: reply has neither text nor media")

// Pipeline renders reply descriptors into outbound calls.
type Pipeline struct {
	client transport.Client
	sched  *Scheduler
	delay  time.Duration
}

// NewPipeline builds a Pipeline. delay is the follow-up delay applied to
// every descriptor that carries a FollowUp text.
func NewPipeline(client transport.Client, sched *Scheduler, delay time.Duration) *Pipeline {
	return &Pipeline{client: client, sched: sched, delay: delay}
}

// Deliver performs at most one primary send and schedules at most one
// follow-up. Each step fails independently: a media file that is missing
// degrades to a text-only warning, any other transport failure stops the
// descriptor without a text substitute, and follow-up scheduling happens only
// after a successful primary send.
func (p *Pipeline) Deliver(ctx context.Context, userID int64, r catalog.Reply) error {
	if r.Empty() {
		metrics.DeliveriesTotal.WithLabelValues("empty").Inc()
		logger.Warn(ctx, "delivery", "deliver.empty", slog.Int64("user_id", userID))
		return ErrEmptyReply
	}

	media, hasMedia := r.Media()
	if !hasMedia {
		return p.sendText(ctx, userID, r.Text, r.Buttons, r.FollowUp)
	}

	if err := p.client.SendMedia(ctx, userID, media, r.Text); err != nil {
		if errors.Is(err, transport.ErrMediaNotFound) {
			logger.Warn(ctx, "delivery", "media.missing",
				slog.Int64("user_id", userID),
				slog.String("media", media.Ref),
			)
			metrics.DeliveriesTotal.WithLabelValues("media_fallback").Inc()
			// The warning goes through the plain text path and can never
			// re-enter media handling. It carries no follow-up either,
			// matching the primary-send-succeeded contract.
			warning := missingMediaText(media.Ref, r.Text)
			return p.sendText(ctx, userID, warning, nil, "")
		}
		metrics.DeliveriesTotal.WithLabelValues("fail").Inc()
		logger.Error(ctx, "delivery", "media.fail",
			slog.Int64("user_id", userID),
			slog.String("media", media.Ref),
			slog.String("err", err.Error()),
		)
		return err
	}

	metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
	p.scheduleFollowUp(userID, r.FollowUp)
	return nil
}

func (p *Pipeline) sendText(ctx context.Context, userID int64, text string, buttons []string, followUp string) error {
	if err := p.client.SendText(ctx, userID, text, buttons); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("fail").Inc()
		logger.Error(ctx, "delivery", "send.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return err
	}
	metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
	p.scheduleFollowUp(userID, followUp)
	return nil
}

func (p *Pipeline) scheduleFollowUp(userID int64, text string) {
	if text == "" || p.sched == nil {
		return
	}
	p.sched.Schedule(userID, text, p.delay)
}

func missingMediaText(ref, original string) string {
	if original == "" {
		original = "Placeholder message."
	}
	return fmt.Sprintf("⚠️ Media file not found for `%s`. %s", ref, original)
}
