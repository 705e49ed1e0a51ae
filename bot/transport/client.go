// Package transport is the narrow seam between the dispatch engine and the
// Telegram API. The dispatch and delivery layers talk to the Client interface
// only, which keeps them testable with in-memory fakes.
package transport

import (
	"context"
	"errors"

	"contactbot/bot/catalog"
)

// ErrMediaNotFound marks a referenced media resource that does not exist on
// disk. The delivery pipeline recovers from it with a text-only warning; any
// other transport error is terminal for the affected send.
var ErrMediaNotFound = errors.New("transport: media file not found")

// Client abstracts the outbound messaging API.
type Client interface {
	// SendText delivers one text message, optionally with inline buttons
	// (one per row, each carrying its label as the callback id).
	SendText(ctx context.Context, userID int64, text string, buttons []string) error
	// SendMedia delivers one photo or document with a caption.
	SendMedia(ctx context.Context, userID int64, media catalog.Media, caption string) error
	// AcknowledgeCallback clears the pending UI affordance of a pressed
	// button. Fire-and-forget: failures are logged by the implementation
	// and never surface to the user.
	AcknowledgeCallback(ctx context.Context, callbackID string) error
}
