package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tele "gopkg.in/telebot.v4"

	"contactbot/bot/catalog"
	"contactbot/core/logger"
	"contactbot/core/telegram/keyboard"
	"contactbot/core/telegram/sender"
)

// TelebotClient implements Client on top of a running telebot instance.
// Primary sends are synchronous; callback acknowledgements are handed to the
// async sender dispatcher because their outcome never matters to the caller.
type TelebotClient struct {
	bot        *tele.Bot
	dispatcher *sender.Dispatcher
	mediaDir   string
}

// NewTelebotClient wires a Client around the given bot. mediaDir is the
// directory local media references resolve against.
func NewTelebotClient(bot *tele.Bot, dispatcher *sender.Dispatcher, mediaDir string) *TelebotClient {
	return &TelebotClient{bot: bot, dispatcher: dispatcher, mediaDir: mediaDir}
}

// SendText sends a Markdown message, attaching an inline keyboard when
// buttons are present.
func (c *TelebotClient) SendText(ctx context.Context, userID int64, text string, buttons []string) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(buttons) > 0 {
		opts.ReplyMarkup = keyboard.LabelButtons(buttons)
	}
	if _, err := c.bot.Send(tele.ChatID(userID), text, opts); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendMedia sends a photo or document from the media directory with the given
// caption. A missing file maps to ErrMediaNotFound before any API call.
func (c *TelebotClient) SendMedia(ctx context.Context, userID int64, media catalog.Media, caption string) error {
	path := filepath.Join(c.mediaDir, media.Ref)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMediaNotFound, media.Ref)
		}
		return fmt.Errorf("stat media %s: %w", media.Ref, err)
	}

	var payload interface{}
	switch media.Kind {
	case catalog.MediaDocument:
		payload = &tele.Document{File: tele.FromDisk(path), Caption: caption, FileName: media.Ref}
	default:
		payload = &tele.Photo{File: tele.FromDisk(path), Caption: caption}
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if _, err := c.bot.Send(tele.ChatID(userID), payload, opts); err != nil {
		return fmt.Errorf("send %s: %w", media.Kind, err)
	}
	return nil
}

// AcknowledgeCallback answers the callback query asynchronously. Queue
// pressure falls back to an inline answer, mirroring the helper send path.
func (c *TelebotClient) AcknowledgeCallback(ctx context.Context, callbackID string) error {
	run := func() error {
		return c.bot.Respond(&tele.Callback{ID: callbackID})
	}
	if c.dispatcher == nil {
		return run()
	}
	if err := c.dispatcher.Enqueue(ctx, "callback.ack", "answerCallbackQuery", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", "callback.ack"),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}
