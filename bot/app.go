package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"contactbot/bot/catalog"
	"contactbot/bot/delivery"
	"contactbot/bot/flow"
	"contactbot/bot/httpapi"
	"contactbot/bot/storage"
	"contactbot/bot/transport"
	"contactbot/core/bootstrap"
	"contactbot/core/logger"
	coretelegram "contactbot/core/telegram"
	"contactbot/core/telegram/callbacks"
	"contactbot/core/telegram/commands"
	tghelpers "contactbot/core/telegram/helpers"
	"contactbot/core/telegram/router"
	"contactbot/core/telegram/sender"
	"contactbot/core/telegram/state"
)

// App owns the application-level collaborators and implements the core
// runner's TelegramApp contract.
type App struct {
	cfg *Config
	db  *sqlx.DB

	catalog  *catalog.Catalog
	states   state.Manager
	contacts *storage.ContactStore
	userLog  *storage.UserLog
	repo     *storage.SubmissionRepo
	observer *fanOutObserver
	api      *httpapi.Server

	// Set during OnStart, once the bot transport exists.
	engine    *flow.Engine
	scheduler *delivery.Scheduler
}

// New runs the shared bootstrap (logger, database, migrations) and builds the
// application collaborators that do not depend on the live bot transport.
func New(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	repo := storage.NewSubmissionRepo(res.DB)
	userLog := storage.NewUserLog(cfg.Bot.ChatIDsFile)

	return &App{
		cfg:      cfg,
		db:       res.DB,
		catalog:  catalog.Default(),
		states:   state.NewMemoryManager(),
		contacts: storage.NewContactStore(cfg.Bot.ContactsFile),
		userLog:  userLog,
		repo:     repo,
		observer: &fanOutObserver{log: userLog, repo: repo},
		api:      httpapi.NewServer(cfg.HTTP.Addr(), repo),
	}, nil
}

// TelegramRunOptions assembles the registry, routes, and lifecycle hooks for
// the core Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.onStart,
		Description: "Show the main menu",
	})
	reg.RegisterCommand("/contacts", commands.Command{
		Handler:     a.onContacts,
		Description: "List observed user ids",
		AdminOnly:   true,
		Hidden:      true,
	})

	// One callback handler per catalog key: pressing a button whose label is
	// a catalog key resolves through the engine; anything else lands in the
	// not-found fallback, which also goes through the engine so the reply
	// echoes the raw callback id.
	for _, key := range a.catalog.Keys() {
		if key == catalog.KeyStart {
			continue
		}
		if err := reg.RegisterCallback(key, a.buttonHandler(key)); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("register callback %q: %w", key, err)
		}
	}
	reg.SetCallbackNotFound(a.onUnknownCallback)
	reg.SetTextFallback(a.onText)

	state.RegisterHandler(flow.StateAwaitingContact, a.onText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.states, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart:     a.onRuntimeStart,
		OnStop:      a.onRuntimeStop,
	}, nil
}

// onRuntimeStart wires the transport-dependent pieces: client, scheduler,
// delivery pipeline, dispatch engine, and the intake API listener. Handlers
// only run after the bot starts, so the engine is always set by then.
func (a *App) onRuntimeStart(ctx context.Context, rt coretelegram.Runtime) error {
	client := transport.NewTelebotClient(rt.Bot, rt.Dispatcher, a.cfg.Bot.MediaDir)
	a.scheduler = delivery.NewScheduler(delayedSender(client, rt.Dispatcher))
	pipeline := delivery.NewPipeline(client, a.scheduler, a.cfg.Bot.FollowUpDelay())
	a.engine = flow.NewEngine(
		a.catalog,
		a.states,
		a.contacts,
		a.observer,
		pipeline,
		client,
		a.scheduler,
		flow.Options{SuppressStaleFollowUps: a.cfg.Bot.SuppressStaleFollowUps},
	)

	go func() {
		if err := a.api.Start(); err != nil {
			logger.API.Error("intake api stopped",
				slog.String("event", "listen"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

func (a *App) onRuntimeStop(ctx context.Context, rt coretelegram.Runtime) error {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.api.Shutdown(shutdownCtx); err != nil {
		logger.API.Warn("intake api shutdown failed",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
	}
	return a.db.Close()
}

func (a *App) onStart(c tele.Context) error {
	if a.engine == nil {
		return nil
	}
	return a.engine.HandleStart(tghelpers.BuildContext(c), c.Sender().ID)
}

func (a *App) onText(c tele.Context) error {
	if a.engine == nil {
		return nil
	}
	return a.engine.HandleText(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
}

func (a *App) buttonHandler(key string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.handleButton(c, key)
	}
}

func (a *App) onUnknownCallback(c tele.Context) error {
	return a.handleButton(c, callbacks.CallbackKey(c))
}

func (a *App) handleButton(c tele.Context, key string) error {
	if a.engine == nil {
		return nil
	}
	ackID := ""
	if cb := c.Callback(); cb != nil {
		ackID = cb.ID
	}
	return a.engine.HandleButton(tghelpers.BuildContext(c), c.Sender().ID, ackID, key)
}

// onContacts is the admin-only diagnostic listing every observed user id.
func (a *App) onContacts(c tele.Context) error {
	ids, err := a.userLog.IDs()
	if err != nil {
		return tghelpers.SendMD(c, "Could not read the user log.")
	}
	if len(ids) == 0 {
		return tghelpers.SendMD(c, "No users observed yet.")
	}
	text := fmt.Sprintf("Observed %d user(s):", len(ids))
	for _, id := range ids {
		text += fmt.Sprintf("\n- `%d`", id)
	}
	return tghelpers.SendMD(c, text)
}

// fanOutObserver records observed user ids in both the JSON log and the
// relational log.
type fanOutObserver struct {
	log  *storage.UserLog
	repo *storage.SubmissionRepo
}

func (o *fanOutObserver) Observe(ctx context.Context, userID int64) error {
	return errors.Join(
		o.log.Observe(ctx, userID),
		o.repo.RecordUser(ctx, userID),
	)
}

// delayedSender runs a follow-up send through the async dispatcher when one
// is available, falling back to a direct send on queue pressure.
func delayedSender(client transport.Client, disp *sender.Dispatcher) delivery.SendFunc {
	return func(userID int64, text string) error {
		run := func() error {
			return client.SendText(context.Background(), userID, text, nil)
		}
		if disp == nil {
			return run()
		}
		err := disp.Enqueue(context.Background(), "send.delayed", "sendMessage", run)
		if err != nil {
			if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
				return run()
			}
			return err
		}
		return nil
	}
}
