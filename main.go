package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/clock"
	"github.com/danielhkuo/quickpoll/db"
	"github.com/danielhkuo/quickpoll/hub"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/logging"
	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/router"
	"github.com/danielhkuo/quickpoll/store"
	"github.com/danielhkuo/quickpoll/tally"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse configuration
	if err := cliparse.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	logging.New(cfg.LogLevel, cfg.LogFormat)

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	polls := store.NewPollStore(dbConn, clock.System{}, store.PollLimits{
		DefaultHours: cfg.DefaultPollHours,
		MaxHours:     cfg.MaxPollHours,
	})
	votes := store.NewVoteStore(dbConn)
	notifications := hub.New(cfg.SubscriberQueue)
	l := ledger.New(polls, votes, tally.NewEngine(polls, votes), notifications)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Seed {
		if err := seed(ctx, polls); err != nil {
			return err
		}
	}

	server := &http.Server{
		Handler:           middleware.CORS(cfg.CORSOrigins)(router.NewRouter(dbConn, l, cfg)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		// End live streams first so Shutdown is not held open by them
		notifications.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server closed")
	return nil
}

// seed inserts the sample poll used for local development.
func seed(ctx context.Context, polls *store.PollStore) error {
	poll, err := polls.Create(ctx, store.NewPoll{
		Question: "Favorite programming language?",
		Options:  []string{"Python", "JavaScript", "Java", "C++"},
		Hours:    24,
	})
	if err != nil {
		return err
	}
	slog.Info("Seeded sample poll", "poll_id", poll.ID, "expires_at", poll.ExpiresAt)
	return nil
}
