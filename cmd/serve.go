package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/closer"
	"auction-engine/internal/config"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/internal/settlement"
	"auction-engine/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP API, websocket feed and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return errors.Wrap(err, "failed on resolve config path")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return errors.Wrap(err, "failed on load config")
		}

		logCloser, err := utils.SetupLogger(utils.LogOptions{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		if err != nil {
			return errors.Wrap(err, "failed on set up logger")
		}
		defer logCloser.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	repo, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	hub := realtime.NewHub(cfg.Server.CorsOrigins...)
	bus.Subscribe("realtime", hub.Handle)
	bus.Subscribe("log", logEvent)

	biddingSvc := bidding.NewBiddingService(repo, bidding.WithPublisher(bus))

	resources := settlement.NewResources()
	dispatcher := settlement.NewDispatcher(resources, resources, resources)
	auctionCloser := closer.NewCloser(repo, dispatcher, closer.WithPublisher(bus))

	notifier, err := closer.NewEndingSoonNotifier(repo, bus, windows(cfg.Notification), nil)
	if err != nil {
		return errors.Wrap(err, "failed on create ending-soon notifier")
	}

	jobs := scheduler.New(
		scheduler.Job{
			Name:     "close-auctions",
			Interval: cfg.Scheduler.CloseInterval,
			Run: func(ctx context.Context) error {
				_, err := auctionCloser.ProcessEndedAuctions(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "ending-soon",
			Interval: cfg.Scheduler.EndingSoonInterval,
			Run: func(ctx context.Context) error {
				_, err := notifier.Notify(ctx)
				return err
			},
		},
	)
	jobs.Start(ctx)
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.SetupRouter(biddingSvc, hub, cfg.Server.CorsOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	onServeExit := make(chan error, 1)
	go func() {
		utils.Info("auction server starting", map[string]any{"addr": srv.Addr, "store": cfg.Store.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			onServeExit <- err
		}
		close(onServeExit)
	}()

	select {
	case <-ctx.Done():
		utils.Info("exit by signal", nil)
	case err := <-onServeExit:
		if err != nil {
			return errors.Wrap(err, "failed on serve http")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed on shutdown http server")
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Store) (repository.AuctionDB, error) {
	users := make([]model.User, 0, len(cfg.SeedUsers))
	for _, id := range cfg.SeedUsers {
		users = append(users, model.User{UserID: id, Username: id})
	}

	switch cfg.Driver {
	case "", "memory":
		repo := repository.NewMemoryRepo()
		for _, u := range users {
			repo.AddUser(u)
		}
		return repo, nil
	case "mysql":
		db, err := repository.OpenMySQL(repository.MySQLOptions{
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
			Addr:     cfg.MySQL.Host,
			Database: cfg.MySQL.Database,
			MaxOpen:  cfg.MySQL.MaxOpen,
			MaxIdle:  cfg.MySQL.MaxIdle,
			LogLevel: cfg.MySQL.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		repo := repository.NewGormRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		for _, u := range users {
			if err := repo.AddUser(ctx, u); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func windows(cfg config.Notification) []closer.Window {
	tolerance := time.Duration(cfg.ToleranceMinutes) * time.Minute
	out := make([]closer.Window, 0, len(cfg.EndingSoonMinutes))
	for _, m := range cfg.EndingSoonMinutes {
		out = append(out, closer.Window{
			Name:      fmt.Sprintf("%dm", m),
			Before:    time.Duration(m) * time.Minute,
			Tolerance: tolerance,
		})
	}
	return out
}

func logEvent(_ context.Context, e events.Event) error {
	utils.Debug("domain event", map[string]any{
		"event_id":     e.ID,
		"type":         string(e.Type),
		"auction_id":   e.AuctionID,
		"recipient_id": e.RecipientID,
	})
	return nil
}

