package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for sqlx
	"github.com/urfave/cli/v2"

	"agenda/internal/auth"
	"agenda/internal/config"
	"agenda/internal/events"
	"agenda/internal/kv"
	"agenda/internal/notifications"
	"agenda/internal/seed"
)

// env bundles what every command needs: config, logger and storage.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  kv.Store
	loc    *time.Location
	auth   *auth.Authenticator
	close  func()
}

// workspace is a logged-in user's view of the data.
type workspace struct {
	session auth.Session
	events  *events.Store
	notes   *notifications.Store
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if c.Bool("ephemeral") {
		cfg.Storage.Backend = config.BackendMemory
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.LogLevel)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(c.Context, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Storage ready.", "backend", cfg.Storage.Backend)

	e := &env{
		cfg:    cfg,
		logger: logger,
		store:  store,
		loc:    loc,
		auth:   auth.NewAuthenticator(store, logger),
		close:  closeStore,
	}
	// A memory store forgets the login of the previous run.
	if email := c.String("as"); email != "" {
		if _, err := e.auth.Login(c.Context, email); err != nil {
			closeStore()
			return nil, err
		}
	}
	return e, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (kv.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), noop, nil

	case config.BackendFile:
		store, err := kv.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.BackendPostgres:
		var (
			store   *kv.PostgresStore
			closeFn func()
			err     error
		)
		opts := []kv.Option{kv.WithTableName(cfg.Table), kv.WithLogger(logger)}

		if cfg.PostgresDriver == config.DriverSQLX {
			db, openErr := sqlx.Connect("postgres", cfg.PostgresDSN)
			if openErr != nil {
				return nil, nil, fmt.Errorf("failed to connect to postgres: %w", openErr)
			}
			closeFn = func() { _ = db.Close() }
			store, err = kv.NewPostgresStoreFromSQLX(db, opts...)
		} else {
			pool, openErr := pgxpool.New(ctx, cfg.PostgresDSN)
			if openErr != nil {
				return nil, nil, fmt.Errorf("failed to connect to postgres: %w", openErr)
			}
			closeFn = pool.Close
			store, err = kv.NewPostgresStoreFromPGXPool(pool, opts...)
		}
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
		return store, closeFn, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func (e *env) policy() auth.Policy {
	return auth.NewPolicy(e.cfg.ReadOnlyUsers...)
}

// workspace builds the stores of the logged-in user, seeding the demo data
// on the demo account's first use.
func (e *env) workspace(ctx context.Context) (*workspace, error) {
	session, err := e.auth.Session(ctx, e.policy())
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, errors.Join(auth.ErrNotAuthenticated, errors.New("run 'agenda login' first"))
	}

	eventColl := events.NewCollection(e.store, e.logger)
	noteColl := notifications.NewCollection(e.store, e.logger)

	seeder := seed.NewSeeder(e.store, eventColl, noteColl, e.cfg.DemoUser, e.cfg.DemoPartner, e.loc, e.logger)
	if _, err := seeder.Run(ctx, session.UserID(), time.Now()); err != nil {
		e.logger.Error("Failed to seed demo data", "error", err)
	}

	notes, err := notifications.NewStore(ctx, e.logger, session, noteColl)
	if err != nil {
		return nil, err
	}
	evs, err := events.NewStore(ctx, e.logger, session, eventColl, notes, events.WithLocation(e.loc))
	if err != nil {
		return nil, err
	}

	return &workspace{session: session, events: evs, notes: notes}, nil
}

// withEnv wraps a command action with env setup and teardown.
func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer e.close()
		return action(c, e)
	}
}

// withWorkspace wraps a command action that needs a logged-in user.
func withWorkspace(action func(c *cli.Context, e *env, w *workspace) error) cli.ActionFunc {
	return withEnv(func(c *cli.Context, e *env) error {
		w, err := e.workspace(c.Context)
		if err != nil {
			return err
		}
		return action(c, e, w)
	})
}
