package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/config"
	"github.com/existflow/ironhabit/internal/connectivity"
	"github.com/existflow/ironhabit/internal/db"
	"github.com/existflow/ironhabit/internal/identity"
	"github.com/existflow/ironhabit/internal/localstore"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
	"github.com/existflow/ironhabit/internal/relay"
	"github.com/existflow/ironhabit/internal/remote"
)

const probeTimeout = 2 * time.Second

// session wires one process: local store, identity, connectivity, relay
// and the engine on top of them.
type session struct {
	cfg      *config.Config
	db       *db.DB
	store    *localstore.Store
	client   *remote.Client // nil when cloud sync is off
	identity *identity.Provider
	monitor  *connectivity.Monitor
	relay    *relay.Worker
	engine   *app.Engine
}

type sessionOptions struct {
	// render is called after every engine save or replacing pull
	render func(app.Snapshot)
}

// openSession opens the database and builds every component. Nothing
// touches the network until connect.
func openSession(opts sessionOptions) (*session, error) {
	cfg := currentConfig()

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		logger.Error("Failed to open database", logger.F("error", err))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &session{
		cfg:   cfg,
		db:    database,
		store: localstore.New(database),
	}

	var (
		signIn identity.SignInFunc
		probe  connectivity.ProbeFunc
	)
	if cfg.CloudSync && !offlineMode {
		s.client = remote.NewClient(cfg.ServerURL, cfg.RequestTimeout,
			remote.WithPassphrase(cfg.EncryptionPassphrase))
		signIn = s.client.SignInAnonymously
		probe = s.client.Health
	}

	s.identity = identity.NewProvider(s.store, signIn)
	s.monitor = connectivity.NewMonitor(probe, cfg.ProbeInterval, probeTimeout)
	if s.client == nil {
		s.monitor.SetOnline(false)
	}
	s.relay = relay.NewWorker(database, relay.Manifest{
		Version: cfg.CacheVersion,
		Assets:  cfg.Assets,
		Shell:   cfg.Shell,
	}, cfg.OriginURL, s.monitor)

	deps := app.Deps{
		Store:          s.store,
		Identity:       s.identity,
		Registrar:      s.relay,
		Connectivity:   s.monitor,
		Render:         opts.render,
		Notify:         notifyOverdue,
		RequestTimeout: cfg.RequestTimeout,
	}
	if s.client != nil {
		deps.Remote = s.client.Scoped
	}
	s.engine = app.New(deps)

	logger.Debug("Session opened",
		logger.F("db", database.Path()),
		logger.F("cloud", s.client != nil))
	return s, nil
}

// connect probes the server once and establishes the identity. A failure
// leaves the session local-only.
func (s *session) connect(ctx context.Context) {
	if s.client == nil {
		return
	}
	if !s.monitor.Check(ctx) {
		logger.Info("Server unreachable, working offline", logger.F("server", s.cfg.ServerURL))
	}
	_ = s.identity.Establish(ctx)
}

// deliverPending hands any deferred sync left by an earlier process to this
// one and runs the save path for it.
func (s *session) deliverPending(ctx context.Context) {
	msgs, unsubscribe := s.relay.Subscribe()
	defer unsubscribe()

	n, err := s.relay.Deliver(ctx)
	if err != nil {
		logger.Warn("Relay delivery failed", logger.F("error", err))
		return
	}
	if n == 0 {
		return
	}

	for {
		select {
		case msg := <-msgs:
			if msg.Type != model.MessageSyncTodos {
				continue
			}
			res, err := s.engine.Save(ctx)
			if err != nil {
				logger.Error("Deferred sync save failed", logger.F("error", err))
				continue
			}
			printSaveResult(res)
		default:
			return
		}
	}
}

// runBackground starts the long-lived loops of an interactive or relay
// session. They stop when ctx is done.
func (s *session) runBackground(ctx context.Context) {
	msgs, unsubscribe := s.relay.Subscribe()
	go func() {
		defer unsubscribe()
		s.engine.Run(ctx, msgs)
	}()

	go func() {
		s.connect(ctx)
		if s.client != nil {
			s.monitor.Run(ctx)
		}
	}()

	go s.relay.Run(ctx)
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		logger.Warn("Failed to close database", logger.F("error", err))
		return
	}
	logger.Debug("Database closed")
}

func notifyOverdue(item model.TodoItem) {
	logger.Info("Todo overdue", logger.F("id", item.ID), logger.F("text", item.Text), logger.F("date", item.Date))
}

// printSaveResult reports how far a save got.
func printSaveResult(res app.SaveResult) {
	switch res.State {
	case app.StatePushSucceeded:
		fmt.Printf("☁️  Synced (↑%d)\n", res.Pushed)
	case app.StatePushDeferred:
		fmt.Printf("⚠️  Sync failed: %v (will retry when back online)\n", res.Err)
	}
}
