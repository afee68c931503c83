package internal

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/starford/notedash/internal/account"
	"github.com/starford/notedash/internal/dashboard"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/remote"
	"github.com/starford/notedash/internal/session"
	"github.com/starford/notedash/internal/storage"
)

// RemoteURLEnv overrides remote.base_url when set.
const RemoteURLEnv = "NOTES_API_URL"

// Components is the wired object graph shared by every entry point.
type Components struct {
	Storage   storage.Provider
	Session   *session.Store
	Remote    *remote.Client
	Dashboard *dashboard.Dashboard
	Accounts  *account.Service
}

// Open wires storage, session, remote client, dashboard and accounts from
// cfg and restores any persisted session. pub may be nil.
func Open(cfg *Config, logger *slog.Logger, pub dashboard.Publisher) (*Components, error) {
	baseURL := cfg.Remote.BaseURL
	if env := os.Getenv(RemoteURLEnv); env != "" {
		baseURL = env
	}

	local, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	client, err := remote.New(baseURL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithLogger(logger),
		remote.WithDebugLogging(cfg.Remote.Debug),
	)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("init remote client: %w", err)
	}

	store := session.NewStore(local, logger)
	dash := dashboard.New(client, store, dashboard.WithPublisher(pub), dashboard.WithLogger(logger))
	accounts := account.New(client, store, logger, dash)

	// A different identity must never see the previous user's notes.
	var (
		mu     sync.Mutex
		lastID string
	)
	store.OnChange(func(user models.User, authenticated bool) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case !authenticated:
			dash.Invalidate()
		case user.ID != lastID:
			dash.Reset()
		}
		lastID = user.ID
	})
	store.Restore()

	return &Components{
		Storage:   local,
		Session:   store,
		Remote:    client,
		Dashboard: dash,
		Accounts:  accounts,
	}, nil
}

// Close releases the local storage.
func (c *Components) Close() error {
	if c == nil || c.Storage == nil {
		return nil
	}
	if err := c.Storage.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
