package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/hostel/internal/authz"
	"github.com/joescharf/hostel/internal/dashboard"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/lifecycle"
	"github.com/joescharf/hostel/internal/llm"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/roster"
	"github.com/joescharf/hostel/internal/store"
)

const redisPingTimeout = 2 * time.Second

// app holds everything a command needs, wired from config.
type app struct {
	logger    *slog.Logger
	seed      *roster.Seed
	store     store.Store
	identity  *identity.Provider
	lifecycle *lifecycle.Controller
	dash      *dashboard.Service
	hub       *notify.Hub
	redis     *notify.RedisPublisher
	llm       *llm.Client
}

type appOptions struct {
	// hub enables the websocket hub for serve.
	hub bool
	// notifier receives lifecycle events in addition to the log.
	notifier notify.Notifier
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &app{logger: slog.Default()}

	seed, err := roster.Load(viper.GetString("seed_file"))
	if err != nil {
		return nil, err
	}
	a.seed = seed

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = st

	if err := seedStore(ctx, st, seed); err != nil {
		_ = st.Close()
		return nil, err
	}

	notifiers := notify.Multi{notify.LogNotifier{Logger: a.logger}}
	if opts.notifier != nil {
		notifiers = append(notifiers, opts.notifier)
	}
	if opts.hub {
		a.hub = notify.NewHub(a.logger, nil)
		notifiers = append(notifiers, a.hub)
	}
	if addr := viper.GetString("notify.redis_addr"); addr != "" {
		pub := notify.NewRedisPublisher(addr, viper.GetString("notify.redis_channel"), a.logger)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := pub.Ping(pingCtx)
		cancel()
		if err != nil {
			a.logger.Warn("redis unavailable, events stay local", "addr", addr, "error", err)
			_ = pub.Close()
		} else {
			a.redis = pub
			notifiers = append(notifiers, pub)
		}
	}

	enf, err := authz.NewEnforcer()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.identity = identity.NewProvider(seed.Users, identity.WithLatency(viper.GetDuration("identity.latency")))
	a.lifecycle = lifecycle.New(st,
		lifecycle.WithPolicy(lifecycle.PolicyFor(viper.GetBool("lifecycle.strict"))),
		lifecycle.WithNotifier(notifiers),
		lifecycle.WithLogger(a.logger),
	)
	a.dash = dashboard.New(dashboard.Config{
		Store:         st,
		Lifecycle:     a.lifecycle,
		Authz:         enf,
		Notifier:      notifiers,
		Staff:         seed.Staff,
		SubmitLatency: viper.GetDuration("identity.latency"),
		Logger:        a.logger,
	})

	a.llm = newLLMClient()

	a.logger.Debug("app ready",
		"store", viper.GetString("store.backend"),
		"policy", a.lifecycle.Policy().Name(),
		"users", len(seed.Users),
		"staff", len(seed.Staff),
	)
	return a, nil
}

// openStore opens the configured backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch backend := strings.ToLower(viper.GetString("store.backend")); backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.NewSQLiteStore(viper.GetString("store.dsn"))
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (use: memory, sqlite)", backend)
	}
}

// seedStore loads the seed complaints into an empty store.
func seedStore(ctx context.Context, st store.Store, seed *roster.Seed) error {
	existing, err := st.List(ctx, store.Scope{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return seed.Populate(ctx, st)
}

// login starts a session for role. An empty email picks the first roster
// user with that role.
func (a *app) login(ctx context.Context, role models.UserRole, email string) (*identity.Session, error) {
	if email == "" {
		email = string(role) + "@hostel.local"
		for _, u := range a.seed.Users {
			if u.Role == role {
				email = u.Email
				break
			}
		}
	}
	return a.identity.Login(ctx, email, "cli", role)
}

// Close releases the store and notification backends.
func (a *app) Close() error {
	var errs []error
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
