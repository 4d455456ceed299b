// Package app wires storage, services and the HTTP API from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/assist"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/due"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/mail"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/users"
)

// App holds the running components.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	KV        kv.Store
	Bus       events.Bus
	Repo      *store.Repository
	Activity  *activity.Recorder
	Inventory *inventory.Service
	Users     *users.Service
	Due       *due.Service
	Assist    assist.Checker
	Location  *time.Location
}

// OpenStore opens the configured key-value backend and its event bus.
func OpenStore(cfg *config.Config) (kv.Store, events.Bus, error) {
	switch cfg.Storage.Backend {
	case "redis":
		r, err := kv.NewRedis(kv.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
			Quota:    cfg.Storage.Quota,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, events.NewRedis(r.Client(), cfg.Storage.Redis.Prefix), nil
	default:
		database, err := db.OpenWithSchema(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewSQLite(database, cfg.Storage.Quota), events.NewLocal(cfg.Events.Buffer), nil
	}
}

// New opens storage and builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	kvStore, bus, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		KV:       kvStore,
		Bus:      bus,
		Location: loc,
	}
	a.Repo = store.New(kvStore, log.Named("store"))
	a.Activity = activity.NewRecorder(a.Repo, bus, log.Named("activity"))

	a.Inventory = inventory.NewService(a.Repo, a.Activity, log.Named("inventory"))
	a.Inventory.Location = loc

	a.Due = due.NewService(a.Repo)
	a.Due.Location = loc

	var sender mail.Sender = mail.LogSender{Log: log.Named("mail")}
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}
	a.Users = users.NewService(a.Repo, a.Activity, sender, log.Named("users"))
	a.Users.HashCost = cfg.Auth.BcryptCost
	a.Users.PublicURL = cfg.Server.PublicURL

	a.Assist = assist.Disabled{}
	if cfg.Assist.APIKey != "" {
		checker, err := assist.NewGenAI(ctx, cfg.Assist.APIKey, cfg.Assist.Model, log.Named("assist"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Assist = checker
	}

	return a, nil
}

// Handler builds the HTTP handler.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	secret := a.Config.Auth.JWTSecret
	if secret == "" {
		var err error
		if secret, err = a.Repo.JWTSecret(ctx); err != nil {
			return nil, fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	router := api.NewRouter(api.Deps{
		Repo:       a.Repo,
		Inventory:  a.Inventory,
		Users:      a.Users,
		Activity:   a.Activity,
		Due:        a.Due,
		Assist:     a.Assist,
		Events:     a.Bus,
		Log:        a.Log.Named("api"),
		JWTSecret:  secret,
		TokenTTL:   a.Config.Auth.TokenTTL,
		Location:   a.Location,
		LoginRate:  rate.Limit(a.Config.Auth.LoginRate),
		LoginBurst: a.Config.Auth.LoginBurst,
	})
	return api.LoggingMiddleware(a.Log.Named("http"))(router), nil
}

// Close releases the event bus and the store.
func (a *App) Close() error {
	return errors.Join(a.Bus.Close(), a.KV.Close())
}
