// Command gated runs the access gate as a standalone HTTP service.
//
// By default it runs self-contained on in-memory stores, seeded with demo
// identities and a starter plan. Set GATEKIT_STORE=mongo to persist
// identities, plans, usage windows and decision records in MongoDB.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gatekit/pkg/audit"
	"github.com/dmitrymomot/gatekit/pkg/config"
	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/gateway"
	"github.com/dmitrymomot/gatekit/pkg/httpserver"
	"github.com/dmitrymomot/gatekit/pkg/logger"
	"github.com/dmitrymomot/gatekit/pkg/mongo"
	"github.com/dmitrymomot/gatekit/pkg/plan"
	"github.com/dmitrymomot/gatekit/pkg/principal"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

type appConfig struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Store         string `env:"GATEKIT_STORE" envDefault:"memory"` // memory or mongo
	MongoDatabase string `env:"GATEKIT_MONGO_DB" envDefault:"gatekit"`

	AuditBufferSize int           `env:"GATEKIT_AUDIT_BUFFER" envDefault:"1024"`
	AuditRetention  int           `env:"GATEKIT_AUDIT_MAX_RECORDS" envDefault:"10000"` // memory store only
	CleanupInterval time.Duration `env:"GATEKIT_LEDGER_CLEANUP_INTERVAL" envDefault:"10m"`

	Gateway gateway.Config
	HTTP    httpserver.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := logger.New(
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevel(level),
		logger.WithAttr(slog.String("app", "gated")),
	)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("gated exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var (
		identities   principal.IdentityStore
		planSource   plan.Source
		persister    plan.Persister
		usageStore   usage.Store
		auditStorage audit.Storage
		healthProbe  func(context.Context) error
	)

	switch cfg.Store {
	case "mongo":
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		db, err := mongo.NewWithDatabase(ctx, mcfg, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()

		planStore := mongo.NewPlanStore(db)
		identities = mongo.NewIdentityStore(db)
		planSource = planStore
		persister = planStore
		usageStore = mongo.NewUsageStore(db)
		auditStorage = mongo.NewAuditStorage(db)
		healthProbe = mongo.Healthcheck(db.Client())
		log.Info("using mongo stores", slog.String("database", cfg.MongoDatabase))

	case "memory":
		var err error
		identities, planSource, auditStorage, err = seedMemory(ctx, cfg)
		if err != nil {
			return err
		}
		log.Warn("using in-memory stores seeded with demo identities; state is lost on restart")

	default:
		return fmt.Errorf("unknown store %q: must be memory or mongo", cfg.Store)
	}

	var regOpts []plan.RegistryOption
	if persister != nil {
		regOpts = append(regOpts, plan.WithPersister(persister))
	}
	registry, err := plan.NewRegistry(ctx, planSource, regOpts...)
	if err != nil {
		return err
	}

	ledgerOpts := []usage.LedgerOption{usage.WithCleanupInterval(cfg.CleanupInterval)}
	if usageStore != nil {
		ledgerOpts = append(ledgerOpts, usage.WithStore(usageStore))
	}
	ledger := usage.NewLedger(registry.ActivePlan, ledgerOpts...)
	defer ledger.Close()

	writer := audit.NewAsyncWriter(auditStorage, audit.AsyncOptions{
		BufferSize: cfg.AuditBufferSize,
	})
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := writer.Close(drainCtx); err != nil {
			log.Warn("audit drain incomplete", slog.Any("error", err))
		}
		if n := writer.Dropped(); n > 0 {
			log.Warn("audit records dropped", slog.Int64("count", n))
		}
	}()

	resolver := principal.NewResolver(identities, cfg.Gateway.TokenSecret,
		principal.WithPlanIDResolver(registry.ActivePlanID))
	engine := gate.NewEngine(resolver, registry, ledger,
		gate.WithAuditRecorder(writer),
		gate.WithLogger(log))

	svc, err := gateway.New(cfg.Gateway, identities, registry, ledger, engine,
		audit.NewReader(auditStorage),
		gateway.WithLogger(log))
	if err != nil {
		return err
	}

	root := chi.NewRouter()
	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if healthProbe != nil {
			if err := healthProbe(r.Context()); err != nil {
				log.Warn("healthcheck failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	root.Mount("/", svc.Router())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, root)
}

// seedMemory builds the in-memory stores with the demo fixtures: one admin,
// one customer on a starter plan.
func seedMemory(ctx context.Context, cfg appConfig) (principal.IdentityStore, plan.Source, audit.Storage, error) {
	store := principal.NewMemoryStore()

	seeds := []struct {
		id, name, secret string
		role             principal.Role
	}{
		{id: "admin1", name: "Admin", secret: "admin-secret", role: principal.RoleAdmin},
		{id: "user1", name: "Customer", secret: "user-secret", role: principal.RoleCustomer},
	}
	for _, s := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.CreateIdentity(ctx, principal.Identity{
			ID:         s.id,
			Name:       s.name,
			Role:       s.role,
			SecretHash: hash,
		}); err != nil {
			return nil, nil, nil, err
		}
	}

	starter := plan.Plan{
		ID:             "starter",
		Name:           "Starter",
		Description:    "Demo plan seeded in memory mode",
		QuotaLimit:     100,
		WindowDuration: 24 * time.Hour,
		AllowedOperations: []plan.Operation{
			"compute.read",
			"storage.read",
		},
	}
	source := plan.NewInMemSource(
		map[string]plan.Plan{starter.ID: starter},
		map[string]string{"user1": starter.ID, "admin1": starter.ID},
	)

	storage := audit.NewMemoryStorage(audit.WithMaxRecords(cfg.AuditRetention))
	return store, source, storage, nil
}
