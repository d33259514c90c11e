// Package app wires configuration, backends and feature modules; both
// binaries start from New.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/config"
	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/localdb"
	"centrovision-data/internal/remote"
	"centrovision-data/internal/repository"
	"centrovision-data/internal/service"
	"centrovision-data/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Resolver *connectivity.Resolver
	Runner   *dualaccess.Runner
	Remote   *remote.Client
	Bridge   *bridge.Bridge
	// Local is the desktop datastore; nil when no shell is present.
	Local    *localdb.Store
	KV       store.KV
	Services *service.Services

	db      *sql.DB
	redis   *redis.Client
	local   bridge.Invoker
	metrics *dualaccess.Metrics
}

// New builds the process. Redis failures fall back to the in-memory store;
// a shell whose local database cannot be opened is an error.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	a.KV = store.NewMemoryKV()
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis enabled but unreachable, using in-memory store", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			a.redis = client
			a.KV = store.NewRedisKV(client)
		}
	}

	a.Remote = remote.NewClient(cfg.Remote, a.KV, logger.Named("remote"))
	a.Bridge = bridge.New(cfg.Desktop.Shell, logger.Named("bridge"))

	if cfg.Desktop.Shell {
		db, err := localdb.Open(cfg.Desktop.LocalDBPath)
		if err != nil {
			return nil, err
		}
		if err := localdb.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.Local = localdb.NewStore(db, cfg.Desktop.DocumentsDir, logger.Named("localdb"))
		a.Local.Register(a.Bridge)
		a.local = a.Bridge
		logger.Info("Local datastore ready", zap.String("path", cfg.Desktop.LocalDBPath))
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.Resolver = connectivity.NewResolver(
		connectivity.StaticShell(cfg.Desktop.Shell),
		connectivity.NewHTTPProber(cfg.Remote.URL, cfg.Remote.AnonKey),
		connectivity.ParseMode(cfg.Desktop.PreferredMode),
		cfg.Connectivity.ProbeTimeout,
		logger.Named("connectivity"),
	)
	mode := a.Resolver.Refresh(ctx)
	logger.Info("Connectivity resolved",
		zap.String("mode", string(mode)),
		zap.Bool("shell", cfg.Desktop.Shell),
	)

	a.metrics = dualaccess.NewMetrics(a.Registry)
	a.Runner = dualaccess.NewRunner(a.Resolver, a.metrics, logger.Named("dualaccess"))
	a.Services = BuildServices(a.Runner, a.Remote, a.local, a.KV, logger)
	return a, nil
}

// PinMode serves every later operation from mode regardless of connectivity.
// Used by the CLI --mode flag.
func (a *App) PinMode(mode connectivity.Mode) {
	a.Runner = dualaccess.NewRunner(dualaccess.StaticMode(mode), a.metrics, a.Logger.Named("dualaccess"))
	a.Services = BuildServices(a.Runner, a.Remote, a.local, a.KV, a.Logger)
}

// BuildServices pairs every repository family with its feature module. A nil
// client or invoker leaves that side of every pair empty.
func BuildServices(runner *dualaccess.Runner, client *remote.Client, local bridge.Invoker, kv store.KV, logger *zap.Logger) *service.Services {
	var (
		inventory    dualaccess.Backends[repository.InventoryRepository]
		consultation dualaccess.Backends[repository.ConsultationRepository]
		surgery      dualaccess.Backends[repository.SurgeryRepository]
		billing      dualaccess.Backends[repository.BillingRepository]
		crm          dualaccess.Backends[repository.CRMRepository]
		analytics    dualaccess.Backends[repository.AnalyticsRepository]
		admin        dualaccess.Backends[repository.AdminRepository]
		documents    dualaccess.Backends[repository.DocumentRepository]
	)
	if client != nil {
		inventory.Remote = repository.NewRemoteInventoryRepository(client)
		consultation.Remote = repository.NewRemoteConsultationRepository(client)
		surgery.Remote = repository.NewRemoteSurgeryRepository(client)
		billing.Remote = repository.NewRemoteBillingRepository(client)
		crm.Remote = repository.NewRemoteCRMRepository(client)
		analytics.Remote = repository.NewRemoteAnalyticsRepository(client)
		admin.Remote = repository.NewRemoteAdminRepository(client)
		documents.Remote = repository.NewRemoteDocumentRepository(client)
	}
	if local != nil {
		inventory.Local = repository.NewLocalInventoryRepository(local)
		consultation.Local = repository.NewLocalConsultationRepository(local)
		surgery.Local = repository.NewLocalSurgeryRepository(local)
		billing.Local = repository.NewLocalBillingRepository(local)
		crm.Local = repository.NewLocalCRMRepository(local)
		analytics.Local = repository.NewLocalAnalyticsRepository(local)
		admin.Local = repository.NewLocalAdminRepository(local)
		documents.Local = repository.NewLocalDocumentRepository(local)
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service.Services{
		Inventory:    service.NewInventoryService(runner, inventory, logger.Named("inventory")),
		Consultation: service.NewConsultationService(runner, consultation, logger.Named("consultation")),
		Surgery:      service.NewSurgeryService(runner, surgery, logger.Named("surgery")),
		Billing:      service.NewBillingService(runner, billing, logger.Named("billing")),
		CRM:          service.NewCRMService(runner, crm, logger.Named("crm")),
		Analytics:    service.NewAnalyticsService(runner, analytics),
		Admin:        service.NewAdminService(runner, admin, logger.Named("admin")),
		Documents:    service.NewDocumentService(runner, documents),
		Preferences:  service.NewPreferenceService(kv),
	}
}

// Close releases the local database and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
