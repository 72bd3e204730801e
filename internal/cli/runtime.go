package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"salon/internal/amqp"
	"salon/internal/backend"
	"salon/internal/cache"
	"salon/internal/config"
	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/services"
	"salon/internal/settings"
	"salon/internal/sheets"
	gsheet "salon/internal/sheets/google"
	"salon/internal/snapshot"
)

// Runtime is the set of components both binaries share: the device store,
// the loaded state and the services on top of it.
type Runtime struct {
	Config    *config.Config
	Logger    *applog.Logger
	Backend   *backend.BackendResult
	Persister *snapshot.Persister
	Source    snapshot.Source
	Store     *services.DataStore
	Autosaver *services.Autosaver
	Settings  *settings.Manager
	Backups   *services.BackupService
	Reports   *services.ReportService
	Cache     *cache.LRUCache[core.Report]

	mu     sync.Mutex
	amqp   *amqp.Client
	sheets *gsheet.Client
}

// NewRuntime opens the configured store, loads the snapshot (or the seed)
// and connects the autosaver to the data store.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Runtime, error) {
	res, err := InitStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	seed := snapshot.DefaultSeed
	if cfg.SeedFile != "" {
		if seed, err = snapshot.SeedFromFile(cfg.SeedFile); err != nil {
			res.Close()
			return nil, err
		}
	}
	persister := snapshot.NewPersister(res.Store, seed, logger)
	initial, src, err := persister.Load(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}
	// A fresh seed is written straight away so its ids and dates stay put
	// across invocations. A recovered snapshot is only replaced by the next
	// real change.
	if src == snapshot.SourceSeed {
		if err := persister.Save(ctx, initial); err != nil {
			res.Close()
			return nil, err
		}
	}

	store := services.NewDataStore(initial, services.DataStoreConfig{
		Mode:     services.AggregateMode(cfg.AggregatesMode),
		Location: cfg.Location(),
		Logger:   logger,
	})
	autosaver := services.NewAutosaver(persister, logger)
	store.OnChange(autosaver.Notify)

	set := settings.NewManager(res.Store, logger)
	lru := cache.NewLRUCache[core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)

	logger.InfoContext(ctx, "Salon data loaded",
		applog.FieldSource, string(src),
		"backend", cfg.DataBackend,
		"aggregates", cfg.AggregatesMode)

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Backend:   res,
		Persister: persister,
		Source:    src,
		Store:     store,
		Autosaver: autosaver,
		Settings:  set,
		Backups:   services.NewBackupService(store, logger),
		Reports:   services.NewReportService(store, set, lru, logger),
		Cache:     lru,
	}, nil
}

// AMQP returns the broker client, dialling it on first use.
func (r *Runtime) AMQP() (*amqp.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.amqp != nil {
		return r.amqp, nil
	}
	if !r.Config.AMQPEnabled() {
		return nil, errors.New("AMQP is not configured (set AMQP_URL)")
	}
	c, err := amqp.NewClient(r.Config.AMQPURL, r.Config.AMQPExchange, r.Config.AMQPQueue, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	r.amqp = c
	return c, nil
}

// ReportPublisher returns the spreadsheet client, or nil when no
// spreadsheet is configured.
func (r *Runtime) ReportPublisher(ctx context.Context) (sheets.ReportPublisher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Config.SheetsEnabled() {
		return nil, nil
	}
	if r.sheets == nil {
		c, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   r.Config.GoogleSpreadsheetID,
			SheetName:       r.Config.GoogleSheetName,
			CredentialsJSON: r.Config.GoogleServiceAccountJSON,
			CredentialsFile: r.Config.GoogleServiceAccountFile,
		}, r.Logger)
		if err != nil {
			return nil, err
		}
		r.sheets = c
	}
	return r.sheets, nil
}

// Close flushes the last state change and releases the store and any
// broker connection.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.Autosaver.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	r.mu.Lock()
	if r.amqp != nil {
		if err := r.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP: %w", err))
		}
		r.amqp = nil
	}
	r.mu.Unlock()
	if err := r.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
