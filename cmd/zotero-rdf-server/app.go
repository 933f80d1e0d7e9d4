package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ch-sander/zotero-rdf-server/config"
	"github.com/ch-sander/zotero-rdf-server/events"
	"github.com/ch-sander/zotero-rdf-server/fetch"
	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/refresh"
	"github.com/ch-sander/zotero-rdf-server/schema"
	"github.com/ch-sander/zotero-rdf-server/server"
	"github.com/ch-sander/zotero-rdf-server/store"
)

// app owns the wired components for one process.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	gateway   store.Gateway
	bus       *events.Bus
	scheduler *refresh.Scheduler
	watcher   *refresh.ImportWatcher
	pipelines []*refresh.Pipeline
	http      *server.Server

	schemaGraph rdf.IRI
}

func newApp(configPath, librariesPath, logLevelOverride string) (*app, error) {
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.NewLoader(bootLogger).Load(configPath, librariesPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Server.LogLevel
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)

	var gateway store.Gateway
	if cfg.Server.StoreURL != "" {
		gateway = store.NewOxigraph(cfg.Server.StoreURL, logger)
		logger.Info("using external store", "url", cfg.Server.StoreURL)
	} else {
		gateway = store.NewMemory(logger)
		logger.Info("using in-process store")
	}

	bus, err := events.Connect(cfg.Server.NATSURL, logger)
	if err != nil {
		return nil, err
	}

	metrics := refresh.NewMetrics(prometheus.DefaultRegisterer)
	scheduler := refresh.NewScheduler(refresh.Options{
		Timeout:      cfg.Server.RefreshTimeout,
		StartupDelay: cfg.Server.StartupDelay,
		Bus:          bus,
		Metrics:      metrics,
		Logger:       logger,
	})

	api := fetch.NewClient(cfg.Context, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		gateway:   gateway,
		bus:       bus,
		scheduler: scheduler,
	}

	var watcher *refresh.ImportWatcher
	for _, lib := range cfg.ResolveLibraries() {
		p, err := refresh.NewPipeline(cfg.Context, lib, api, gateway, cfg.Server.ImportDirectory, nil, logger)
		if err != nil {
			return nil, err
		}
		if err := scheduler.Register(p, lib.Interval(cfg.Server)); err != nil {
			return nil, err
		}
		a.pipelines = append(a.pipelines, p)

		if lib.LoadMode == "manual_import" && cfg.Server.WatchImports {
			if watcher == nil {
				watcher, err = refresh.NewImportWatcher(logger)
				if err != nil {
					return nil, err
				}
			}
			if err := watcher.Watch(p.ImportPath(), lib.Name); err != nil {
				return nil, err
			}
		}
	}
	a.watcher = watcher

	a.schemaGraph = schemaGraphIRI(cfg.Context)
	a.http = server.New(gateway, scheduler, cfg.Server.BackupDirectory, a.schemaGraph, logger)
	return a, nil
}

// Serve runs the full server: schema ontology load, scheduler, optional
// import watcher and event triggers, then the HTTP listener until ctx is
// cancelled.
func (a *app) Serve(ctx context.Context) error {
	a.loadSchemaOntology(ctx)

	if err := os.MkdirAll(a.cfg.Server.BackupDirectory, 0o755); err != nil {
		return err
	}

	a.scheduler.Start(ctx)

	unsubscribe, err := a.bus.SubscribeTriggers(func(library string) {
		if err := a.scheduler.Trigger(library); err != nil {
			a.logger.Warn("ignoring event trigger", "library", library, "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if a.watcher != nil {
		go a.watcher.Run(ctx, func(library string) {
			if err := a.scheduler.Trigger(library); err != nil {
				a.logger.Warn("ignoring watch trigger", "library", library, "error", err)
			}
		})
	}

	a.logger.Info("server ready",
		"version", Version,
		"libraries", len(a.pipelines),
		"listen", a.cfg.Server.Listen)

	err = a.http.ListenAndServe(ctx, a.cfg.Server.Listen)
	a.scheduler.Wait()
	return err
}

// RefreshOnce runs one synchronous refresh for the named library, or all
// libraries when name is empty.
func (a *app) RefreshOnce(ctx context.Context, name string) error {
	a.loadSchemaOntology(ctx)

	var errs []error
	matched := false
	for _, p := range a.pipelines {
		if name != "" && p.Library() != name {
			continue
		}
		matched = true
		result, err := p.Run(ctx, nil)
		if err != nil {
			a.logger.Error("refresh failed", "library", p.Library(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Library(), err))
			continue
		}
		a.logger.Info("refresh completed", "library", p.Library(), "triples", result.Triples)
	}
	if name != "" && !matched {
		return fmt.Errorf("unknown library %q", name)
	}
	return errors.Join(errs...)
}

// loadSchemaOntology fetches the Zotero schema and loads its OWL graph.
// Failures are logged, not fatal: mapped data is useful without the
// ontology.
func (a *app) loadSchemaOntology(ctx context.Context) {
	s, err := schema.Fetch(ctx, a.cfg.Context.Schema)
	if err != nil {
		a.logger.Warn("schema ontology unavailable", "error", err)
		return
	}
	triples := s.Ontology(a.cfg.Context.Vocab)
	if err := a.gateway.ReplaceGraph(ctx, a.schemaGraph, triples); err != nil {
		a.logger.Warn("loading schema ontology failed", "error", err)
		return
	}
	a.logger.Info("schema ontology loaded",
		"graph", string(a.schemaGraph), "version", s.Version, "triples", len(triples))
}

func (a *app) Close() {
	a.bus.Close()
}

// schemaGraphIRI derives the ontology graph from the vocabulary namespace.
func schemaGraphIRI(ctx config.Context) rdf.IRI {
	return rdf.IRI(strings.TrimRight(ctx.Vocab, "/#"))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
