package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/ai"
	"github.com/spigell/goal-tracker/internal/ai/gemini"
	"github.com/spigell/goal-tracker/internal/cache"
	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/logger"
	"github.com/spigell/goal-tracker/internal/metrics"
	"github.com/spigell/goal-tracker/internal/secrets"
	"github.com/spigell/goal-tracker/internal/store/file"
	"github.com/spigell/goal-tracker/internal/store/mongo"
	"github.com/spigell/goal-tracker/internal/store/postgres"
)

const (
	driverFile     = "file"
	driverPostgres = "postgres"
	driverMongo    = "mongo"
)

// runtime bundles everything a command needs to talk to the goal store.
type runtime struct {
	config   *Config
	logger   *zap.Logger
	service  *goals.Service
	registry *prometheus.Registry
	close    func(ctx context.Context) error
}

func newRuntime(ctx context.Context) (*runtime, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	store, closer, transactional, err := openStore(ctx, config.Store, log)
	if err != nil {
		return nil, err
	}

	queries, err := cache.New(config.Cache)
	if err != nil {
		_ = closer(ctx)
		return nil, fmt.Errorf("creating a query cache: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mode := goals.CascadeFailStop
	if config.Store.TransactionalCascade {
		if transactional {
			mode = goals.CascadeTransactional
		} else {
			log.Warn("transactional cascade requested but the store cannot run transactions, using fail-stop",
				zap.String("driver", config.Store.Driver))
		}
	}

	service := goals.NewService(store, &goals.Deps{
		Logger:   log,
		Cache:    queries,
		Observer: metrics.MustNew(registry),
		Cascade:  mode,
	})

	log.Debug("runtime ready",
		zap.String("driver", config.Store.Driver),
		zap.Bool("transactional_cascade", mode == goals.CascadeTransactional),
		zap.String("version", version),
	)

	return &runtime{
		config:   config,
		logger:   log,
		service:  service,
		registry: registry,
		close:    closer,
	}, nil
}

func (r *runtime) shutdown(ctx context.Context) {
	if err := r.close(ctx); err != nil {
		r.logger.Warn("closing the goal store", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// openStore opens the configured driver. The boolean reports whether the
// returned store can run cascades inside a transaction.
func openStore(ctx context.Context, cfg *StoreConfig, log *zap.Logger) (goals.Store, func(context.Context) error, bool, error) {
	noop := func(context.Context) error { return nil }

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", driverFile:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, nil, false, errors.New("store.path is required for the file driver")
		}
		st, err := file.Open(path, log)
		if err != nil {
			return nil, nil, false, fmt.Errorf("opening file store: %w", err)
		}
		return st, noop, true, nil

	case driverPostgres:
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: cfg.DSN,
			File:  cfg.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w (set store.dsn-file, DATABASE_URL or %s_STORE_DSN)", err, envPrefix)
		}
		st, err := postgres.Open(ctx, dsn, log)
		if err != nil {
			return nil, nil, false, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, false, err
		}
		return st, func(context.Context) error { return st.Close() }, true, nil

	case driverMongo:
		uri, err := secrets.Load(secrets.Source{
			Name:  "mongo uri",
			Value: cfg.URI,
			File:  cfg.URIFile,
			Env:   "MONGO_URI",
		})
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w (set store.uri-file, MONGO_URI or %s_STORE_URI)", err, envPrefix)
		}
		st, err := mongo.Open(ctx, uri, cfg.Database, log)
		if err != nil {
			return nil, nil, false, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, nil, false, err
		}
		return st, st.Close, st.SupportsTransactions(), nil

	default:
		return nil, nil, false, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// newScorer builds the resume scorer. It returns nil without an error when
// no api key is configured.
func newScorer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Scorer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Optional(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, nil
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:     apiKey,
		Model:      cfg.Gemini.Model,
		MaxRetries: cfg.Gemini.MaxRetries,
	}, log)
	if err != nil {
		return nil, err
	}

	return gemini.NewScorer(generator, cfg.Gemini.MaxLogLength, log), nil
}
