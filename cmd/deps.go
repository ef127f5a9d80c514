// Package cmd provides the CLI commands for the nameplate tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quorumhq/nameplate/config"
	"github.com/quorumhq/nameplate/credentials"
	"github.com/quorumhq/nameplate/pkg/db"
	"github.com/quorumhq/nameplate/pkg/inference"
	"github.com/quorumhq/nameplate/pkg/learned"
	"github.com/quorumhq/nameplate/pkg/logging"
	"github.com/quorumhq/nameplate/pkg/resolve"
	"github.com/quorumhq/nameplate/pkg/review"
	"github.com/quorumhq/nameplate/pkg/roster"
	"github.com/quorumhq/nameplate/pkg/verify"
)

// Deps holds the dependencies for commands. Tests fill the fields directly;
// production use goes through DefaultDeps and lazy initialization in Setup.
type Deps struct {
	Config    *config.Config
	Log       logging.Logger
	Out       io.Writer
	Mappings  learned.Store
	Reviews   review.Repository
	Publisher review.EventPublisher
	Provider  inference.Provider
	Verifiers []verify.Verifier

	// LoadConfig is called once by Setup when Config is nil.
	LoadConfig func() (*config.Config, error)

	// Registry receives all Prometheus metrics. Defaults to the process
	// registry; tests inject a fresh one.
	Registry prometheus.Registerer

	pool          *pgxpool.Pool
	engineMetrics *resolve.Metrics
	workflow      *review.Workflow
}

// DefaultDeps returns the dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		Out:        os.Stdout,
		LoadConfig: config.Load,
	}
}

// Setup initializes configuration, logging, and stores. It connects to
// PostgreSQL when one is reachable; otherwise it degrades to in-memory
// stores with a warning, so resolution still works on a fresh machine.
func (d *Deps) Setup(ctx context.Context) error {
	if d.Out == nil {
		d.Out = os.Stdout
	}

	if d.Config == nil {
		cfg, err := d.LoadConfig()
		if err != nil {
			return err
		}
		d.Config = cfg
	}

	if d.Log == nil {
		level := logging.Level(d.Config.Logging.Level)
		if d.Config.Debug {
			level = logging.LevelDebug
		}
		d.Log = logging.New(&logging.Config{
			Level:      level,
			Component:  "nameplate",
			JSONFormat: d.Config.Logging.JSON,
			Output:     os.Stderr,
		})
	}

	if d.Mappings == nil || d.Reviews == nil {
		d.openStores(ctx)
	}

	if d.Publisher == nil && d.Config.Redis.Enabled {
		pub, err := review.NewRedisPublisherFromConfig(review.PublisherConfig{
			Addr:     d.Config.Redis.Addr,
			Password: d.Config.Redis.Password,
			DB:       d.Config.Redis.DB,
		}, d.Log)
		if err != nil {
			d.Log.Warn("redis unavailable, review events disabled", logging.Err(err))
		} else {
			d.Publisher = pub
		}
	}

	if d.Provider == nil && d.Config.Inference.Enabled {
		apiKey, err := credentials.APIKey()
		if err != nil {
			d.Log.Warn("no inference API key, generative stage disabled", logging.Err(err))
		} else {
			d.Provider = inference.NewOpenAIProvider(inference.Config{
				BaseURL:    d.Config.Inference.BaseURL,
				APIKey:     apiKey,
				Model:      d.Config.Inference.Model,
				Timeout:    d.Config.Inference.Timeout,
				MaxRetries: d.Config.Inference.MaxRetries,
			}, d.Log)
		}
	}

	return nil
}

// openStores connects the PostgreSQL-backed stores, falling back to memory.
func (d *Deps) openStores(ctx context.Context) {
	pool, err := db.Connect(ctx, &d.Config.Database)
	if err != nil {
		d.Log.Warn("database unavailable, using in-memory stores; decisions will not persist",
			logging.Err(err))
		if d.Mappings == nil {
			d.Mappings = learned.NewMemoryStore()
		}
		if d.Reviews == nil {
			d.Reviews = review.NewMemoryRepository()
		}
		return
	}

	if _, err := db.RunMigrations(ctx, pool); err != nil {
		d.Log.Warn("migrations failed, using in-memory stores", logging.Err(err))
		pool.Close()
		d.Mappings = learned.NewMemoryStore()
		d.Reviews = review.NewMemoryRepository()
		return
	}

	d.pool = pool
	if _, err := db.RegisterPoolStatsCollector(pool, "nameplate", d.registry()); err != nil {
		d.Log.Warn("pool metrics registration failed", logging.Err(err))
	}
	if d.Mappings == nil {
		d.Mappings = learned.NewPostgresStore(pool)
	}
	if d.Reviews == nil {
		d.Reviews = review.NewPostgresRepository(pool)
	}
}

func (d *Deps) registry() prometheus.Registerer {
	if d.Registry == nil {
		d.Registry = prometheus.DefaultRegisterer
	}
	return d.Registry
}

// Engine builds a resolution engine from the configured collaborators. The
// resolution metrics are created once per Deps and shared across engines.
func (d *Deps) Engine() *resolve.Engine {
	engine := resolve.NewEngine(d.Config.Resolver, d.Mappings, d.Provider, d.Verifiers, d.Log)
	if d.engineMetrics == nil {
		d.engineMetrics = resolve.NewMetrics(d.registry())
	}
	engine.SetMetrics(d.engineMetrics)
	return engine
}

// Workflow returns the review workflow, building it on first use so its
// metrics register exactly once.
func (d *Deps) Workflow() *review.Workflow {
	if d.workflow == nil {
		d.workflow = review.NewWorkflow(d.Reviews, d.Mappings, d.Publisher,
			d.Config.Review.ExpiryWindow, d.Log)
		d.workflow.RegisterMetrics(d.registry())
	}
	return d.workflow
}

// LoadRoster loads the roster from the flag value or the configured default.
func (d *Deps) LoadRoster(path string) ([]roster.Entry, error) {
	if path == "" {
		path = d.Config.RosterPath
	}
	if path == "" {
		return nil, fmt.Errorf("no roster: pass --roster or set roster_path in config")
	}
	return roster.LoadFile(path, d.Log)
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	if d.Provider != nil {
		_ = d.Provider.Close()
	}
}

// printJSON writes indented JSON to the deps output.
func (d *Deps) printJSON(v interface{}) error {
	enc := json.NewEncoder(d.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonOutput reports whether the configured output format is JSON.
func (d *Deps) jsonOutput() bool {
	return d.Config != nil && d.Config.OutputFormat == config.OutputFormatJSON
}
