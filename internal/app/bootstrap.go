// Package app wires shared infrastructure: logging, migrations, database,
// and the session store.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"clickbot/internal/config"
	"clickbot/internal/database"
	"clickbot/internal/logger"
	"clickbot/internal/session"
)

// Options control the bootstrap pipeline. The function fields exist so tests
// can substitute any stage; nil fields use the production implementation.
type Options struct {
	Config *config.Config

	LoggerInit func(*config.Config) error
	Migrate    func(config.DatabaseConfig) error
	Connect    func(config.DatabaseConfig) (*sqlx.DB, error)
}

// Resources exposes infrastructure initialized by Bootstrap.
type Resources struct {
	DB    *sqlx.DB
	Store session.Store
}

// Close releases the database handle.
func (r *Resources) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// Bootstrap initializes the logger, applies migrations, and opens the
// session store.
func Bootstrap(opts Options) (*Resources, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = database.RunMigrations
	}
	if err := migrate(opts.Config.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = database.Connect
	}
	db, err := connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	return &Resources{DB: db, Store: session.NewSQLStore(db)}, nil
}
