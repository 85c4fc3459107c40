package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/db"
	"github.com/fintrack/apiserver/internal/handlers"
	"github.com/fintrack/apiserver/internal/services"
	"github.com/fintrack/apiserver/internal/store"
	"github.com/fintrack/apiserver/internal/store/memory"
)

// Stores bundles the repositories of the configured database driver.
type Stores struct {
	Users        services.UserRepository
	Transactions services.TransactionRepository
	Exports      services.ExportRepository
	Health       handlers.Pinger

	db *sql.DB
}

// OpenStores connects to Postgres, or builds an empty memory store when
// cfg.Driver is memory.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		st := memory.New()
		users := st.Users()
		return &Stores{
			Users:        users,
			Transactions: st.Transactions(),
			Exports:      st.Exports(),
			Health:       users,
		}, nil
	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		users := store.NewUserRepository(conn)
		return &Stores{
			Users:        users,
			Transactions: store.NewTransactionRepository(conn),
			Exports:      store.NewExportRepository(conn),
			Health:       users,
			db:           conn,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
