package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/adapter/postgres"
	"github.com/user/linkcheck-service/internal/adapter/sqlite"
	"github.com/user/linkcheck-service/internal/budget"
	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/config"
)

// recordStore is the negotiated store: a repository whose every call runs
// inside a lease of gate.
type recordStore struct {
	repo   repository.RecordRepository
	gate   *budget.Gate
	budget entity.ConnectionBudget
	close  func()
}

// openStore negotiates the connection budget and opens a pool sized to it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recordStore, error) {
	db := cfg.Database

	var dial budget.Dialer
	switch db.Driver {
	case "sqlite":
		dial = sqlite.BudgetDialer(db.SQLitePath, db.SQLiteMaxConns)
	default:
		dial = postgres.BudgetDialer(cfg.PostgresDSN())
	}

	b, err := budget.Negotiate(ctx, dial)
	if err != nil {
		return nil, err
	}
	logger.Info("connection budget negotiated",
		zap.String("driver", db.Driver),
		zap.Int("max", b.Max),
		zap.Int("active", b.Active),
		zap.Int("capacity", b.Capacity),
	)
	gate := budget.NewGate(b.Capacity, db.AcquireTimeout)

	switch db.Driver {
	case "sqlite":
		sdb, err := sqlite.Open(db.SQLitePath, b.Capacity)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.EnsureSchema(ctx, sdb, db.TableName); err != nil {
			sdb.Close()
			return nil, err
		}
		return &recordStore{
			repo:   sqlite.NewRecordRepo(sdb, gate, db.TableName),
			gate:   gate,
			budget: b,
			close:  func() { sdb.Close() },
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), b.Capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", budget.ErrStoreUnreachable, err)
		}
		return &recordStore{
			repo:   postgres.NewRecordRepo(pool, gate, db.TableName),
			gate:   gate,
			budget: b,
			close:  pool.Close,
		}, nil
	}
}
