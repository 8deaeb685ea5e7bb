package sqlite

import (
	"context"
	"database/sql"

	"github.com/user/linkcheck-service/internal/budget"
)

// BudgetDialer reports maxConns as the store limit. An embedded database has
// no server-side connection table, so nothing is ever counted as active.
func BudgetDialer(path string, maxConns int) budget.Dialer {
	return func(ctx context.Context) (budget.Session, error) {
		db, err := Open(path, 1)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &budgetSession{db: db, max: maxConns}, nil
	}
}

type budgetSession struct {
	db  *sql.DB
	max int
}

func (s *budgetSession) MaxConnections(context.Context) (int, error) { return s.max, nil }

func (s *budgetSession) ActiveConnections(context.Context) (int, error) { return 0, nil }

func (s *budgetSession) Close(context.Context) error { return s.db.Close() }
