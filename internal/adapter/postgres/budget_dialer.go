package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/user/linkcheck-service/internal/budget"
)

// BudgetDialer opens the transient connection used to negotiate the
// connection budget.
func BudgetDialer(dsn string) budget.Dialer {
	return func(ctx context.Context) (budget.Session, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &budgetSession{conn: conn}, nil
	}
}

type budgetSession struct {
	conn *pgx.Conn
}

func (s *budgetSession) MaxConnections(ctx context.Context) (int, error) {
	var raw string
	if err := s.conn.QueryRow(ctx, "SHOW max_connections").Scan(&raw); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse max_connections %q: %w", raw, err)
	}
	return n, nil
}

func (s *budgetSession) ActiveConnections(ctx context.Context) (int, error) {
	var n int64
	if err := s.conn.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *budgetSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
