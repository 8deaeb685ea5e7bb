package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/linkcheck-service/internal/entity"
)

var (
	ErrStoreUnreachable = errors.New("store unreachable")
	ErrNoCapacity       = errors.New("store has no spare connections")
)

// Session is a transient store connection used only for negotiation.
type Session interface {
	// MaxConnections returns the store's configured connection limit.
	MaxConnections(ctx context.Context) (int, error)
	// ActiveConnections returns the number of connections currently open
	// against the store, by any client.
	ActiveConnections(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Dialer opens a Session.
type Dialer func(ctx context.Context) (Session, error)

// Negotiate opens one transient connection, computes how many connections
// this run may hold and closes the connection again.
func Negotiate(ctx context.Context, dial Dialer) (b entity.ConnectionBudget, err error) {
	sess, err := dial(ctx)
	if err != nil {
		return b, fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close negotiation session: %w", cerr)
		}
	}()

	b.Max, err = sess.MaxConnections(ctx)
	if err != nil {
		return b, fmt.Errorf("read max connections: %w", err)
	}
	b.Active, err = sess.ActiveConnections(ctx)
	if err != nil {
		return b, fmt.Errorf("read active connections: %w", err)
	}

	b.Capacity = b.Max - b.Active
	if b.Capacity <= 0 {
		return b, fmt.Errorf("%w: max %d, active %d", ErrNoCapacity, b.Max, b.Active)
	}
	return b, nil
}
