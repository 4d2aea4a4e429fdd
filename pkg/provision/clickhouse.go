package provision

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/hyperdxio/switchboard/pkg/config"
)

// clickhouseExecutor speaks the native protocol to the admin endpoint
type clickhouseExecutor struct {
	conn driver.Conn
}

// NewClickHouseExecutor opens a native-protocol connection to the
// ClickHouse admin endpoint and verifies it with a ping.
func NewClickHouseExecutor(ctx context.Context, cfg config.ClickHouse) (Executor, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.AdminHost},
		Auth: clickhouse.Auth{
			Username: cfg.AdminUser,
			Password: cfg.AdminPassword,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, err
	}

	return &clickhouseExecutor{conn: conn}, nil
}

func (e *clickhouseExecutor) Exec(ctx context.Context, ddl string) error {
	return e.conn.Exec(ctx, ddl)
}

func (e *clickhouseExecutor) Ping(ctx context.Context) error {
	return e.conn.Ping(ctx)
}

func (e *clickhouseExecutor) Close() error {
	return e.conn.Close()
}
