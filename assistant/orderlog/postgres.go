package orderlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

// orderRow is the bun model for one persisted order.
type orderRow struct {
	bun.BaseModel `bun:"table:orders"`

	ID        string    `bun:"id,pk"`
	Action    string    `bun:"action,notnull"`
	Client    []byte    `bun:"client,type:jsonb,notnull"`
	Items     []byte    `bun:"items,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresLog appends one row per order record.
type PostgresLog struct {
	db *bun.DB
}

var _ contractx.OrderLog = (*PostgresLog)(nil)

// NewPostgresLog connects with the pgdriver DSN and makes sure the orders
// table exists.
func NewPostgresLog(ctx context.Context, dsn string) (*PostgresLog, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*orderRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create orders table: %w", err)
	}

	return &PostgresLog{db: db}, nil
}

func (l *PostgresLog) Append(ctx context.Context, rec contractx.OrderRecord) error {
	clientJSON, err := json.Marshal(rec.Client)
	if err != nil {
		return fmt.Errorf("marshal order client: %w", err)
	}
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	row := &orderRow{
		ID:        rec.ID,
		Action:    rec.Action,
		Client:    clientJSON,
		Items:     itemsJSON,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := l.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (l *PostgresLog) Close() error {
	return l.db.Close()
}
