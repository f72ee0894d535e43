package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	OrderNumber int       `bun:"order_number,pk"`
	Items       []byte    `bun:"items,type:jsonb"`
	Total       float64   `bun:"total"`
	PlacedAt    time.Time `bun:"placed_at"`
}

// PostgresStore persists finalized orders in Postgres through bun. Number
// assignment runs count-then-insert inside one transaction; the mutex keeps
// the cycle serialized within the process.
type PostgresStore struct {
	db *bun.DB
	mu sync.Mutex
}

func NewPostgresStore(cfg PostgresConfig) *PostgresStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return &PostgresStore{
		db: bun.NewDB(sqldb, pgdialect.New()),
	}
}

// Init creates the orders table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*orderRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create orders table: %v", contractx.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, build func(count int) orderx.FinalizedOrder) (orderx.FinalizedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var final orderx.FinalizedOrder
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*orderRow)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}

		final = build(count)

		items, err := json.Marshal(final.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		row := orderRow{
			OrderNumber: final.OrderNumber,
			Items:       items,
			Total:       final.Total,
			PlacedAt:    final.PlacedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return orderx.FinalizedOrder{}, fmt.Errorf("%w: append order: %v", contractx.ErrStorage, err)
	}
	return final, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*orderRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count orders: %v", contractx.ErrStorage, err)
	}
	return count, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]orderx.FinalizedOrder, error) {
	var rows []orderRow
	if err := s.db.NewSelect().Model(&rows).Order("order_number ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", contractx.ErrStorage, err)
	}

	orders := make([]orderx.FinalizedOrder, 0, len(rows))
	for _, row := range rows {
		var items []orderx.ItemView
		if len(row.Items) > 0 {
			if err := json.Unmarshal(row.Items, &items); err != nil {
				return nil, fmt.Errorf("%w: decode order %d items: %v", contractx.ErrStorage, row.OrderNumber, err)
			}
		}
		orders = append(orders, orderx.FinalizedOrder{
			OrderNumber: row.OrderNumber,
			Items:       items,
			Total:       row.Total,
			PlacedAt:    row.PlacedAt,
		})
	}
	return orders, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
