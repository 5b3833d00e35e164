package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memescope/aggregator/internal/config"
	"github.com/memescope/aggregator/internal/model"
)

// Store wraps the Postgres connection pool for token persistence.
type Store struct {
	pool *pgxpool.Pool
}

// Connect creates the connection pool and verifies the connection.
func Connect(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	token_address     TEXT PRIMARY KEY,
	token_name        TEXT NOT NULL,
	token_ticker      TEXT NOT NULL,
	price_sol         DOUBLE PRECISION NOT NULL,
	market_cap_sol    DOUBLE PRECISION NOT NULL,
	volume_sol        DOUBLE PRECISION NOT NULL,
	liquidity_sol     DOUBLE PRECISION NOT NULL,
	transaction_count BIGINT NOT NULL,
	price_1hr_change  DOUBLE PRECISION NOT NULL,
	protocol          TEXT NOT NULL,
	last_updated      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// InitSchema creates the tokens table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create tokens table: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO tokens (
	token_address, token_name, token_ticker, price_sol, market_cap_sol,
	volume_sol, liquidity_sol, transaction_count, price_1hr_change,
	protocol, last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (token_address) DO UPDATE SET
	token_name        = EXCLUDED.token_name,
	token_ticker      = EXCLUDED.token_ticker,
	price_sol         = EXCLUDED.price_sol,
	market_cap_sol    = EXCLUDED.market_cap_sol,
	volume_sol        = EXCLUDED.volume_sol,
	liquidity_sol     = EXCLUDED.liquidity_sol,
	transaction_count = EXCLUDED.transaction_count,
	price_1hr_change  = EXCLUDED.price_1hr_change,
	protocol          = EXCLUDED.protocol,
	last_updated      = EXCLUDED.last_updated`

// UpsertTokens writes a batch of snapshots, replacing rows by address.
func (s *Store) UpsertTokens(ctx context.Context, tokens []*model.TokenSnapshot) error {
	if len(tokens) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tokens {
		batch.Queue(upsertSQL,
			t.Address, t.Name, t.Ticker, t.PriceSOL, t.MarketCapSOL,
			t.VolumeSOL, t.LiquiditySOL, t.TransactionCount, t.PriceChange1h,
			t.Protocol, t.LastUpdated,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range tokens {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert token: %w", err)
		}
	}
	return nil
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
