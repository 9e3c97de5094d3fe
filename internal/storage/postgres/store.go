package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oraclepool/internal/model"
)

// Store provides Postgres persistence for the operation journal and pool
// snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AppendOperations inserts committed operation records.
func (s *Store) AppendOperations(ops []model.OperationRecord) error {
	return s.InsertOperations(context.Background(), ops)
}

// InsertOperations inserts committed operation records in one batch.
func (s *Store) InsertOperations(ctx context.Context, ops []model.OperationRecord) error {
	if len(ops) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(`
			INSERT INTO pool_operations (
				pool, op, holder, amount_in, amount_out, fee,
				base_raw, quote_raw, lp_delta,
				base_reserve, quote_reserve, lp_supply, ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
		`,
			op.Pool,
			op.Op,
			op.Holder,
			op.AmountIn,
			op.AmountOut,
			op.Fee,
			op.BaseRaw,
			op.QuoteRaw,
			op.LPDelta,
			op.BaseReserve,
			op.QuoteReserve,
			op.LPSupply,
			op.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ops {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSnapshot inserts or updates the latest pool snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (
			pool, base_reserve, quote_reserve, lp_supply, base_rate, quote_rate, ts, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		ON CONFLICT (pool) DO UPDATE SET
			base_reserve = EXCLUDED.base_reserve,
			quote_reserve = EXCLUDED.quote_reserve,
			lp_supply = EXCLUDED.lp_supply,
			base_rate = EXCLUDED.base_rate,
			quote_rate = EXCLUDED.quote_rate,
			ts = EXCLUDED.ts,
			updated_at = now()
	`,
		snap.Pool,
		snap.BaseReserve,
		snap.QuoteReserve,
		snap.LPSupply,
		snap.BaseRate,
		snap.QuoteRate,
		snap.Timestamp,
	)
	return err
}
