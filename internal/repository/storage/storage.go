// Package storage is the pgx-backed state store for stores, products, images,
// backup rows and plan ceilings.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

const storeColumns = `name, compression_type, png, jpeg, others,
	auto_compression, batch_compress, batch_restore, auto_file_rename, auto_alt_rename,
	plan, data_used, charge_id`

func scanStore(row pgx.Row) (entities.Store, error) {
	var st entities.Store
	err := row.Scan(
		&st.Name, &st.CompressionType, &st.PNGQuality, &st.JPEGQuality, &st.OthersQuality,
		&st.AutoCompression, &st.BatchCompress, &st.BatchRestore, &st.AutoFileRename, &st.AutoAltRename,
		&st.Plan, &st.DataUsed, &st.ChargeID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, ErrNotFound
	}
	return st, err
}

func (s *dbStorage) StoreByName(ctx context.Context, name string) (entities.Store, error) {
	row := s.dbpool.QueryRow(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE name = $1`, name)
	return scanStore(row)
}

// EnsureStore creates a store row with default settings if none exists yet.
func (s *dbStorage) EnsureStore(ctx context.Context, name string) error {
	_, err := s.dbpool.Exec(ctx,
		`INSERT INTO stores (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

// AddDataUsed bumps the usage counter in a single statement so concurrent
// jobs for the same store cannot lose updates, and returns the post-update
// store row.
func (s *dbStorage) AddDataUsed(ctx context.Context, storeName string, deltaMB float64) (entities.Store, error) {
	row := s.dbpool.QueryRow(ctx,
		`UPDATE stores SET data_used = data_used + $2 WHERE name = $1 RETURNING `+storeColumns,
		storeName, deltaMB)
	return scanStore(row)
}

func (s *dbStorage) PlanCeiling(ctx context.Context, plan entities.Plan) (float64, error) {
	var ceiling float64
	err := s.dbpool.QueryRow(ctx,
		`SELECT ceiling_mb FROM subscription_plans WHERE name = $1`, plan).Scan(&ceiling)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return ceiling, err
}

// DowngradePlan moves the store to the given tier and clears its recurring
// charge id, making a repeated downgrade a no-op.
func (s *dbStorage) DowngradePlan(ctx context.Context, storeName string, to entities.Plan) error {
	_, err := s.dbpool.Exec(ctx,
		`UPDATE stores SET plan = $2, charge_id = '' WHERE name = $1`, storeName, to)
	return err
}

func (s *dbStorage) UpdateStoreSettings(ctx context.Context, st entities.Store) error {
	_, err := s.dbpool.Exec(ctx,
		`UPDATE stores SET compression_type = $2, png = $3, jpeg = $4, others = $5,
			auto_compression = $6, batch_compress = $7, batch_restore = $8,
			auto_file_rename = $9, auto_alt_rename = $10
		 WHERE name = $1`,
		st.Name, st.CompressionType, st.PNGQuality, st.JPEGQuality, st.OthersQuality,
		st.AutoCompression, st.BatchCompress, st.BatchRestore, st.AutoFileRename, st.AutoAltRename)
	return err
}
