package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

// SaveBackup writes the three backup rows in one transaction. It is called
// only after the remote delete+create both succeeded, so a committed set of
// rows always references a replace that actually happened.
func (s *dbStorage) SaveBackup(ctx context.Context, img entities.BackupImage, name entities.BackupFilename, alt entities.BackupAltName) error {
	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin backup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO backup_images (restore_id, data) VALUES ($1, $2)
		 ON CONFLICT (restore_id) DO UPDATE SET data = EXCLUDED.data`,
		img.RestoreID, img.Data); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO backup_filenames (restore_id, name) VALUES ($1, $2)
		 ON CONFLICT (restore_id) DO UPDATE SET name = EXCLUDED.name`,
		name.RestoreID, name.Name); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO backup_alt_names (restore_id, alt) VALUES ($1, $2)
		 ON CONFLICT (restore_id) DO UPDATE SET alt = EXCLUDED.alt`,
		alt.RestoreID, alt.Alt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *dbStorage) BackupImageByID(ctx context.Context, uid int64) (entities.BackupImage, error) {
	var b entities.BackupImage
	err := s.dbpool.QueryRow(ctx,
		`SELECT restore_id, data FROM backup_images WHERE restore_id = $1`, uid).
		Scan(&b.RestoreID, &b.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (s *dbStorage) BackupFilenameByID(ctx context.Context, uid int64) (entities.BackupFilename, error) {
	var b entities.BackupFilename
	err := s.dbpool.QueryRow(ctx,
		`SELECT restore_id, name FROM backup_filenames WHERE restore_id = $1`, uid).
		Scan(&b.RestoreID, &b.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (s *dbStorage) BackupAltNameByID(ctx context.Context, uid int64) (entities.BackupAltName, error) {
	var b entities.BackupAltName
	err := s.dbpool.QueryRow(ctx,
		`SELECT restore_id, alt FROM backup_alt_names WHERE restore_id = $1`, uid).
		Scan(&b.RestoreID, &b.Alt)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

// The delete helpers are idempotent: removing an absent row is a no-op.

func (s *dbStorage) DeleteBackupImage(ctx context.Context, uid int64) error {
	_, err := s.dbpool.Exec(ctx, `DELETE FROM backup_images WHERE restore_id = $1`, uid)
	return err
}

func (s *dbStorage) DeleteBackupFilename(ctx context.Context, uid int64) error {
	_, err := s.dbpool.Exec(ctx, `DELETE FROM backup_filenames WHERE restore_id = $1`, uid)
	return err
}

func (s *dbStorage) DeleteBackupAltName(ctx context.Context, uid int64) error {
	_, err := s.dbpool.Exec(ctx, `DELETE FROM backup_alt_names WHERE restore_id = $1`, uid)
	return err
}
