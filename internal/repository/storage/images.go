package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

const imageColumns = `uid, remote_id, product_id, name, alt, url, status`

func scanImage(row pgx.Row) (entities.Image, error) {
	var img entities.Image
	err := row.Scan(&img.UID, &img.RemoteID, &img.ProductID, &img.Name, &img.Alt, &img.URL, &img.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return img, ErrNotFound
	}
	return img, err
}

func (s *dbStorage) ImageByUID(ctx context.Context, uid int64) (entities.Image, error) {
	row := s.dbpool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE uid = $1`, uid)
	return scanImage(row)
}

func (s *dbStorage) ImageByRemoteID(ctx context.Context, remoteID string) (entities.Image, error) {
	row := s.dbpool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE remote_id = $1`, remoteID)
	return scanImage(row)
}

func (s *dbStorage) Images(ctx context.Context) ([]entities.Image, error) {
	rows, err := s.dbpool.Query(ctx, `SELECT `+imageColumns+` FROM images ORDER BY uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

func (s *dbStorage) ImagesByProduct(ctx context.Context, productID string) ([]entities.Image, error) {
	rows, err := s.dbpool.Query(ctx,
		`SELECT `+imageColumns+` FROM images WHERE product_id = $1 ORDER BY uid`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

func collectImages(rows pgx.Rows) ([]entities.Image, error) {
	var out []entities.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// CreateImage inserts a new image record and returns its assigned uid.
func (s *dbStorage) CreateImage(ctx context.Context, img entities.Image) (int64, error) {
	var uid int64
	err := s.dbpool.QueryRow(ctx,
		`INSERT INTO images (remote_id, product_id, name, alt, url, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING uid`,
		img.RemoteID, img.ProductID, img.Name, img.Alt, img.URL, img.Status).Scan(&uid)
	return uid, err
}

// UpsertImageByRemoteID ingests a webhook image: an existing record (matched
// on remote id) keeps its uid and status unless the payload says otherwise.
func (s *dbStorage) UpsertImageByRemoteID(ctx context.Context, img entities.Image) (entities.Image, error) {
	existing, err := s.ImageByRemoteID(ctx, img.RemoteID)
	if errors.Is(err, ErrNotFound) {
		uid, err := s.CreateImage(ctx, img)
		if err != nil {
			return entities.Image{}, err
		}
		img.UID = uid
		return img, nil
	}
	if err != nil {
		return entities.Image{}, err
	}

	status := existing.Status
	if img.Status == entities.StatusCompressed {
		status = entities.StatusCompressed
	}
	_, err = s.dbpool.Exec(ctx,
		`UPDATE images SET url = $2, status = $3 WHERE uid = $1`,
		existing.UID, img.URL, status)
	if err != nil {
		return entities.Image{}, err
	}
	existing.URL = img.URL
	existing.Status = status
	return existing, nil
}

func (s *dbStorage) UpdateImageRemote(ctx context.Context, uid int64, remoteID, name, alt string) error {
	_, err := s.dbpool.Exec(ctx,
		`UPDATE images SET remote_id = $2, name = $3, alt = $4 WHERE uid = $1`,
		uid, remoteID, name, alt)
	return err
}

func (s *dbStorage) SetImageStatus(ctx context.Context, uid int64, status entities.ImageStatus) error {
	_, err := s.dbpool.Exec(ctx,
		`UPDATE images SET status = $2 WHERE uid = $1`, uid, status)
	return err
}

func (s *dbStorage) DeleteImage(ctx context.Context, uid int64) error {
	_, err := s.dbpool.Exec(ctx, `DELETE FROM images WHERE uid = $1`, uid)
	return err
}

func (s *dbStorage) CreateProduct(ctx context.Context, p entities.Product) error {
	_, err := s.dbpool.Exec(ctx,
		`INSERT INTO products (id, store_name, title) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
		p.ID, p.StoreName, p.Title)
	return err
}

func (s *dbStorage) ProductByID(ctx context.Context, id string) (entities.Product, error) {
	var p entities.Product
	err := s.dbpool.QueryRow(ctx,
		`SELECT id, store_name, title FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.StoreName, &p.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}
