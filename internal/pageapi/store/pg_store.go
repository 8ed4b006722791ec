package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code of a primary key conflict.
const uniqueViolation = "23505"

// createLockNamespace keeps the advisory lock keys of id assignment apart from other users of the database.
const createLockNamespace int64 = 0x7061676573 << 8

// PgStore implements PageStore on the page_products table.
type PgStore struct {
	db *pgxpool.Pool
}

var _ PageStore = (*PgStore)(nil)

// NewPgStore creates a new instance of PageStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) List(ctx context.Context, page catalog.Page) ([]catalog.Product, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, title, description, price FROM page_products WHERE page = $1 ORDER BY position`,
		int16(page))
	if err != nil {
		return nil, fmt.Errorf("failed to list products of page %d: %w", page, err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[catalog.Product])
	if err != nil {
		return nil, fmt.Errorf("failed to read products of page %d: %w", page, err)
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return products, nil
}

func (p *PgStore) Get(ctx context.Context, page catalog.Page, id int64) (*catalog.Product, error) {
	var product catalog.Product
	err := p.db.QueryRow(ctx,
		`SELECT id, title, description, price FROM page_products WHERE page = $1 AND id = $2`,
		int16(page), id).
		Scan(&product.ID, &product.Title, &product.Description, &product.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(page, id)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// Create serializes id assignment per page with a transaction-scoped advisory lock.
func (p *PgStore) Create(ctx context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error) {
	product := catalog.Product{Title: in.Title, Description: in.Description, Price: in.Price}
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, createLockNamespace+int64(page)); err != nil {
			return fmt.Errorf("failed to lock page %d: %w", page, err)
		}
		return tx.QueryRow(ctx,
			`INSERT INTO page_products (page, id, title, description, price)
			 SELECT $1, COALESCE(MAX(id), 0) + 1, $2, $3, $4 FROM page_products WHERE page = $1
			 RETURNING id`,
			int16(page), in.Title, in.Description, in.Price).
			Scan(&product.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (p *PgStore) Insert(ctx context.Context, page catalog.Page, product catalog.Product) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO page_products (page, id, title, description, price) VALUES ($1, $2, $3, $4, $5)`,
		int16(page), product.ID, product.Title, product.Description, product.Price)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %d on page %d", ErrDuplicateID, product.ID, page)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (p *PgStore) Update(ctx context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error) {
	var product catalog.Product
	err := p.db.QueryRow(ctx,
		`UPDATE page_products SET title = $3, description = $4, price = $5
		 WHERE page = $1 AND id = $2
		 RETURNING id, title, description, price`,
		int16(page), id, in.Title, in.Description, in.Price).
		Scan(&product.ID, &product.Title, &product.Description, &product.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(page, id)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

func (p *PgStore) Delete(ctx context.Context, page catalog.Page, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM page_products WHERE page = $1 AND id = $2`, int16(page), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(page, id)
	}
	return nil
}

func (p *PgStore) Count(ctx context.Context, page catalog.Page) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM page_products WHERE page = $1`, int16(page)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products of page %d: %w", page, err)
	}
	return n, nil
}
