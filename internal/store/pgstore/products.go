package pgstore

import (
	"context"
	"strings"

	"invoicing/internal/apperr"
	"invoicing/internal/store"
)

const productColumns = `id, name, description, price, stock, image_path, created_at`

func scanProduct(row scanner) (store.Product, error) {
	var p store.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImagePath, &p.CreatedAt)
	return p, err
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	p, err := scanProduct(s.q(ctx).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if store.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Translate("products.get", err)
	}
	return &p, nil
}

func (s *Store) SearchProducts(ctx context.Context, term string, page, pageSize int) ([]store.Product, int, error) {
	pattern := store.ContainsPattern(term)

	var total int
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE lower(name) LIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, store.Translate("products.search", err)
	}

	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(name) LIKE $1
		 ORDER BY name, id LIMIT $2 OFFSET $3`,
		pattern, pageSize, store.Offset(page, pageSize))
	if err != nil {
		return nil, 0, store.Translate("products.search", err)
	}
	defer rows.Close()

	out := make([]store.Product, 0, pageSize)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, store.Translate("products.search", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Translate("products.search", err)
	}
	return out, total, nil
}

func (s *Store) ProductNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = $1)`,
		strings.ToLower(strings.TrimSpace(name))).Scan(&exists)
	if err != nil {
		return false, store.Translate("products.name_exists", err)
	}
	return exists, nil
}

func (s *Store) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock, image_path)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.Name, p.Description, p.Price, p.Stock, p.ImagePath).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return store.Product{}, store.Translate("products.create", err)
	}
	return p, nil
}

func (s *Store) UpdateProductImage(ctx context.Context, id int64, path string) error {
	tag, err := s.q(ctx).Exec(ctx, `UPDATE products SET image_path = $1 WHERE id = $2`, path, id)
	if err != nil {
		return store.Translate("products.update_image", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("Product", id)
	}
	return nil
}

func (s *Store) DecrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`, qty, productID)
	if err != nil {
		return store.Translate("products.decrement_stock", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NewNotFound("Product", productID)
	}
	return store.InsufficientStock(productID, qty)
}
