package sqlitestore

import (
	"context"
	"strings"

	"invoicing/internal/apperr"
	"invoicing/internal/store"
)

const productColumns = `id, name, description, price, stock, image_path, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (store.Product, error) {
	var (
		p       store.Product
		created string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImagePath, &created); err != nil {
		return store.Product{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	p, err := scanProduct(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
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
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE lower(name) LIKE ? ESCAPE '\'`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, store.Translate("products.search", err)
	}

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(name) LIKE ? ESCAPE '\'
		 ORDER BY name, id LIMIT ? OFFSET ?`,
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
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = ?)`,
		strings.ToLower(strings.TrimSpace(name))).Scan(&exists)
	if err != nil {
		return false, store.Translate("products.name_exists", err)
	}
	return exists, nil
}

func (s *Store) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	created := s.stamp()
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock, image_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Stock, p.ImagePath, created)
	if err != nil {
		return store.Product{}, store.Translate("products.create", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return store.Product{}, store.Translate("products.create", err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

func (s *Store) UpdateProductImage(ctx context.Context, id int64, path string) error {
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE products SET image_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return store.Translate("products.update_image", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Translate("products.update_image", err)
	}
	if n == 0 {
		return apperr.NewNotFound("Product", id)
	}
	return nil
}

func (s *Store) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`, qty, productID, qty)
	if err != nil {
		return store.Translate("products.decrement_stock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Translate("products.decrement_stock", err)
	}
	if n > 0 {
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

func (s *Store) restock(ctx context.Context, productID int64, qty int) error {
	_, err := s.q(ctx).ExecContext(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, qty, productID)
	return store.Translate("products.restock", err)
}
