package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"invoicing/internal/apperr"
	"invoicing/internal/platform/pg"
	"invoicing/internal/store"
)

const invoiceColumns = `id, number, customer_name, customer_email, issue_date, currency,
	exchange_rate, total, status, created_at`

func scanInvoice(row scanner) (store.Invoice, error) {
	var (
		inv    store.Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerName, &inv.CustomerEmail, &inv.IssueDate,
		&inv.Currency, &inv.ExchangeRate, &inv.Total, &status, &inv.CreatedAt)
	inv.Status = store.InvoiceStatus(status)
	return inv, err
}

func (s *Store) CreateInvoice(ctx context.Context, inv store.Invoice) (store.Invoice, error) {
	inv.Status = store.StatusIssued
	if inv.ExchangeRate == 0 {
		inv.ExchangeRate = 1
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		err := s.q(ctx).QueryRow(ctx,
			`INSERT INTO invoices (number, customer_name, customer_email, issue_date, currency,
				exchange_rate, total, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
			inv.Number, inv.CustomerName, inv.CustomerEmail, inv.IssueDate, inv.Currency,
			inv.ExchangeRate, inv.Total, string(inv.Status)).Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return store.Translate("invoices.create", err)
		}

		batch := &pgx.Batch{}
		for i, line := range inv.Lines {
			batch.Queue(`INSERT INTO invoice_lines (invoice_id, line_no, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)`, inv.ID, i+1, line.ProductID, line.Quantity, line.UnitPrice)
		}
		tx, _ := pg.PgxTx(ctx)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return store.Translate("invoices.create_line", err)
		}

		for _, line := range inv.Lines {
			if err := s.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*store.Invoice, error) {
	inv, err := scanInvoice(s.q(ctx).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if store.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Translate("invoices.get", err)
	}
	if inv.Lines, err = s.lines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, page, pageSize int) ([]store.Invoice, int, error) {
	var total int
	if err := s.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, store.Translate("invoices.list", err)
	}

	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY id DESC LIMIT $1 OFFSET $2`,
		pageSize, store.Offset(page, pageSize))
	if err != nil {
		return nil, 0, store.Translate("invoices.list", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (store.Invoice, error) {
		return scanInvoice(r)
	})
	if err != nil {
		return nil, 0, store.Translate("invoices.list", err)
	}

	for i := range out {
		if out[i].Lines, err = s.lines(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (s *Store) lines(ctx context.Context, invoiceID int64) ([]store.InvoiceLine, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT product_id, quantity, unit_price FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`,
		invoiceID)
	if err != nil {
		return nil, store.Translate("invoices.lines", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (store.InvoiceLine, error) {
		var l store.InvoiceLine
		err := r.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice)
		return l, err
	})
	if err != nil {
		return nil, store.Translate("invoices.lines", err)
	}
	return out, nil
}

func (s *Store) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, store.Translate("invoices.number_exists", err)
	}
	return exists, nil
}

func (s *Store) VoidInvoice(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var (
			number string
			status string
		)
		err := s.q(ctx).QueryRow(ctx,
			`SELECT number, status FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&number, &status)
		if store.IsNoRows(err) {
			return apperr.NewNotFound("Invoice", id)
		}
		if err != nil {
			return store.Translate("invoices.void", err)
		}
		if store.InvoiceStatus(status) == store.StatusVoid {
			return store.AlreadyVoid(number)
		}

		if _, err := s.q(ctx).Exec(ctx,
			`UPDATE invoices SET status = $1 WHERE id = $2`, string(store.StatusVoid), id); err != nil {
			return store.Translate("invoices.void", err)
		}
		if _, err := s.q(ctx).Exec(ctx,
			`UPDATE products p SET stock = p.stock + l.qty
			 FROM (SELECT product_id, SUM(quantity) AS qty FROM invoice_lines
			       WHERE invoice_id = $1 GROUP BY product_id) l
			 WHERE l.product_id = p.id`, id); err != nil {
			return store.Translate("products.restock", err)
		}
		return nil
	})
}
