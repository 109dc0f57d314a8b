package sqlitestore

import (
	"context"
	"time"

	"invoicing/internal/apperr"
	"invoicing/internal/store"
)

const invoiceColumns = `id, number, customer_name, customer_email, issue_date, currency,
	exchange_rate, total, status, created_at`

func scanInvoice(row scanner) (store.Invoice, error) {
	var (
		inv            store.Invoice
		issued, create string
		status         string
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerName, &inv.CustomerEmail, &issued,
		&inv.Currency, &inv.ExchangeRate, &inv.Total, &status, &create)
	if err != nil {
		return store.Invoice{}, err
	}
	inv.IssueDate, _ = time.Parse(time.DateOnly, issued)
	inv.Status = store.InvoiceStatus(status)
	inv.CreatedAt = parseTime(create)
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv store.Invoice) (store.Invoice, error) {
	inv.Status = store.StatusIssued
	if inv.ExchangeRate == 0 {
		inv.ExchangeRate = 1
	}
	created := s.stamp()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.q(ctx).ExecContext(ctx,
			`INSERT INTO invoices (number, customer_name, customer_email, issue_date, currency,
				exchange_rate, total, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.Number, inv.CustomerName, inv.CustomerEmail, inv.IssueDate.Format(time.DateOnly),
			inv.Currency, inv.ExchangeRate, inv.Total, string(inv.Status), created)
		if err != nil {
			return store.Translate("invoices.create", err)
		}
		if inv.ID, err = res.LastInsertId(); err != nil {
			return store.Translate("invoices.create", err)
		}

		for i, line := range inv.Lines {
			if _, err := s.q(ctx).ExecContext(ctx,
				`INSERT INTO invoice_lines (invoice_id, line_no, product_id, quantity, unit_price)
				 VALUES (?, ?, ?, ?, ?)`,
				inv.ID, i+1, line.ProductID, line.Quantity, line.UnitPrice); err != nil {
				return store.Translate("invoices.create_line", err)
			}
			if err := s.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.Invoice{}, err
	}

	inv.CreatedAt = parseTime(created)
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*store.Invoice, error) {
	inv, err := scanInvoice(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
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
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, store.Translate("invoices.list", err)
	}

	out, err := s.invoicePage(ctx, pageSize, store.Offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}

	// Lines are loaded after the page rows are closed; the in-memory
	// database has a single connection.
	for i := range out {
		if out[i].Lines, err = s.lines(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (s *Store) invoicePage(ctx context.Context, limit, offset int) ([]store.Invoice, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, store.Translate("invoices.list", err)
	}
	defer rows.Close()

	out := make([]store.Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, store.Translate("invoices.list", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Translate("invoices.list", err)
	}
	return out, nil
}

func (s *Store) lines(ctx context.Context, invoiceID int64) ([]store.InvoiceLine, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT product_id, quantity, unit_price FROM invoice_lines WHERE invoice_id = ? ORDER BY line_no`,
		invoiceID)
	if err != nil {
		return nil, store.Translate("invoices.lines", err)
	}
	defer rows.Close()

	var out []store.InvoiceLine
	for rows.Next() {
		var l store.InvoiceLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, store.Translate("invoices.lines", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Translate("invoices.lines", err)
	}
	return out, nil
}

func (s *Store) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE number = ?)`, number).Scan(&exists)
	if err != nil {
		return false, store.Translate("invoices.number_exists", err)
	}
	return exists, nil
}

func (s *Store) VoidInvoice(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.NewNotFound("Invoice", id)
		}
		if inv.Status == store.StatusVoid {
			return store.AlreadyVoid(inv.Number)
		}

		if _, err := s.q(ctx).ExecContext(ctx,
			`UPDATE invoices SET status = ? WHERE id = ?`, string(store.StatusVoid), id); err != nil {
			return store.Translate("invoices.void", err)
		}
		for _, l := range inv.Lines {
			if err := s.restock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}
