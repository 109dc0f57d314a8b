// Package invoicing implements issuing, listing and voiding invoices.
package invoicing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"invoicing/internal/apperr"
	"invoicing/internal/store"
	"invoicing/internal/validate"
)

// RuleInvoiceWithoutLines is raised when an invoice has no lines.
const RuleInvoiceWithoutLines = "INVOICE_WITHOUT_LINES"

// Field limits.
const (
	MinNumberLength   = 3
	MaxNumberLength   = 30
	MaxCustomerLength = 150
	DefaultCurrency   = "USD"
)

// RateSource converts from the base currency. *exchange.Client satisfies it.
type RateSource interface {
	Rate(ctx context.Context, currency string) (float64, error)
}

// Repository is the persistence the service needs.
type Repository interface {
	store.Products
	store.Invoices
}

// NewLine is one requested line of NewInvoice.
type NewLine struct {
	ProductID int64
	Quantity  int
}

// NewInvoice is the input of Create. An empty Currency means the base
// currency.
type NewInvoice struct {
	Number        string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	Currency      string
	Lines         []NewLine
}

// Config tunes the service.
type Config struct {
	BaseCurrency string
	// Rates may be nil, in which case only the base currency is accepted.
	Rates RateSource
	Now   func() time.Time
}

// Service exposes the invoice operations.
type Service struct {
	repo  Repository
	base  string
	rates RateSource
	now   func() time.Time
}

// New returns an invoice service.
func New(repo Repository, cfg Config) *Service {
	s := &Service{
		repo:  repo,
		base:  strings.ToUpper(strings.TrimSpace(cfg.BaseCurrency)),
		rates: cfg.Rates,
		now:   cfg.Now,
	}
	if s.base == "" {
		s.base = DefaultCurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates the request, prices the lines from the catalog in the
// invoice currency and stores the invoice, taking the stock.
func (s *Service) Create(ctx context.Context, in NewInvoice) (store.Invoice, error) {
	inv := store.Invoice{
		Number:        strings.TrimSpace(in.Number),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		IssueDate:     in.IssueDate,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
	}
	if inv.Currency == "" {
		inv.Currency = s.base
	}

	if err := s.checkHeader(inv); err != nil {
		return store.Invoice{}, err
	}
	requested, err := checkLines(in.Lines)
	if err != nil {
		return store.Invoice{}, err
	}

	taken, err := s.repo.InvoiceNumberExists(ctx, inv.Number)
	if err != nil {
		return store.Invoice{}, err
	}
	if err := validate.Unique(taken, "Number", "número de factura", inv.Number); err != nil {
		return store.Invoice{}, err
	}

	prices := make(map[int64]float64, len(requested))
	for _, l := range in.Lines {
		id, qty := l.ProductID, requested[l.ProductID]
		if _, seen := prices[id]; seen {
			continue
		}
		p, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return store.Invoice{}, err
		}
		if err := validate.Found(p != nil, "Product", id); err != nil {
			return store.Invoice{}, err
		}
		if p.Stock < qty {
			return store.Invoice{}, store.InsufficientStock(id, qty)
		}
		prices[id] = p.Price
	}

	inv.ExchangeRate, err = s.rate(ctx, inv.Currency)
	if err != nil {
		return store.Invoice{}, err
	}

	for _, l := range in.Lines {
		line := store.InvoiceLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: round2(prices[l.ProductID] * inv.ExchangeRate),
		}
		inv.Lines = append(inv.Lines, line)
		inv.Total += line.Subtotal()
	}
	inv.Total = round2(inv.Total)

	return s.repo.CreateInvoice(ctx, inv)
}

func (s *Service) checkHeader(inv store.Invoice) error {
	checks := []func() error{
		func() error { return validate.NonEmpty(inv.Number, "Number", "número de factura") },
		func() error {
			return validate.Length(inv.Number, "Number", "número de factura", MinNumberLength, MaxNumberLength)
		},
		func() error { return validate.NonEmpty(inv.CustomerName, "CustomerName", "cliente") },
		func() error {
			return validate.Length(inv.CustomerName, "CustomerName", "cliente", 1, MaxCustomerLength)
		},
		func() error { return validate.Email(inv.CustomerEmail, "CustomerEmail") },
		func() error {
			return validate.Date(inv.IssueDate, "IssueDate", "fecha de emisión", validate.AsOf(s.now()))
		},
		func() error { return validate.Length(inv.Currency, "Currency", "moneda", 3, 3) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// checkLines validates each line and returns the total quantity per product.
func checkLines(lines []NewLine) (map[int64]int, error) {
	if len(lines) == 0 {
		return nil, apperr.NewBusinessRule(RuleInvoiceWithoutLines, "invoice has no lines",
			apperr.WithUserMessage("La factura debe tener al menos una línea"))
	}

	requested := make(map[int64]int, len(lines))
	for i, l := range lines {
		if err := validate.ID(l.ProductID, fmt.Sprintf("Lines[%d].ProductId", i)); err != nil {
			return nil, err
		}
		if err := validate.Quantity(l.Quantity, fmt.Sprintf("Lines[%d].Quantity", i), "cantidad"); err != nil {
			return nil, err
		}
		requested[l.ProductID] += l.Quantity
	}
	return requested, nil
}

func (s *Service) rate(ctx context.Context, currency string) (float64, error) {
	if currency == s.base {
		return 1, nil
	}
	if s.rates == nil {
		return 0, apperr.NewConfiguration("EXCHANGE_URL",
			fmt.Sprintf("no rates service configured to convert %s to %s", s.base, currency),
			apperr.WithData(map[string]any{"currency": currency}))
	}
	return s.rates.Rate(ctx, currency)
}

// Get returns the invoice with the given id, lines included.
func (s *Service) Get(ctx context.Context, id int64) (store.Invoice, error) {
	if err := validate.ID(id, "InvoiceId"); err != nil {
		return store.Invoice{}, err
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return store.Invoice{}, err
	}
	if err := validate.Found(inv != nil, "Invoice", id); err != nil {
		return store.Invoice{}, err
	}
	return *inv, nil
}

// List returns invoices newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) (store.Page[store.Invoice], error) {
	if err := validate.Pagination(page, pageSize); err != nil {
		return store.Page[store.Invoice]{}, err
	}
	items, total, err := s.repo.ListInvoices(ctx, page, pageSize)
	if err != nil {
		return store.Page[store.Invoice]{}, err
	}
	return store.Page[store.Invoice]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Void cancels an issued invoice and returns its stock. Voiding twice is an
// invalid operation.
func (s *Service) Void(ctx context.Context, id int64) (store.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return store.Invoice{}, err
	}
	if inv.Status == store.StatusVoid {
		return store.Invoice{}, store.AlreadyVoid(inv.Number)
	}
	if err := s.repo.VoidInvoice(ctx, id); err != nil {
		return store.Invoice{}, err
	}
	inv.Status = store.StatusVoid
	return inv, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
