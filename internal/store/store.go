// Package store defines the persistence contracts of the invoicing service
// and the translation of driver failures into apperr values. Postgres and
// SQLite implementations live in the sub-packages.
package store

import (
	"context"
	"embed"
	"time"
)

// Migrations holds the schema for both drivers, under PostgresMigrations
// and SQLiteMigrations.
//
//go:embed migrations
var Migrations embed.FS

const (
	PostgresMigrations = "migrations/postgres"
	SQLiteMigrations   = "migrations/sqlite"
)

// Product is a catalog entry.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Stock       int
	ImagePath   string
	CreatedAt   time.Time
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusIssued InvoiceStatus = "issued"
	StatusVoid   InvoiceStatus = "void"
)

// InvoiceLine is one product row of an invoice. UnitPrice is in the
// invoice currency.
type InvoiceLine struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
}

// Subtotal returns quantity times unit price.
func (l InvoiceLine) Subtotal() float64 { return float64(l.Quantity) * l.UnitPrice }

// Invoice is an issued sale document.
type Invoice struct {
	ID            int64
	Number        string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	Currency      string
	ExchangeRate  float64
	Total         float64
	Status        InvoiceStatus
	Lines         []InvoiceLine
	CreatedAt     time.Time
}

// Products persists the catalog. Lookups return (nil, nil) when the row
// does not exist.
type Products interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	SearchProducts(ctx context.Context, term string, page, pageSize int) ([]Product, int, error)
	ProductNameExists(ctx context.Context, name string) (bool, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProductImage(ctx context.Context, id int64, path string) error
	// DecrementStock fails with an INSUFFICIENT_STOCK business rule error
	// when fewer than qty units are left.
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

// Invoices persists invoices and their lines.
type Invoices interface {
	// CreateInvoice stores the invoice and its lines and takes the stock in
	// one transaction.
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, page, pageSize int) ([]Invoice, int, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	// VoidInvoice marks an issued invoice void and returns its stock.
	VoidInvoice(ctx context.Context, id int64) error
}

// Store is the full data-access surface.
type Store interface {
	Products
	Invoices
	Ping(ctx context.Context) error
	Close() error
}

// Offset converts a 1-based page into a row offset.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// Page is one page of a listing together with the total row count.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}
