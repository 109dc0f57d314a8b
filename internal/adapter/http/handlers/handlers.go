// Package handlers is the HTTP glue of the catalog and invoice services.
// Handlers return errors; the error boundary turns them into responses.
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicing/internal/adapter/http/middleware"
	"invoicing/internal/apperr"
	"invoicing/internal/catalog"
	"invoicing/internal/invoicing"
	"invoicing/internal/store"
	"invoicing/internal/validate"
)

// Permissions checked by the write routes.
const (
	PermCatalogWrite  = "catalog:write"
	PermInvoicesWrite = "invoices:write"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Catalog is the product service; *catalog.Service satisfies it.
type Catalog interface {
	Get(ctx context.Context, id int64) (store.Product, error)
	Search(ctx context.Context, term string, page, pageSize int) (store.Page[store.Product], error)
	Create(ctx context.Context, in catalog.NewProduct) (store.Product, error)
	AttachImage(ctx context.Context, id int64, data []byte) (store.Product, error)
}

// Invoices is the invoice service; *invoicing.Service satisfies it.
type Invoices interface {
	Create(ctx context.Context, in invoicing.NewInvoice) (store.Invoice, error)
	Get(ctx context.Context, id int64) (store.Invoice, error)
	List(ctx context.Context, page, pageSize int) (store.Page[store.Invoice], error)
	Void(ctx context.Context, id int64) (store.Invoice, error)
}

var (
	_ Catalog  = (*catalog.Service)(nil)
	_ Invoices = (*invoicing.Service)(nil)
)

// Handlers serves the /api routes.
type Handlers struct {
	catalog   Catalog
	invoices  Invoices
	maxUpload int64
}

// New returns the handlers. maxUpload bounds the image bytes read from a
// request.
func New(c Catalog, i Invoices, maxUpload int64) *Handlers {
	return &Handlers{catalog: c, invoices: i, maxUpload: maxUpload}
}

// Register mounts the routes on r. guard (usually Auth, optionally followed
// by a rate limiter) protects every route that needs a caller; product
// reads are public.
func (h *Handlers) Register(r gin.IRouter, guard ...gin.HandlerFunc) {
	api := r.Group("/api")
	writeCatalog := chain(guard, middleware.RequirePermission(PermCatalogWrite))

	products := api.Group("/products")
	products.GET("", middleware.Handle(h.searchProducts))
	products.GET("/:id", middleware.Handle(h.getProduct))
	products.POST("", chain(writeCatalog, middleware.Handle(h.createProduct))...)
	products.POST("/:id/image", chain(writeCatalog, middleware.Handle(h.uploadImage))...)

	invoices := api.Group("/invoices", guard...)
	writeInvoices := middleware.RequirePermission(PermInvoicesWrite)
	invoices.GET("", middleware.Handle(h.listInvoices))
	invoices.GET("/:id", middleware.Handle(h.getInvoice))
	invoices.POST("", writeInvoices, middleware.Handle(h.createInvoice))
	invoices.POST("/:id/void", writeInvoices, middleware.Handle(h.voidInvoice))
}

func chain(base []gin.HandlerFunc, more ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(base)+len(more))
	return append(append(out, base...), more...)
}

type pageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

func bindPage(c *gin.Context) (pageQuery, error) {
	q := pageQuery{Page: defaultPage, PageSize: defaultPageSize}
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, validate.FromBindError(err)
	}
	return q, nil
}

func pathID(c *gin.Context, field string) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.NewFieldValidation(field, "El identificador debe ser un número entero",
			validate.CodeInvalidID, raw, apperr.WithCause(err))
	}
	return id, validate.ID(id, field)
}

// bindJSON decodes the body into v and runs its validate tags.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return validate.FromBindError(err)
	}
	return validate.Struct(v)
}

type pageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func toPage[S, T any](p store.Page[S], conv func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[T]{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}
