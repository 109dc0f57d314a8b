// Package catalog implements the product catalog use cases.
package catalog

import (
	"context"
	"strings"

	"invoicing/internal/store"
	"invoicing/internal/validate"
)

// Limits on product fields.
const (
	MinNameLength        = 2
	MaxNameLength        = 120
	MaxDescriptionLength = 1000
	MaxStock             = 100000
)

// ImageSaver stores a product image and returns its relative path.
// *images.Store satisfies it.
type ImageSaver interface {
	Save(productID int64, data []byte) (string, error)
}

// NewProduct is the input of Create.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Stock       int
}

// Service exposes the catalog operations.
type Service struct {
	products store.Products
	images   ImageSaver
}

// New returns a catalog service.
func New(products store.Products, images ImageSaver) *Service {
	return &Service{products: products, images: images}
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id int64) (store.Product, error) {
	if err := validate.ID(id, "ProductId"); err != nil {
		return store.Product{}, err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return store.Product{}, err
	}
	if err := validate.Found(p != nil, "Product", id); err != nil {
		return store.Product{}, err
	}
	return *p, nil
}

// Search lists products whose name or description contains term.
func (s *Service) Search(ctx context.Context, term string, page, pageSize int) (store.Page[store.Product], error) {
	if err := validate.SearchTerm(term, "SearchTerm"); err != nil {
		return store.Page[store.Product]{}, err
	}
	if err := validate.Pagination(page, pageSize); err != nil {
		return store.Page[store.Product]{}, err
	}

	items, total, err := s.products.SearchProducts(ctx, strings.TrimSpace(term), page, pageSize)
	if err != nil {
		return store.Page[store.Product]{}, err
	}
	return store.Page[store.Product]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Create validates and stores a new product. Names are unique ignoring case.
func (s *Service) Create(ctx context.Context, in NewProduct) (store.Product, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	checks := []func() error{
		func() error { return validate.NonEmpty(name, "Name", "nombre") },
		func() error { return validate.Length(name, "Name", "nombre", MinNameLength, MaxNameLength) },
		func() error {
			return validate.Length(description, "Description", "descripción", 0, MaxDescriptionLength)
		},
		func() error { return validate.PositivePrice(in.Price, "Price", "precio") },
		func() error { return validate.QuantityRange(in.Stock, "Stock", "stock", 0, MaxStock) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return store.Product{}, err
		}
	}

	taken, err := s.products.ProductNameExists(ctx, name)
	if err != nil {
		return store.Product{}, err
	}
	if err := validate.Unique(taken, "Name", "nombre", name); err != nil {
		return store.Product{}, err
	}

	// A concurrent insert can still win the race; the store reports it as
	// the same conflict.
	return s.products.CreateProduct(ctx, store.Product{
		Name:        name,
		Description: description,
		Price:       in.Price,
		Stock:       in.Stock,
	})
}

// AttachImage validates and stores data as the image of product id.
func (s *Service) AttachImage(ctx context.Context, id int64, data []byte) (store.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return store.Product{}, err
	}

	path, err := s.images.Save(id, data)
	if err != nil {
		return store.Product{}, err
	}
	if err := s.products.UpdateProductImage(ctx, id, path); err != nil {
		return store.Product{}, err
	}
	p.ImagePath = path
	return p, nil
}
