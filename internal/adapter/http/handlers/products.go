package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicing/internal/apperr"
	"invoicing/internal/catalog"
	"invoicing/internal/store"
	"invoicing/internal/validate"
)

const imageField = "image"

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImagePath   string    `json:"imagePath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProduct(p store.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImagePath:   p.ImagePath,
		CreatedAt:   p.CreatedAt,
	}
}

func (h *Handlers) getProduct(c *gin.Context) error {
	id, err := pathID(c, "ProductId")
	if err != nil {
		return err
	}
	p, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toProduct(p))
	return nil
}

func (h *Handlers) searchProducts(c *gin.Context) error {
	q, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.catalog.Search(c.Request.Context(), c.Query("q"), q.Page, q.PageSize)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toPage(page, toProduct))
	return nil
}

func (h *Handlers) createProduct(c *gin.Context) error {
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	p, err := h.catalog.Create(c.Request.Context(), catalog.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, toProduct(p))
	return nil
}

// uploadImage reads the multipart field "image". At most maxUpload+1 bytes
// are read so the size check downstream still sees oversized files.
func (h *Handlers) uploadImage(c *gin.Context) error {
	id, err := pathID(c, "ProductId")
	if err != nil {
		return err
	}

	fh, err := c.FormFile(imageField)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return validate.FromBindError(err)
	}
	if err != nil {
		return apperr.NewFieldValidation(imageField, "Debe adjuntar una imagen en el campo image",
			validate.CodeRequired, nil, apperr.WithCause(err))
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.NewFileOperation(fh.Filename, "open", apperr.WithCause(err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return apperr.NewFileOperation(fh.Filename, "read", apperr.WithCause(err))
	}

	p, err := h.catalog.AttachImage(c.Request.Context(), id, data)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toProduct(p))
	return nil
}
