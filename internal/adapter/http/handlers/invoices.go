package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicing/internal/invoicing"
	"invoicing/internal/store"
)

type lineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type invoiceRequest struct {
	Number        string        `json:"number"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail"`
	IssueDate     string        `json:"issueDate" validate:"required,datetime=2006-01-02"`
	Currency      string        `json:"currency"`
	Lines         []lineRequest `json:"lines"`
}

type lineResponse struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type invoiceResponse struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	CustomerName  string         `json:"customerName"`
	CustomerEmail string         `json:"customerEmail"`
	IssueDate     string         `json:"issueDate"`
	Currency      string         `json:"currency"`
	ExchangeRate  float64        `json:"exchangeRate"`
	Total         float64        `json:"total"`
	Status        string         `json:"status"`
	Lines         []lineResponse `json:"lines"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toInvoice(inv store.Invoice) invoiceResponse {
	lines := make([]lineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, lineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return invoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		CustomerName:  inv.CustomerName,
		CustomerEmail: inv.CustomerEmail,
		IssueDate:     inv.IssueDate.Format(time.DateOnly),
		Currency:      inv.Currency,
		ExchangeRate:  inv.ExchangeRate,
		Total:         inv.Total,
		Status:        string(inv.Status),
		Lines:         lines,
		CreatedAt:     inv.CreatedAt,
	}
}

func (h *Handlers) createInvoice(c *gin.Context) error {
	var req invoiceRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	// The datetime tag has already checked the layout.
	issued, _ := time.ParseInLocation(time.DateOnly, req.IssueDate, time.Local)

	in := invoicing.NewInvoice{
		Number:        req.Number,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		IssueDate:     issued,
		Currency:      req.Currency,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, invoicing.NewLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	inv, err := h.invoices.Create(c.Request.Context(), in)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, toInvoice(inv))
	return nil
}

func (h *Handlers) getInvoice(c *gin.Context) error {
	id, err := pathID(c, "InvoiceId")
	if err != nil {
		return err
	}
	inv, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toInvoice(inv))
	return nil
}

func (h *Handlers) listInvoices(c *gin.Context) error {
	q, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.invoices.List(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toPage(page, toInvoice))
	return nil
}

func (h *Handlers) voidInvoice(c *gin.Context) error {
	id, err := pathID(c, "InvoiceId")
	if err != nil {
		return err
	}
	inv, err := h.invoices.Void(c.Request.Context(), id)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toInvoice(inv))
	return nil
}
