package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/models"
	"invoicer/internal/pagination"
	"invoicer/internal/services"
)

// InvoiceHandler handles invoice-related requests
type InvoiceHandler struct {
	invoiceService services.InvoiceServicer
	auditService   services.AuditServicer
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService services.InvoiceServicer, auditService services.AuditServicer) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, auditService: auditService}
}

// AddressRequest is a postal address in an invoice request.
type AddressRequest struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// BillFromRequest describes the sender.
type BillFromRequest struct {
	Address AddressRequest `json:"address"`
}

// ItemRequest is one invoice line.
type ItemRequest struct {
	Name     string          `json:"name" binding:"required,single_line"`
	Quantity int             `json:"quantity" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price" swaggertype:"number" binding:"required,money"`
}

// BillToRequest describes the client and the work billed.
type BillToRequest struct {
	ClientName         string         `json:"clientName" binding:"required,min=3,max=50,single_line"`
	ClientEmail        string         `json:"clientEmail" binding:"required,email"`
	Address            AddressRequest `json:"address"`
	InvoiceDate        string         `json:"invoiceDate" example:"2024-01-31"`
	PaymentTerms       string         `json:"paymentTerms" binding:"required,payment_terms" example:"Net 30 days"`
	ProjectDescription string         `json:"projectDescription" binding:"required,min=5,max=150"`
	Items              []ItemRequest  `json:"items" binding:"required,min=1,dive"`
}

// InvoiceRequest is the body of invoice create and update.
type InvoiceRequest struct {
	Status   string          `json:"status" binding:"omitempty,invoice_status" example:"Pending"`
	BillFrom BillFromRequest `json:"billFrom"`
	BillTo   BillToRequest   `json:"billTo"`
}

// AddressResponse is a postal address.
type AddressResponse struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// BillFromResponse describes the sender.
type BillFromResponse struct {
	Address AddressResponse `json:"address"`
}

// ItemResponse is one invoice line with its total.
type ItemResponse struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price" swaggertype:"number"`
	Total    decimal.Decimal `json:"total" swaggertype:"number"`
}

// BillToResponse describes the client and the work billed.
type BillToResponse struct {
	ClientName         string          `json:"clientName"`
	ClientEmail        string          `json:"clientEmail"`
	Address            AddressResponse `json:"address"`
	InvoiceDate        time.Time       `json:"invoiceDate"`
	PaymentTerms       string          `json:"paymentTerms"`
	ProjectDescription string          `json:"projectDescription"`
	Items              []ItemResponse  `json:"items"`
}

// InvoiceResponse is an invoice with its derived fields.
type InvoiceResponse struct {
	ID            string           `json:"_id"`
	UserID        string           `json:"userId"`
	InvoiceNumber string           `json:"invoiceNumber" example:"E0F1"`
	Status        string           `json:"status" example:"Pending"`
	PaidAt        *time.Time       `json:"paidAt"`
	BillFrom      BillFromResponse `json:"billFrom"`
	BillTo        BillToResponse   `json:"billTo"`
	AmountDue     decimal.Decimal  `json:"amountDue" swaggertype:"number"`
	PaymentDue    time.Time        `json:"paymentDue"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// SingleInvoiceResponse wraps one invoice.
type SingleInvoiceResponse struct {
	Success bool            `json:"success" example:"true"`
	Invoice InvoiceResponse `json:"invoice"`
}

// InvoiceListResponse is one page of invoices.
type InvoiceListResponse struct {
	Success     bool              `json:"success" example:"true"`
	Invoices    []InvoiceResponse `json:"invoices"`
	TotalCount  int64             `json:"totalCount"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	PageSize    int               `json:"pageSize"`
}

// CreateInvoice handles invoice creation
// @Summary     Create invoice
// @Description Create an invoice. Status defaults to Pending and may only be Draft or Pending.
// @Tags        invoices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body InvoiceRequest true "Invoice"
// @Success     201 {object} SingleInvoiceResponse
// @Failure     400 {object} ErrorResponse "Invalid input or status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in, ok := bindInvoice(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionCreateInvoice,
		ResourceType: models.ResourceInvoice,
		ResourceID:   inv.ID,
		IPAddress:    c.ClientIP(),
		Changes:      map[string]any{"status": inv.Status, "amountDue": inv.AmountDue().String()},
	})

	c.JSON(http.StatusCreated, SingleInvoiceResponse{Success: true, Invoice: toInvoiceResponse(inv)})
}

// ListInvoices returns one page of the caller's invoices
// @Summary     List invoices
// @Description Page through the caller's invoices in creation order, optionally filtered by status
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       page     query int    false "Page number (default 1)"
// @Param       pageSize query int    false "Items per page (default 10, max 100)"
// @Param       status   query string false "Draft, Pending or Paid"
// @Success     200 {object} InvoiceListResponse
// @Failure     400 {object} ErrorResponse "Invalid status filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Page out of range"
// @Router      /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page := pagination.FromQuery(c.Query("page"), c.Query("pageSize"))
	result, err := h.invoiceService.ListInvoices(c.Request.Context(), userID, page, c.Query("status"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := pagination.Map(*result, func(inv models.Invoice) InvoiceResponse {
		return toInvoiceResponse(&inv)
	})
	c.JSON(http.StatusOK, InvoiceListResponse{
		Success:     true,
		Invoices:    resp.Items,
		TotalCount:  resp.TotalCount,
		TotalPages:  resp.TotalPages,
		CurrentPage: resp.CurrentPage,
		PageSize:    resp.PageSize,
	})
}

// GetInvoice returns one invoice
// @Summary     Get invoice
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Invoice ID"
// @Success     200 {object} SingleInvoiceResponse
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Router      /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SingleInvoiceResponse{Success: true, Invoice: toInvoiceResponse(inv)})
}

// UpdateInvoice replaces an invoice's fields
// @Summary     Update invoice
// @Description Replace every field and item of an invoice. Status may only move forward and never to Paid.
// @Tags        invoices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string         true "Invoice ID"
// @Param       request body InvoiceRequest true "Invoice"
// @Success     200 {object} SingleInvoiceResponse
// @Failure     400 {object} ErrorResponse "Invalid input or status transition"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Router      /invoices/{id} [patch]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in, ok := bindInvoice(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.UpdateInvoice(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionUpdateInvoice,
		ResourceType: models.ResourceInvoice,
		ResourceID:   inv.ID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, SingleInvoiceResponse{Success: true, Invoice: toInvoiceResponse(inv)})
}

// DeleteInvoice removes an invoice
// @Summary     Delete invoice
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Invoice ID"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Router      /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	invoiceID := c.Param("id")
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), userID, invoiceID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionDeleteInvoice,
		ResourceType: models.ResourceInvoice,
		ResourceID:   invoiceID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Invoice deleted successfully"})
}

// MarkAsPaid moves an invoice to Paid
// @Summary     Mark invoice as paid
// @Description Stamp paidAt and move the invoice to Paid. Already paid invoices are returned unchanged.
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Invoice ID"
// @Success     200 {object} SingleInvoiceResponse
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Router      /invoices/{id}/markAsPaid [patch]
func (h *InvoiceHandler) MarkAsPaid(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.invoiceService.MarkAsPaid(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionMarkInvoicePaid,
		ResourceType: models.ResourceInvoice,
		ResourceID:   inv.ID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, SingleInvoiceResponse{Success: true, Invoice: toInvoiceResponse(inv)})
}

// SendReminder emails the client about an unpaid invoice
// @Summary     Send payment reminder
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Invoice ID"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invoice already paid"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Failure     500 {object} ErrorResponse "Email could not be sent"
// @Router      /invoices/{id}/reminder [post]
func (h *InvoiceHandler) SendReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.invoiceService.SendReminder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionSendReminder,
		ResourceType: models.ResourceInvoice,
		ResourceID:   inv.ID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "Reminder sent to " + inv.ClientEmail,
	})
}

// invoiceDateLayouts are the accepted invoiceDate formats.
var invoiceDateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func bindInvoice(c *gin.Context) (services.InvoiceInput, bool) {
	var req InvoiceRequest
	if !bindJSON(c, &req) {
		return services.InvoiceInput{}, false
	}

	in := services.InvoiceInput{
		Status:             req.Status,
		SenderAddress:      toAddress(req.BillFrom.Address),
		ClientName:         req.BillTo.ClientName,
		ClientEmail:        req.BillTo.ClientEmail,
		ClientAddress:      toAddress(req.BillTo.Address),
		PaymentTerms:       req.BillTo.PaymentTerms,
		ProjectDescription: req.BillTo.ProjectDescription,
		Items:              make([]services.ItemInput, len(req.BillTo.Items)),
	}
	for i, item := range req.BillTo.Items {
		in.Items[i] = services.ItemInput{Name: item.Name, Quantity: item.Quantity, Price: item.Price}
	}

	if raw := strings.TrimSpace(req.BillTo.InvoiceDate); raw != "" {
		date, ok := parseInvoiceDate(raw)
		if !ok {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invoiceDate must be a valid date"))
			return services.InvoiceInput{}, false
		}
		in.InvoiceDate = &date
	}
	return in, true
}

func parseInvoiceDate(raw string) (time.Time, bool) {
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func toAddress(a AddressRequest) models.Address {
	return models.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

func toAddressResponse(a models.Address) AddressResponse {
	return AddressResponse{Street: a.Street, City: a.City, PostalCode: a.PostalCode, Country: a.Country}
}

func toInvoiceResponse(inv *models.Invoice) InvoiceResponse {
	items := make([]ItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = ItemResponse{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Total(),
		}
	}

	return InvoiceResponse{
		ID:            inv.ID,
		UserID:        inv.UserID,
		InvoiceNumber: inv.InvoiceNumber(),
		Status:        string(inv.Status),
		PaidAt:        inv.PaidAt,
		BillFrom:      BillFromResponse{Address: toAddressResponse(inv.SenderAddress)},
		BillTo: BillToResponse{
			ClientName:         inv.ClientName,
			ClientEmail:        inv.ClientEmail,
			Address:            toAddressResponse(inv.ClientAddress),
			InvoiceDate:        inv.InvoiceDate,
			PaymentTerms:       string(inv.PaymentTerms),
			ProjectDescription: inv.ProjectDescription,
			Items:              items,
		},
		AmountDue:  inv.AmountDue(),
		PaymentDue: inv.PaymentDue(),
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
	}
}
