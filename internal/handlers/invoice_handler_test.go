package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/middleware"
	"invoicer/internal/models"
	"invoicer/internal/pagination"
	"invoicer/internal/services"
)

// --- mock service ---

var _ services.InvoiceServicer = (*mockInvoiceService)(nil)

type mockInvoiceService struct {
	createInvoiceFn func(userID string, in services.InvoiceInput) (*models.Invoice, error)
	listInvoicesFn  func(userID string, page pagination.PageRequest, status string) (*pagination.PageResponse[models.Invoice], error)
	getInvoiceFn    func(userID, invoiceID string) (*models.Invoice, error)
	updateInvoiceFn func(userID, invoiceID string, in services.InvoiceInput) (*models.Invoice, error)
	deleteInvoiceFn func(userID, invoiceID string) error
	markAsPaidFn    func(userID, invoiceID string) (*models.Invoice, error)
	sendReminderFn  func(userID, invoiceID string) (*models.Invoice, error)
}

func (m *mockInvoiceService) CreateInvoice(_ context.Context, userID string, in services.InvoiceInput) (*models.Invoice, error) {
	if m.createInvoiceFn != nil {
		return m.createInvoiceFn(userID, in)
	}
	return sampleInvoice(), nil
}

func (m *mockInvoiceService) ListInvoices(_ context.Context, userID string, page pagination.PageRequest, status string) (*pagination.PageResponse[models.Invoice], error) {
	if m.listInvoicesFn != nil {
		return m.listInvoicesFn(userID, page, status)
	}
	resp := pagination.NewPageResponse[models.Invoice](nil, page, 0)
	return &resp, nil
}

func (m *mockInvoiceService) GetInvoice(_ context.Context, userID, invoiceID string) (*models.Invoice, error) {
	if m.getInvoiceFn != nil {
		return m.getInvoiceFn(userID, invoiceID)
	}
	return sampleInvoice(), nil
}

func (m *mockInvoiceService) UpdateInvoice(_ context.Context, userID, invoiceID string, in services.InvoiceInput) (*models.Invoice, error) {
	if m.updateInvoiceFn != nil {
		return m.updateInvoiceFn(userID, invoiceID, in)
	}
	return sampleInvoice(), nil
}

func (m *mockInvoiceService) DeleteInvoice(_ context.Context, userID, invoiceID string) error {
	if m.deleteInvoiceFn != nil {
		return m.deleteInvoiceFn(userID, invoiceID)
	}
	return nil
}

func (m *mockInvoiceService) MarkAsPaid(_ context.Context, userID, invoiceID string) (*models.Invoice, error) {
	if m.markAsPaidFn != nil {
		return m.markAsPaidFn(userID, invoiceID)
	}
	return sampleInvoice(), nil
}

func (m *mockInvoiceService) SendReminder(_ context.Context, userID, invoiceID string) (*models.Invoice, error) {
	if m.sendReminderFn != nil {
		return m.sendReminderFn(userID, invoiceID)
	}
	return sampleInvoice(), nil
}

// --- helpers ---

const sampleInvoiceID = "0190c3a2-7b1d-7c3e-9f00-5a6b7c8de0f1"

const validInvoiceBody = `{
	"status": "Draft",
	"billFrom": {"address": {"street": "19 Union Terrace", "city": "London", "postalCode": "E1 3EZ", "country": "United Kingdom"}},
	"billTo": {
		"clientName": "Alex Grim",
		"clientEmail": "AlexGrim@Mail.com",
		"address": {"street": "84 Church Way", "city": "Bradford", "postalCode": "BD1 9PB", "country": "United Kingdom"},
		"invoiceDate": "2024-01-31",
		"paymentTerms": "net 30 days",
		"projectDescription": "Graphic Design",
		"items": [{"name": "Design", "quantity": 2, "price": 700}]
	}
}`

func sampleInvoice() *models.Invoice {
	return &models.Invoice{
		Base:          models.Base{ID: sampleInvoiceID},
		UserID:        "u-1",
		Status:        models.StatusPending,
		SenderAddress: models.Address{Street: "19 Union Terrace", City: "London", PostalCode: "E1 3EZ", Country: "United Kingdom"},
		ClientName:    "Alex Grim",
		ClientEmail:   "alexgrim@mail.com",
		InvoiceDate:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		PaymentTerms:  models.TermsNet30,
		Items: []models.InvoiceItem{
			{Name: "Design", Quantity: 2, Price: decimal.NewFromInt(700)},
			{Name: "Hosting", Quantity: 1, Price: decimal.RequireFromString("13.29")},
		},
	}
}

func setupInvoiceRouter(handler *InvoiceHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(apperrors.ModeTest))
	inv := r.Group("/invoices", injectUserID("u-1"))
	inv.GET("", handler.ListInvoices)
	inv.POST("", handler.CreateInvoice)
	inv.GET("/:id", handler.GetInvoice)
	inv.PATCH("/:id", handler.UpdateInvoice)
	inv.DELETE("/:id", handler.DeleteInvoice)
	inv.PATCH("/:id/markAsPaid", handler.MarkAsPaid)
	inv.POST("/:id/reminder", handler.SendReminder)
	return r
}

// --- tests ---

func TestInvoiceHandler_CreateInvoice(t *testing.T) {
	t.Run("returns 201 with derived fields", func(t *testing.T) {
		var got services.InvoiceInput
		invSvc := &mockInvoiceService{
			createInvoiceFn: func(userID string, in services.InvoiceInput) (*models.Invoice, error) {
				got = in
				inv := sampleInvoice()
				inv.UserID = userID
				return inv, nil
			},
		}
		audit := &mockAuditService{}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, audit))

		rec := doRequest(r, "POST", "/invoices", validInvoiceBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Status != "Draft" || got.PaymentTerms != "net 30 days" {
			t.Errorf("unexpected input %+v", got)
		}
		if got.InvoiceDate == nil || !got.InvoiceDate.Equal(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected invoice date %v", got.InvoiceDate)
		}
		if len(got.Items) != 1 || !got.Items[0].Price.Equal(decimal.NewFromInt(700)) {
			t.Errorf("unexpected items %+v", got.Items)
		}
		if got.SenderAddress.City != "London" || got.ClientAddress.City != "Bradford" {
			t.Errorf("unexpected addresses %+v / %+v", got.SenderAddress, got.ClientAddress)
		}

		invoice := parseJSON(t, rec)["invoice"].(map[string]interface{})
		if invoice["amountDue"] != 1413.29 {
			t.Errorf("expected amountDue 1413.29, got %v", invoice["amountDue"])
		}
		if invoice["invoiceNumber"] != "E0F1" {
			t.Errorf("expected invoiceNumber E0F1, got %v", invoice["invoiceNumber"])
		}
		if invoice["paymentDue"] != "2024-02-29T00:00:00Z" {
			t.Errorf("expected paymentDue 2024-02-29, got %v", invoice["paymentDue"])
		}
		billTo := invoice["billTo"].(map[string]interface{})
		items := billTo["items"].([]interface{})
		if first := items[0].(map[string]interface{}); first["total"] != float64(1400) {
			t.Errorf("expected item total 1400, got %v", first["total"])
		}
		billFrom := invoice["billFrom"].(map[string]interface{})
		if billFrom["address"].(map[string]interface{})["street"] != "19 Union Terrace" {
			t.Errorf("unexpected billFrom %v", billFrom)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_INVOICE" {
			t.Errorf("expected CREATE_INVOICE audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 400 when status is Paid", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			createInvoiceFn: func(string, services.InvoiceInput) (*models.Invoice, error) {
				return nil, apperrors.ErrInvalidStatus
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/invoices", `{
			"status": "Paid",
			"billFrom": {"address": {"street": "a", "city": "b", "postalCode": "c", "country": "d"}},
			"billTo": {"clientName": "Alex", "clientEmail": "a@b.com",
				"address": {"street": "a", "city": "b", "postalCode": "c", "country": "d"},
				"paymentTerms": "Net 1 day", "projectDescription": "Logo work",
				"items": [{"name": "Design", "quantity": 1, "price": 10}]}
		}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Status must be 'draft' or 'pending' at creation")
	})

	validationCases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing items", `{"billFrom":{"address":{"street":"a","city":"b","postalCode":"c","country":"d"}},"billTo":{"clientName":"Alex","clientEmail":"a@b.com","address":{"street":"a","city":"b","postalCode":"c","country":"d"},"paymentTerms":"Net 1 day","projectDescription":"Logo work","items":[]}}`, "items must contain at least 1 item"},
		{"bad terms", `{"billFrom":{"address":{"street":"a","city":"b","postalCode":"c","country":"d"}},"billTo":{"clientName":"Alex","clientEmail":"a@b.com","address":{"street":"a","city":"b","postalCode":"c","country":"d"},"paymentTerms":"Net 60 days","projectDescription":"Logo work","items":[{"name":"x","quantity":1,"price":1}]}}`, "paymentTerms must be one of 'Net 1 day', 'Net 7 days', 'Net 14 days' or 'Net 30 days'"},
		{"three decimals", `{"billFrom":{"address":{"street":"a","city":"b","postalCode":"c","country":"d"}},"billTo":{"clientName":"Alex","clientEmail":"a@b.com","address":{"street":"a","city":"b","postalCode":"c","country":"d"},"paymentTerms":"Net 1 day","projectDescription":"Logo work","items":[{"name":"x","quantity":1,"price":1.005}]}}`, "price must be a positive amount with at most 2 decimal places"},
		{"missing sender street", `{"billFrom":{"address":{"city":"b","postalCode":"c","country":"d"}},"billTo":{"clientName":"Alex","clientEmail":"a@b.com","address":{"street":"a","city":"b","postalCode":"c","country":"d"},"paymentTerms":"Net 1 day","projectDescription":"Logo work","items":[{"name":"x","quantity":1,"price":1}]}}`, "street is a required field"},
		{"bad date", `{"billFrom":{"address":{"street":"a","city":"b","postalCode":"c","country":"d"}},"billTo":{"clientName":"Alex","clientEmail":"a@b.com","address":{"street":"a","city":"b","postalCode":"c","country":"d"},"invoiceDate":"31/01/2024","paymentTerms":"Net 1 day","projectDescription":"Logo work","items":[{"name":"x","quantity":1,"price":1}]}}`, "invoiceDate must be a valid date"},
	}
	for _, tc := range validationCases {
		t.Run("returns 400 on "+tc.name, func(t *testing.T) {
			called := false
			invSvc := &mockInvoiceService{
				createInvoiceFn: func(string, services.InvoiceInput) (*models.Invoice, error) {
					called = true
					return sampleInvoice(), nil
				},
			}
			r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

			rec := doRequest(r, "POST", "/invoices", tc.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertMessage(t, parseJSON(t, rec), tc.message)
			if called {
				t.Error("service must not be called on invalid input")
			}
		})
	}

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewInvoiceHandler(&mockInvoiceService{}, &mockAuditService{})
		r := gin.New()
		r.Use(middleware.ErrorHandler(apperrors.ModeTest))
		r.POST("/invoices", handler.CreateInvoice)

		rec := doRequest(r, "POST", "/invoices", validInvoiceBody)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestInvoiceHandler_ListInvoices(t *testing.T) {
	t.Run("passes page and filter and shapes the page", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotStatus string
		invSvc := &mockInvoiceService{
			listInvoicesFn: func(_ string, page pagination.PageRequest, status string) (*pagination.PageResponse[models.Invoice], error) {
				gotPage, gotStatus = page, status
				resp := pagination.NewPageResponse([]models.Invoice{*sampleInvoice()}, page, 3)
				return &resp, nil
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices?page=2&pageSize=2&status=pending", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 2 || gotStatus != "pending" {
			t.Errorf("unexpected arguments %+v %q", gotPage, gotStatus)
		}
		result := parseJSON(t, rec)
		if result["totalCount"] != float64(3) || result["totalPages"] != float64(2) || result["currentPage"] != float64(2) {
			t.Errorf("unexpected metadata %v", result)
		}
		if invoices := result["invoices"].([]interface{}); len(invoices) != 1 {
			t.Errorf("expected 1 invoice, got %d", len(invoices))
		}
	})

	t.Run("coerces bad page values", func(t *testing.T) {
		var gotPage pagination.PageRequest
		invSvc := &mockInvoiceService{
			listInvoicesFn: func(_ string, page pagination.PageRequest, _ string) (*pagination.PageResponse[models.Invoice], error) {
				gotPage = page
				resp := pagination.NewPageResponse[models.Invoice](nil, page, 0)
				return &resp, nil
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices?page=-3&pageSize=abc", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotPage.Page != 1 || gotPage.PageSize != pagination.DefaultPageSize {
			t.Errorf("expected defaults, got %+v", gotPage)
		}
		if invoices, ok := parseJSON(t, rec)["invoices"].([]interface{}); !ok || len(invoices) != 0 {
			t.Error("expected an empty invoices array")
		}
	})

	t.Run("returns 404 past the last page", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			listInvoicesFn: func(_ string, page pagination.PageRequest, _ string) (*pagination.PageResponse[models.Invoice], error) {
				return nil, page.Check(3)
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices?page=5&pageSize=2", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Page 5 does not exist. Valid pages: 1 to 2")
	})

	t.Run("returns 400 on invalid status filter", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			listInvoicesFn: func(string, pagination.PageRequest, string) (*pagination.PageResponse[models.Invoice], error) {
				return nil, apperrors.ErrInvalidFilter
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices?status=overdue", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestInvoiceHandler_GetInvoice(t *testing.T) {
	t.Run("scopes the lookup to the caller", func(t *testing.T) {
		var gotUser, gotID string
		invSvc := &mockInvoiceService{
			getInvoiceFn: func(userID, invoiceID string) (*models.Invoice, error) {
				gotUser, gotID = userID, invoiceID
				return sampleInvoice(), nil
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices/"+sampleInvoiceID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotUser != "u-1" || gotID != sampleInvoiceID {
			t.Errorf("unexpected lookup (%q, %q)", gotUser, gotID)
		}
	})

	t.Run("returns 404 for other owners", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			getInvoiceFn: func(string, string) (*models.Invoice, error) {
				return nil, apperrors.ErrInvoiceNotFound
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices/"+sampleInvoiceID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Invoice for given id does not exist")
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			getInvoiceFn: func(string, string) (*models.Invoice, error) {
				return nil, apperrors.ErrInvalidInvoiceID
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invoices/not-a-uuid", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Invalid invoice id")
	})
}

func TestInvoiceHandler_UpdateInvoice(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var gotID string
		invSvc := &mockInvoiceService{
			updateInvoiceFn: func(_ string, invoiceID string, _ services.InvoiceInput) (*models.Invoice, error) {
				gotID = invoiceID
				return sampleInvoice(), nil
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/invoices/"+sampleInvoiceID, validInvoiceBody)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != sampleInvoiceID {
			t.Errorf("unexpected id %q", gotID)
		}
	})

	t.Run("returns 400 on backwards transition", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			updateInvoiceFn: func(string, string, services.InvoiceInput) (*models.Invoice, error) {
				return nil, apperrors.ErrInvalidStatusMove
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/invoices/"+sampleInvoiceID, validInvoiceBody)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_STATUS_TRANSITION")
	})
}

func TestInvoiceHandler_DeleteInvoice(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupInvoiceRouter(NewInvoiceHandler(&mockInvoiceService{}, audit))

		rec := doRequest(r, "DELETE", "/invoices/"+sampleInvoiceID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "DELETE_INVOICE" {
			t.Errorf("expected DELETE_INVOICE audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			deleteInvoiceFn: func(string, string) error { return apperrors.ErrInvoiceNotFound },
		}
		audit := &mockAuditService{}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, audit))

		rec := doRequest(r, "DELETE", "/invoices/"+sampleInvoiceID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if len(audit.actions) != 0 {
			t.Error("failed deletes must not be audited")
		}
	})
}

func TestInvoiceHandler_MarkAsPaid(t *testing.T) {
	paidAt := time.Date(2024, time.February, 10, 9, 30, 0, 0, time.UTC)
	invSvc := &mockInvoiceService{
		markAsPaidFn: func(string, string) (*models.Invoice, error) {
			inv := sampleInvoice()
			inv.Status = models.StatusPaid
			inv.PaidAt = &paidAt
			return inv, nil
		},
	}
	r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

	rec := doRequest(r, "PATCH", "/invoices/"+sampleInvoiceID+"/markAsPaid", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	invoice := parseJSON(t, rec)["invoice"].(map[string]interface{})
	if invoice["status"] != "Paid" || invoice["paidAt"] != "2024-02-10T09:30:00Z" {
		t.Errorf("unexpected invoice %v", invoice)
	}
}

func TestInvoiceHandler_SendReminder(t *testing.T) {
	t.Run("returns 200 naming the recipient", func(t *testing.T) {
		r := setupInvoiceRouter(NewInvoiceHandler(&mockInvoiceService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/invoices/"+sampleInvoiceID+"/reminder", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Reminder sent to alexgrim@mail.com")
	})

	t.Run("returns 400 for paid invoices", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			sendReminderFn: func(string, string) (*models.Invoice, error) {
				return nil, apperrors.ErrInvoiceAlreadyPaid
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/invoices/"+sampleInvoiceID+"/reminder", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Invoice is Paid, no reminder needed")
	})

	t.Run("returns 500 when the email fails", func(t *testing.T) {
		invSvc := &mockInvoiceService{
			sendReminderFn: func(string, string) (*models.Invoice, error) {
				return nil, apperrors.ErrNotificationFailed
			},
		}
		r := setupInvoiceRouter(NewInvoiceHandler(invSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/invoices/"+sampleInvoiceID+"/reminder", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOTIFICATION_FAILED")
	})
}
