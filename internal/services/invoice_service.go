package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/models"
	"invoicer/internal/notify"
	"invoicer/internal/pagination"
	"invoicer/internal/uuid"
)

// invoiceService handles invoice-related business logic.
type invoiceService struct {
	db       *gorm.DB
	notifier notify.Notifier
	now      func() time.Time
}

// NewInvoiceService creates a new InvoiceServicer.
func NewInvoiceService(db *gorm.DB, notifier notify.Notifier) InvoiceServicer {
	return &invoiceService{db: db, notifier: notifier, now: time.Now}
}

// CreateInvoice stores a new invoice owned by userID and emails the client.
// Status defaults to Pending; Paid is only reachable through MarkAsPaid.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, in InvoiceInput) (*models.Invoice, error) {
	status := models.StatusPending
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := models.ParseInvoiceStatus(in.Status)
		if !ok || !parsed.AllowedAtCreation() {
			return nil, apperrors.ErrInvalidStatus
		}
		status = parsed
	}

	inv := &models.Invoice{
		UserID: userID,
		Status: status,
	}
	if err := s.apply(inv, in); err != nil {
		return nil, err
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = s.now()
	}

	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notifier.InvoiceCreated(ctx, inv, s.senderName(ctx, userID))
	return inv, nil
}

// ListInvoices returns one page of the user's invoices in creation order,
// optionally filtered by status.
func (s *invoiceService) ListInvoices(ctx context.Context, userID string, page pagination.PageRequest, status string) (*pagination.PageResponse[models.Invoice], error) {
	page.Defaults()

	var filter models.InvoiceStatus
	if strings.TrimSpace(status) != "" {
		parsed, ok := models.ParseInvoiceStatus(status)
		if !ok {
			return nil, apperrors.ErrInvalidFilter
		}
		filter = parsed
	}

	owned := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if filter != "" {
			db = db.Where("status = ?", filter)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Scopes(owned).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := page.Check(total); err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Scopes(owned, pagination.Paginate(page)).
		Preload("Items", orderItems).
		Order("created_at ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(invoices, page, total)
	return &resp, nil
}

// GetInvoice returns an invoice owned by userID.
func (s *invoiceService) GetInvoice(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
	if !uuid.IsValid(invoiceID) {
		return nil, apperrors.ErrInvalidInvoiceID
	}

	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &inv, nil
}

// UpdateInvoice replaces every editable field and the item list. A status in
// the request may only move forward and never straight to Paid.
func (s *invoiceService) UpdateInvoice(ctx context.Context, userID, invoiceID string, in InvoiceInput) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Status) != "" {
		next, ok := models.ParseInvoiceStatus(in.Status)
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be one of 'Draft', 'Pending' or 'Paid'")
		}
		if next == models.StatusPaid && !inv.IsPaid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusMove, "Use markAsPaid to mark an invoice as paid")
		}
		if !inv.Status.CanTransitionTo(next) {
			return nil, apperrors.ErrInvalidStatusMove
		}
		inv.Status = next
	}

	if err := s.apply(inv, in); err != nil {
		return nil, err
	}

	items := inv.Items
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = inv.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	inv.Items = items
	return inv, nil
}

// DeleteInvoice removes an invoice and its items.
func (s *invoiceService) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	inv, err := s.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, "id = ?", inv.ID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MarkAsPaid moves an invoice to Paid and stamps paidAt. Marking an already
// paid invoice succeeds without changing it or emailing again.
func (s *invoiceService) MarkAsPaid(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid() {
		return inv, nil
	}

	now := s.now()
	err = s.db.WithContext(ctx).Model(inv).Updates(map[string]interface{}{
		"status":  models.StatusPaid,
		"paid_at": now,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	inv.Status = models.StatusPaid
	inv.PaidAt = &now

	s.notifier.InvoicePaid(ctx, inv, s.senderName(ctx, userID))
	return inv, nil
}

// SendReminder emails the client about an unpaid invoice. Delivery failures
// are returned since the email is the whole operation.
func (s *invoiceService) SendReminder(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid() {
		return nil, apperrors.ErrInvoiceAlreadyPaid
	}

	if err := s.notifier.Reminder(ctx, inv, s.senderName(ctx, userID)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNotificationFailed, err)
	}
	return inv, nil
}

// apply copies the request fields onto inv, replacing its items.
func (s *invoiceService) apply(inv *models.Invoice, in InvoiceInput) error {
	terms, ok := models.ParsePaymentTerms(in.PaymentTerms)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput,
			"paymentTerms must be one of 'Net 1 day', 'Net 7 days', 'Net 14 days' or 'Net 30 days'")
	}
	if len(in.Items) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "items must contain at least 1 item")
	}

	sender := trimAddress(in.SenderAddress)
	client := trimAddress(in.ClientAddress)
	clientName := strings.TrimSpace(in.ClientName)
	description := strings.TrimSpace(in.ProjectDescription)

	switch {
	case !complete(sender):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "billFrom address requires street, city, postalCode and country")
	case !complete(client):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "billTo address requires street, city, postalCode and country")
	case !lengthBetween(clientName, 3, 50):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "clientName must be between 3 and 50 characters")
	case !lengthBetween(description, 5, 150):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "projectDescription must be between 5 and 150 characters")
	}

	items := make([]models.InvoiceItem, len(in.Items))
	for i, item := range in.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "item name is required")
		}
		items[i] = models.InvoiceItem{
			Position: i,
			Name:     name,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	inv.SenderAddress = sender
	inv.ClientName = clientName
	inv.ClientEmail = models.NormalizeEmail(in.ClientEmail)
	inv.ClientAddress = client
	inv.PaymentTerms = terms
	inv.ProjectDescription = description
	if in.InvoiceDate != nil {
		inv.InvoiceDate = *in.InvoiceDate
	}
	inv.Items = items
	return nil
}

func trimAddress(a models.Address) models.Address {
	return models.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

func complete(a models.Address) bool {
	return a.Street != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// senderName is the owner's display name used in client emails.
func (s *invoiceService) senderName(ctx context.Context, userID string) string {
	var user models.User
	if err := s.db.WithContext(ctx).Select("first_name", "last_name").Where("id = ?", userID).First(&user).Error; err != nil {
		return "Invoicer"
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
