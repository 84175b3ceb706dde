package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/models"
	"invoicer/internal/pagination"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileUpdate holds the profile fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// ImageUpload is a profile image received from the client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UserServicer defines the contract for account-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userID, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*models.User, error)
	SetProfileImage(ctx context.Context, userID string, upload ImageUpload) (*models.User, error)
	DeleteProfileImage(ctx context.Context, userID string) (*models.User, error)
}

// ItemInput is one line item of an invoice request.
type ItemInput struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// InvoiceInput carries every client-editable invoice field. Status is the raw
// value from the request; empty means "not supplied".
type InvoiceInput struct {
	Status             string
	SenderAddress      models.Address
	ClientName         string
	ClientEmail        string
	ClientAddress      models.Address
	InvoiceDate        *time.Time
	PaymentTerms       string
	ProjectDescription string
	Items              []ItemInput
}

// InvoiceServicer defines the contract for invoice-related business logic.
// Every method is scoped to the owning user; invoices of other users behave
// as if they did not exist.
type InvoiceServicer interface {
	CreateInvoice(ctx context.Context, userID string, in InvoiceInput) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userID string, page pagination.PageRequest, status string) (*pagination.PageResponse[models.Invoice], error)
	GetInvoice(ctx context.Context, userID, invoiceID string) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, userID, invoiceID string, in InvoiceInput) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, userID, invoiceID string) error
	MarkAsPaid(ctx context.Context, userID, invoiceID string) (*models.Invoice, error)
	SendReminder(ctx context.Context, userID, invoiceID string) (*models.Invoice, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, e AuditEntry)
	History(ctx context.Context, userID, resourceID string) ([]models.AuditLog, error)
}
