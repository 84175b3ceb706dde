package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

// Invoice statuses, in lifecycle order.
const (
	StatusDraft   InvoiceStatus = "Draft"
	StatusPending InvoiceStatus = "Pending"
	StatusPaid    InvoiceStatus = "Paid"
)

// ParseInvoiceStatus resolves a status name case-insensitively.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StatusDraft, true
	case "pending":
		return StatusPending, true
	case "paid":
		return StatusPaid, true
	}
	return "", false
}

func (s InvoiceStatus) rank() int {
	switch s {
	case StatusDraft:
		return 1
	case StatusPending:
		return 2
	case StatusPaid:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. Staying in the same state is allowed.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if next.rank() == 0 {
		return false
	}
	return next.rank() >= s.rank()
}

// AllowedAtCreation reports whether an invoice may start in status s.
func (s InvoiceStatus) AllowedAtCreation() bool {
	return s == StatusDraft || s == StatusPending
}

// PaymentTerms is how long the client has to settle an invoice.
type PaymentTerms string

const (
	TermsNet1  PaymentTerms = "Net 1 day"
	TermsNet7  PaymentTerms = "Net 7 days"
	TermsNet14 PaymentTerms = "Net 14 days"
	TermsNet30 PaymentTerms = "Net 30 days"
)

// PaymentTermsValues lists every accepted payment terms value.
var PaymentTermsValues = []PaymentTerms{TermsNet1, TermsNet7, TermsNet14, TermsNet30}

// ParsePaymentTerms matches s against the known terms ignoring case and
// surrounding whitespace.
func ParsePaymentTerms(s string) (PaymentTerms, bool) {
	s = strings.TrimSpace(s)
	for _, t := range PaymentTermsValues {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Address is embedded twice in Invoice with different column prefixes.
type Address struct {
	Street     string `gorm:"not null" json:"street"`
	City       string `gorm:"not null" json:"city"`
	PostalCode string `gorm:"not null" json:"postalCode"`
	Country    string `gorm:"not null" json:"country"`
}

// Invoice is a billing document owned by exactly one user.
type Invoice struct {
	Base
	UserID             string        `gorm:"type:uuid;not null;index" json:"userId"`
	Status             InvoiceStatus `gorm:"size:16;not null;index" json:"status"`
	PaidAt             *time.Time    `json:"paidAt,omitempty"`
	SenderAddress      Address       `gorm:"embedded;embeddedPrefix:sender_" json:"senderAddress"`
	ClientName         string        `gorm:"size:50;not null" json:"clientName"`
	ClientEmail        string        `gorm:"not null" json:"clientEmail"`
	ClientAddress      Address       `gorm:"embedded;embeddedPrefix:client_" json:"clientAddress"`
	InvoiceDate        time.Time     `gorm:"not null" json:"invoiceDate"`
	PaymentTerms       PaymentTerms  `gorm:"size:16;not null" json:"paymentTerms"`
	ProjectDescription string        `gorm:"size:150;not null" json:"projectDescription"`
	Items              []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// InvoiceItem is a single line on an invoice. Position keeps the order the
// client submitted.
type InvoiceItem struct {
	Base
	InvoiceID string          `gorm:"type:uuid;not null;index" json:"-"`
	Position  int             `gorm:"not null" json:"-"`
	Name      string          `gorm:"not null" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

// Total is quantity times unit price.
func (i InvoiceItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AmountDue sums quantity × price over all items.
func AmountDue(items []InvoiceItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Total())
	}
	return sum
}

// PaymentDue returns the date payment is due. Net 30 advances one calendar
// month, clamped to the last day of that month.
func PaymentDue(invoiceDate time.Time, terms PaymentTerms) time.Time {
	switch terms {
	case TermsNet1:
		return invoiceDate.AddDate(0, 0, 1)
	case TermsNet7:
		return invoiceDate.AddDate(0, 0, 7)
	case TermsNet14:
		return invoiceDate.AddDate(0, 0, 14)
	case TermsNet30:
		return addMonthClamped(invoiceDate)
	}
	return invoiceDate
}

func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	// day 0 of the month after next is the last day of next month
	last := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// InvoiceNumber is the last four characters of the id, upper-cased.
func InvoiceNumber(id string) string {
	if len(id) <= 4 {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(id[len(id)-4:])
}

// AmountDue is the invoice total.
func (inv *Invoice) AmountDue() decimal.Decimal { return AmountDue(inv.Items) }

// PaymentDue is when the client must have paid.
func (inv *Invoice) PaymentDue() time.Time { return PaymentDue(inv.InvoiceDate, inv.PaymentTerms) }

// InvoiceNumber is the short human-facing reference.
func (inv *Invoice) InvoiceNumber() string { return InvoiceNumber(inv.ID) }

// IsPaid reports whether the invoice reached its final state.
func (inv *Invoice) IsPaid() bool { return inv.Status == StatusPaid }
