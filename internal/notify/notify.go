// Package notify renders and delivers transactional emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"invoicer/internal/logger"
	"invoicer/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const dateLayout = "02 Jan, 2006"

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier sends the emails triggered by account and invoice events.
// InvoiceCreated and InvoicePaid never fail the caller; Reminder and
// PasswordReset return delivery errors because the email is the operation.
type Notifier interface {
	InvoiceCreated(ctx context.Context, inv *models.Invoice, sender string)
	InvoicePaid(ctx context.Context, inv *models.Invoice, sender string)
	Reminder(ctx context.Context, inv *models.Invoice, sender string) error
	PasswordReset(ctx context.Context, user *models.User, token string, validFor time.Duration) error
}

// Dispatcher is the Notifier backed by a Mailer.
type Dispatcher struct {
	mailer    Mailer
	clientURL string
}

// NewDispatcher creates a Dispatcher. clientURL is the front-end origin used
// to build links.
func NewDispatcher(mailer Mailer, clientURL string) *Dispatcher {
	return &Dispatcher{mailer: mailer, clientURL: strings.TrimRight(clientURL, "/")}
}

type invoiceView struct {
	ClientName    string
	SenderName    string
	InvoiceNumber string
	AmountDue     string
	PaymentDue    string
	PaidAt        string
	Link          string
}

type resetView struct {
	FirstName string
	ValidFor  string
	Link      string
}

func (d *Dispatcher) invoiceView(inv *models.Invoice, sender string) invoiceView {
	v := invoiceView{
		ClientName:    inv.ClientName,
		SenderName:    sender,
		InvoiceNumber: inv.InvoiceNumber(),
		AmountDue:     inv.AmountDue().StringFixed(2),
		PaymentDue:    inv.PaymentDue().Format(dateLayout),
		Link:          d.clientURL + "/invoices/" + inv.ID,
	}
	if inv.PaidAt != nil {
		v.PaidAt = inv.PaidAt.Format(dateLayout)
	}
	return v
}

// InvoiceCreated tells the client a new invoice was issued.
func (d *Dispatcher) InvoiceCreated(ctx context.Context, inv *models.Invoice, sender string) {
	subject := fmt.Sprintf("New invoice #%s from %s", inv.InvoiceNumber(), sender)
	d.bestEffort(ctx, inv, "invoice_created", Message{To: inv.ClientEmail, Subject: subject}, d.invoiceView(inv, sender))
}

// InvoicePaid confirms payment to the client.
func (d *Dispatcher) InvoicePaid(ctx context.Context, inv *models.Invoice, sender string) {
	subject := fmt.Sprintf("Payment received for invoice #%s", inv.InvoiceNumber())
	d.bestEffort(ctx, inv, "invoice_paid", Message{To: inv.ClientEmail, Subject: subject}, d.invoiceView(inv, sender))
}

// Reminder asks the client to settle an unpaid invoice.
func (d *Dispatcher) Reminder(ctx context.Context, inv *models.Invoice, sender string) error {
	msg := Message{To: inv.ClientEmail, Subject: fmt.Sprintf("Reminder: invoice #%s is awaiting payment", inv.InvoiceNumber())}
	return d.send(ctx, "invoice_reminder", msg, d.invoiceView(inv, sender))
}

// PasswordReset emails the reset link carrying the plaintext token.
func (d *Dispatcher) PasswordReset(ctx context.Context, user *models.User, token string, validFor time.Duration) error {
	view := resetView{
		FirstName: user.FirstName,
		ValidFor:  formatDuration(validFor),
		Link:      d.clientURL + "/reset-password?token=" + url.QueryEscape(token),
	}
	return d.send(ctx, "password_reset", Message{To: user.Email, Subject: "Reset your password"}, view)
}

func (d *Dispatcher) bestEffort(ctx context.Context, inv *models.Invoice, name string, msg Message, data any) {
	if err := d.send(ctx, name, msg, data); err != nil {
		logger.Get().Warnw("Failed to send invoice email",
			"template", name,
			"invoice_id", inv.ID,
			"error", err,
		)
	}
}

func (d *Dispatcher) send(ctx context.Context, name string, msg Message, data any) error {
	body, err := Render(name, data)
	if err != nil {
		return err
	}
	msg.HTML = body
	return d.mailer.Send(ctx, msg)
}

// Render executes the named email template.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatDuration(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d.Round(time.Minute)/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
