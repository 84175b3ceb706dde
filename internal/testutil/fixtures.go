package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoicer/internal/models"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  TestPassword,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// NewTestInvoice returns an unsaved Pending invoice with a single
// Design × 2 @ 700 item.
func NewTestInvoice(userID string) *models.Invoice {
	addr := models.Address{Street: "19 Union Terrace", City: "London", PostalCode: "E1 3EZ", Country: "United Kingdom"}
	return &models.Invoice{
		UserID:             userID,
		Status:             models.StatusPending,
		SenderAddress:      addr,
		ClientName:         "Alex Grim",
		ClientEmail:        "alexgrim@mail.com",
		ClientAddress:      models.Address{Street: "84 Church Way", City: "Bradford", PostalCode: "BD1 9PB", Country: "United Kingdom"},
		InvoiceDate:        time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		PaymentTerms:       models.TermsNet30,
		ProjectDescription: "Graphic Design",
		Items: []models.InvoiceItem{
			{Position: 0, Name: "Design", Quantity: 2, Price: decimal.NewFromInt(700)},
		},
	}
}

// CreateTestInvoice persists a Pending invoice owned by userID.
func CreateTestInvoice(t *testing.T, db *gorm.DB, userID string) *models.Invoice {
	t.Helper()
	return CreateTestInvoiceWithStatus(t, db, userID, models.StatusPending)
}

// CreateTestInvoiceWithStatus persists an invoice in the given status.
func CreateTestInvoiceWithStatus(t *testing.T, db *gorm.DB, userID string, status models.InvoiceStatus) *models.Invoice {
	t.Helper()

	inv := NewTestInvoice(userID)
	inv.Status = status
	if status == models.StatusPaid {
		now := time.Now()
		inv.PaidAt = &now
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test invoice: %v", err)
	}
	return inv
}
