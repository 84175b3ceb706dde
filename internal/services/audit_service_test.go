package services

import (
	"context"
	"encoding/json"
	"testing"

	"invoicer/internal/models"
	"invoicer/internal/testutil"
)

func TestAuditService(t *testing.T) {
	ctx := context.Background()

	t.Run("records_entries_with_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)
		inv := testutil.CreateTestInvoice(t, db, user.ID)

		svc.Log(ctx, AuditEntry{
			UserID:       user.ID,
			Action:       models.ActionCreateInvoice,
			ResourceType: models.ResourceInvoice,
			ResourceID:   inv.ID,
			IPAddress:    "127.0.0.1",
			Changes:      map[string]any{"status": "Pending", "amountDue": "1400"},
		})
		svc.Log(ctx, AuditEntry{
			UserID:       user.ID,
			Action:       models.ActionMarkInvoicePaid,
			ResourceType: models.ResourceInvoice,
			ResourceID:   inv.ID,
		})
		svc.Log(ctx, AuditEntry{
			UserID:       user.ID,
			Action:       models.ActionUpdateUser,
			ResourceType: models.ResourceUser,
			ResourceID:   user.ID,
		})

		rows, err := svc.History(ctx, user.ID, inv.ID)
		testutil.AssertNoError(t, err)
		if len(rows) != 2 {
			t.Fatalf("expected 2 invoice entries, got %d", len(rows))
		}
		if rows[0].Action != models.ActionCreateInvoice || rows[1].Action != models.ActionMarkInvoicePaid {
			t.Errorf("unexpected order: %s, %s", rows[0].Action, rows[1].Action)
		}

		var changes map[string]string
		if err := json.Unmarshal(rows[0].Changes, &changes); err != nil {
			t.Fatalf("changes are not JSON: %v", err)
		}
		if changes["amountDue"] != "1400" {
			t.Errorf("expected amountDue 1400, got %q", changes["amountDue"])
		}
		if c := string(rows[1].Changes); c != "" && c != "null" {
			t.Errorf("expected no changes, got %s", c)
		}

		all, err := svc.History(ctx, user.ID, "")
		testutil.AssertNoError(t, err)
		if len(all) != 3 {
			t.Errorf("expected 3 entries, got %d", len(all))
		}
	})

	t.Run("write_failures_are_swallowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAuditService(db)
		testutil.TeardownTestDB(t, db)

		// Must not panic or surface the closed-database error.
		svc.Log(ctx, AuditEntry{UserID: "u", Action: models.ActionRegister, ResourceType: models.ResourceUser})
	})

	t.Run("survives_cancelled_request", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		svc.Log(cancelled, AuditEntry{UserID: user.ID, Action: models.ActionDeleteUser, ResourceType: models.ResourceUser, ResourceID: user.ID})

		rows, err := svc.History(ctx, user.ID, user.ID)
		testutil.AssertNoError(t, err)
		if len(rows) != 1 {
			t.Errorf("expected 1 entry, got %d", len(rows))
		}
	})
}
