package services

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
)

// AuditEntry describes one mutation performed on behalf of a user.
type AuditEntry struct {
	UserID       string
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]any
}

// auditService persists audit entries.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records e. Failures are logged and swallowed so the request that
// caused the entry still succeeds.
func (s *auditService) Log(ctx context.Context, e AuditEntry) {
	row := &models.AuditLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
	}
	if len(e.Changes) > 0 {
		data, err := json.Marshal(e.Changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit changes", "error", err, "action", e.Action)
			data = []byte("{}")
		}
		row.Changes = datatypes.JSON(data)
	}

	// A cancelled request must not drop the entry for a mutation that already happened.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", e.UserID,
			"action", e.Action,
			"resource_type", e.ResourceType,
			"resource_id", e.ResourceID,
		)
	}
}

// History returns a user's entries for one resource, oldest first.
// An empty resourceID returns every entry of the user.
func (s *auditService) History(ctx context.Context, userID, resourceID string) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if resourceID != "" {
		q = q.Where("resource_id = ?", resourceID)
	}

	var rows []models.AuditLog
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}
