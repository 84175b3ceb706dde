package models

import "gorm.io/datatypes"

// AuditAction names a recorded mutation.
type AuditAction string

const (
	ActionRegister           AuditAction = "REGISTER"
	ActionResetPassword      AuditAction = "RESET_PASSWORD"
	ActionUpdateUser         AuditAction = "UPDATE_USER"
	ActionDeleteUser         AuditAction = "DELETE_USER"
	ActionUploadProfileImage AuditAction = "UPLOAD_PROFILE_IMAGE"
	ActionDeleteProfileImage AuditAction = "DELETE_PROFILE_IMAGE"
	ActionCreateInvoice      AuditAction = "CREATE_INVOICE"
	ActionUpdateInvoice      AuditAction = "UPDATE_INVOICE"
	ActionDeleteInvoice      AuditAction = "DELETE_INVOICE"
	ActionMarkInvoicePaid    AuditAction = "MARK_INVOICE_PAID"
	ActionSendReminder       AuditAction = "SEND_REMINDER"
)

// Resource types an audit entry can point at.
const (
	ResourceUser    = "user"
	ResourceInvoice = "invoice"
)

// AuditLog records account and invoice mutations. Rows outlive the
// account they belong to, so UserID carries no foreign key.
type AuditLog struct {
	Base
	UserID       string         `gorm:"type:uuid;not null;index" json:"userId"`
	Action       AuditAction    `gorm:"not null" json:"action"`
	ResourceType string         `gorm:"not null" json:"resourceType"`
	ResourceID   string         `gorm:"index" json:"resourceId"`
	IPAddress    string         `json:"ipAddress"`
	Changes      datatypes.JSON `json:"changes,omitempty"`
}
