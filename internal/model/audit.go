package model

import "time"

// Audit event types.
const (
	AuditLoginSuccess    = "AUTH_LOGIN_SUCCESS"
	AuditLoginFailure    = "AUTH_LOGIN_FAILURE"
	AuditSessionCreated  = "SESSION_CREATED"
	AuditSaleCreated     = "SESSION_SALE_CREATED"
	AuditSaleCancelled   = "SESSION_SALE_CANCELLED"
	AuditSaleRejected    = "SESSION_SALE_REJECTED"
	AuditInventoryItem   = "INVENTORY_ITEM_CREATED"
	AuditInventoryMove   = "INVENTORY_MOVEMENT"
)

// AuditEvent is one entry of the append-only operational log.
type AuditEvent struct {
	ID        uint64         `json:"id"`
	Type      string         `json:"type"`
	Actor     string         `json:"actor,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
