package domain

import "time"

// AuditLog is one fire-and-forget record of a sensitive state change.
type AuditLog struct {
	ID        string    `json:"id"` // ULID, sorts by creation time
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Details   string    `json:"details,omitempty"` // JSON-encoded payload
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}
