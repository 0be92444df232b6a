package domain

import "time"

const (
	AuditLogin    = "login"
	AuditRegister = "register"
)

// AuthEvent records the outcome of a single authentication attempt.
type AuthEvent struct {
	Username string    `json:"username"`
	Action   string    `json:"action"`
	Success  bool      `json:"success"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}
