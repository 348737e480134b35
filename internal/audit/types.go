package audit

import (
	"time"
)

// AuditAction represents a step in the life of a submission
type AuditAction string

const (
	AuditActionDispatch AuditAction = "dispatch"
	AuditActionSuccess  AuditAction = "success"
	AuditActionFailure  AuditAction = "failure"
)

// AuditLog represents a single audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	Session      string                 `json:"session"`
	SubmissionID uint64                 `json:"submission_id"`
	Action       AuditAction            `json:"action"`
	Timestamp    time.Time              `json:"timestamp"`
	Address      string                 `json:"address"`
	Category     string                 `json:"category"`
	Amount       string                 `json:"amount"`
	Fee          string                 `json:"fee"`
	HasMemo      bool                   `json:"has_memo"`
	TxID         string                 `json:"txid,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}
