package model

import (
	"context"
	"time"
)

// AuditStore is the durable, append-only backing of the audit log.
type AuditStore interface {
	Append(ctx context.Context, entry AuditEntry) (int64, error)
	Query(ctx context.Context, query AuditQuery) ([]AuditEntry, error)
}

// AuditAction enumerates vault actions recorded in the audit log.
type AuditAction string

const (
	ActionCreate       AuditAction = "CREATE"
	ActionAccess       AuditAction = "ACCESS"
	ActionAccessFailed AuditAction = "ACCESS_FAILED"
	ActionAccessError  AuditAction = "ACCESS_ERROR"
	ActionDelete       AuditAction = "DELETE"
)

// AuditOutcome is the result of an audited action.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "SUCCESS"
	OutcomeFailure AuditOutcome = "FAILURE"
)

// AuditEntry is one immutable audit log record. Seq is assigned by the store.
// CredentialID is a weak reference and is empty for entries without a target;
// CredentialName is filled on query and is empty once the credential is gone.
type AuditEntry struct {
	Seq            int64        `json:"seq" yaml:"seq"`
	CredentialID   string       `json:"credential_id,omitempty" yaml:"credential_id,omitempty"`
	CredentialName string       `json:"credential_name,omitempty" yaml:"credential_name,omitempty"`
	ActorID        string       `json:"actor_id" yaml:"actor_id"`
	Action         AuditAction  `json:"action" yaml:"action"`
	Outcome        AuditOutcome `json:"outcome" yaml:"outcome"`
	SourceAddress  string       `json:"source_address" yaml:"source_address"`
	UserAgent      string       `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Timestamp      time.Time    `json:"timestamp" yaml:"timestamp"`
}

// DefaultAuditLimit bounds audit queries that do not set a limit.
const DefaultAuditLimit = 100

// AuditQuery filters an audit log query. Zero values mean no filter.
type AuditQuery struct {
	Limit        int
	Action       AuditAction
	Outcome      AuditOutcome
	CredentialID string
	// Search matches actor, action or credential name, case-insensitively.
	Search string
}

// EffectiveLimit returns the limit to apply.
func (q AuditQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultAuditLimit
	}
	return q.Limit
}
