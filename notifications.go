package managehub

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Notification is the structured record of one committed state change:
// who did it, what was touched, the resulting value and the previous value
// where one exists. Notifications fire only after the storage transaction
// commits, so observers never see a change that was rolled back.
type Notification struct {
	ID       string `json:"id"`
	Op       string `json:"op"`
	Actor    string `json:"actor"`
	Subject  string `json:"subject"`
	Value    string `json:"value"`
	Previous string `json:"previous,omitempty"`
	At       uint64 `json:"at"`

	// RequestID correlates the change with an external trace when the
	// caller's context carries one (see WithRequestID).
	RequestID string `json:"request_id,omitempty"`
}

// AuditRecord is the persisted form of a Notification, written inside the
// same transaction as the change it describes.
type AuditRecord struct {
	bun.BaseModel `bun:"table:audit_log,alias:al"`

	ID        string    `bun:"id,pk,type:uuid"`
	Op        string    `bun:"op,notnull"`
	Actor     string    `bun:"actor,notnull"`
	Subject   string    `bun:"subject"`
	Value     string    `bun:"value"`
	Previous  string    `bun:"previous"`
	At        uint64    `bun:"at,notnull"`
	RequestID string    `bun:"request_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditFilter selects audit entries. Zero fields are ignored.
type AuditFilter struct {
	// Filter by acting account.
	Actor string

	// Filter by acted-upon account or resource.
	Subject string

	// Filter by operation name, e.g. "set_role".
	Op string

	// Filter by logical time range (inclusive).
	Since uint64
	Until uint64

	// Pagination. Limit 0 means the default of 100.
	Limit  int
	Offset int
}

// WithActor sets the actor filter.
func (f AuditFilter) WithActor(actor string) AuditFilter {
	f.Actor = actor
	return f
}

// WithSubject sets the subject filter.
func (f AuditFilter) WithSubject(subject string) AuditFilter {
	f.Subject = subject
	return f
}

// WithOp sets the operation filter.
func (f AuditFilter) WithOp(op string) AuditFilter {
	f.Op = op
	return f
}

// WithTimeRange sets the logical time range filter.
func (f AuditFilter) WithTimeRange(since, until uint64) AuditFilter {
	f.Since = since
	f.Until = until
	return f
}

func newNotification(op, actor, subject, value, previous string, at uint64) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Op:       op,
		Actor:    actor,
		Subject:  subject,
		Value:    value,
		Previous: previous,
		At:       at,
	}
}

func (n Notification) auditRecord() AuditRecord {
	return AuditRecord{
		ID:        n.ID,
		Op:        n.Op,
		Actor:     n.Actor,
		Subject:   n.Subject,
		Value:     n.Value,
		Previous:  n.Previous,
		At:        n.At,
		RequestID: n.RequestID,
		CreatedAt: time.Now(),
	}
}
