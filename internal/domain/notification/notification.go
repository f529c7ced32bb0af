package notification

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelEmail Channel = "EMAIL"
	ChannelAPN   Channel = "APN"
)

// ParseChannel normalizes and validates a channel string from an API request
// or a scheduler payload. The empty string is returned as-is so callers can
// fall back to template defaults.
func ParseChannel(s string) (Channel, error) {
	if s == "" {
		return "", nil
	}
	switch c := Channel(strings.ToUpper(s)); c {
	case ChannelInApp, ChannelEmail, ChannelAPN:
		return c, nil
	default:
		return "", fmt.Errorf("unknown notification channel: %q", s)
	}
}

// Status tracks a notification through its delivery lifecycle.
//
// IN_APP rows are born PUBLISHED; other channels are born CREATED and move
// through SENDING while a dispatch pass owns them. SENDING is the claim marker
// that keeps two overlapping trigger runs from delivering the same row twice.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusSending   Status = "SENDING"
	StatusPublished Status = "PUBLISHED"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
	StatusRead      Status = "READ"
)

// ParseStatus validates a status string from an API filter.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", nil
	}
	switch st := Status(strings.ToUpper(s)); st {
	case StatusCreated, StatusSending, StatusPublished, StatusSent, StatusFailed, StatusRead:
		return st, nil
	default:
		return "", fmt.Errorf("unknown notification status: %q", s)
	}
}

// Metadata is the free-form blob persisted with a notification (counters,
// related transaction ids, device token echo). Stored as JSONB.
type Metadata map[string]any

// Value implements driver.Valuer for the jsonb column.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the jsonb column.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported metadata source type %T", src)
	}
	return json.Unmarshal(b, m)
}

// Notification is a materialized message for one user on one channel.
// Type, channel and message are immutable after creation; only status and
// sentAt change afterwards.
type Notification struct {
	ID        string
	UserID    string
	Type      string // Soft reference to a template id; tolerant of absence.
	Channel   Channel
	Status    Status
	Title     string
	Message   string
	Metadata  Metadata
	SentAt    sql.NullTime
	CreatedAt time.Time
}

// UserSummary is the joined user projection returned by paginated listings.
type UserSummary struct {
	Email     string
	FirstName string
	LastName  sql.NullString
}

// WithUser pairs a notification with its owner's summary for the admin list.
type WithUser struct {
	Notification
	User UserSummary
}
