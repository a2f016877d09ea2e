// Package domain holds shared domain primitives: typed IDs and closed enums.
//
// IDs are distinct named UUID types so the compiler rejects cross-type
// assignment (a SubmissionID can never be passed where a UserID is expected).
// Parse functions enforce the invariant "IDs are valid, non-nil UUIDs" at
// trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "leanquest/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	TenantID       uuid.UUID
	SessionID      uuid.UUID
	SubmissionID   uuid.UUID
	TemplateID     uuid.UUID
	NotificationID uuid.UUID
)

func parse(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s: not a UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s: nil UUID", kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parse("user_id", s)
	return UserID(u), err
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parse("tenant_id", s)
	return TenantID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parse("session_id", s)
	return SessionID(u), err
}

func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parse("submission_id", s)
	return SubmissionID(u), err
}

func ParseTemplateID(s string) (TemplateID, error) {
	u, err := parse("template_id", s)
	return TemplateID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parse("notification_id", s)
	return NotificationID(u), err
}

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewTenantID() TenantID             { return TenantID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }
func NewSubmissionID() SubmissionID     { return SubmissionID(uuid.New()) }
func NewTemplateID() TemplateID         { return TemplateID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }
func (id SubmissionID) String() string   { return uuid.UUID(id).String() }
func (id TemplateID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TemplateID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id TenantID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id SubmissionID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id TemplateID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SubmissionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubmissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TemplateID) UnmarshalText(b []byte) error {
	parsed, err := ParseTemplateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
