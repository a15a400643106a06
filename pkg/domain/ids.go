// Package domain defines typed identifiers shared across the service.
//
// Every aggregate gets its own UUID-backed type so the compiler rejects
// cross-type assignment (a CaseID can never be passed where an EmployeeID
// is expected). Parse helpers enforce the trust-boundary invariant that IDs
// are valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "disciplina/pkg/domain-errors"
)

type (
	// CaseID identifies a disciplinary complaint case.
	CaseID uuid.UUID
	// EmployeeID identifies an employee in the personnel directory.
	EmployeeID uuid.UUID
	// CommitteeID identifies a discipline committee (center or headquarters level).
	CommitteeID uuid.UUID
	// AppealID identifies an appeal attached to a decided case.
	AppealID uuid.UUID
	// CenterID identifies an organizational center. A case with no center is a
	// headquarters-level case.
	CenterID uuid.UUID
	// TenantID identifies the owning organization.
	TenantID uuid.UUID
)

func (id CaseID) String() string      { return uuid.UUID(id).String() }
func (id EmployeeID) String() string  { return uuid.UUID(id).String() }
func (id CommitteeID) String() string { return uuid.UUID(id).String() }
func (id AppealID) String() string    { return uuid.UUID(id).String() }
func (id CenterID) String() string    { return uuid.UUID(id).String() }
func (id TenantID) String() string    { return uuid.UUID(id).String() }

// The typed IDs serialize as canonical UUID strings.
func (id CaseID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id EmployeeID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id CommitteeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AppealID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CenterID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id TenantID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	v, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id *EmployeeID) UnmarshalText(b []byte) error {
	v, err := ParseEmployeeID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id *CommitteeID) UnmarshalText(b []byte) error {
	v, err := ParseCommitteeID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id *AppealID) UnmarshalText(b []byte) error {
	v, err := ParseAppealID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id *CenterID) UnmarshalText(b []byte) error {
	v, err := ParseCenterID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id *TenantID) UnmarshalText(b []byte) error {
	v, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id CaseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CommitteeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AppealID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CenterID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewCaseID returns a fresh random CaseID.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewAppealID returns a fresh random AppealID.
func NewAppealID() AppealID { return AppealID(uuid.New()) }

// NewEmployeeID returns a fresh random EmployeeID.
func NewEmployeeID() EmployeeID { return EmployeeID(uuid.New()) }

// NewCommitteeID returns a fresh random CommitteeID.
func NewCommitteeID() CommitteeID { return CommitteeID(uuid.New()) }

// NewCenterID returns a fresh random CenterID.
func NewCenterID() CenterID { return CenterID(uuid.New()) }

// NewTenantID returns a fresh random TenantID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return u, nil
}

// ParseCaseID validates and converts a string into a CaseID.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case ID")
	return CaseID(u), err
}

// ParseEmployeeID validates and converts a string into an EmployeeID.
func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parseUUID(s, "employee ID")
	return EmployeeID(u), err
}

// ParseCommitteeID validates and converts a string into a CommitteeID.
func ParseCommitteeID(s string) (CommitteeID, error) {
	u, err := parseUUID(s, "committee ID")
	return CommitteeID(u), err
}

// ParseAppealID validates and converts a string into an AppealID.
func ParseAppealID(s string) (AppealID, error) {
	u, err := parseUUID(s, "appeal ID")
	return AppealID(u), err
}

// ParseCenterID validates and converts a string into a CenterID.
func ParseCenterID(s string) (CenterID, error) {
	u, err := parseUUID(s, "center ID")
	return CenterID(u), err
}

// ParseTenantID validates and converts a string into a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant ID")
	return TenantID(u), err
}
