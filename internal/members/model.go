package members

import "time"

// Status is the membership state of a member.
type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusSuspended           Status = "SUSPENDED"
	StatusInactive            Status = "INACTIVE"
	StatusDeceased            Status = "DECEASED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPendingVerification, StatusSuspended, StatusInactive, StatusDeceased:
		return true
	}
	return false
}

// Member is an affiliate, optionally attached to an institution.
type Member struct {
	ID            string
	DNI           *string
	FirstName     string
	LastName      string
	Email         *string
	Phone         *string
	Address       *string
	BirthDate     *time.Time
	Nationality   *string
	Status        Status
	JoinedAt      time.Time
	InstitutionID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InstitutionRef is the institution summary embedded in member responses.
type InstitutionRef struct {
	ID   string
	Name string
	CUIT string
}

// Sort columns accepted by List.
const (
	SortLastName  = "lastName"
	SortFirstName = "firstName"
	SortDNI       = "dni"
	SortJoinedAt  = "joinedAt"
	SortCreatedAt = "createdAt"
)

// ListFilter selects a page of members.
type ListFilter struct {
	Q             string
	SkipDNI       bool
	Status        Status
	InstitutionID string
	Sort          string
	Desc          bool
	Page          int
	PageSize      int
}

// Input carries the writable fields for create and full update.
type Input struct {
	DNI           string
	FirstName     string
	LastName      string
	Email         *string
	Phone         *string
	Address       *string
	BirthDate     *string
	Nationality   *string
	Status        *string
	JoinedAt      *string
	InstitutionID *string
}

// BasicInput is the reduced create payload of the socios surface.
type BasicInput struct {
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	Address   *string
}

// Patch is a partial update. Nil fields are left untouched; empty strings clear optional fields.
type Patch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
	Status    *string
}
