package institutions

import "time"

// Institution is an employer or organisation whose members contribute dues.
type Institution struct {
	ID        string
	Name      string
	CUIT      string
	Address   *string
	Phone     *string
	Email     *string
	Website   *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counts holds the number of records that reference an institution.
type Counts struct {
	Members   int
	Documents int
}

// ListFilter selects a page of institutions.
type ListFilter struct {
	Search string
	Page   int
	Limit  int
}

// Input carries the writable fields for create and update.
type Input struct {
	Name     string
	CUIT     string
	Address  *string
	Phone    *string
	Email    *string
	Website  *string
	IsActive *bool
}
