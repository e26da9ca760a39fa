package members

import "time"

type memberRequest struct {
	DNI           string  `json:"dni"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	BirthDate     *string `json:"birthDate"`
	Nationality   *string `json:"nationality"`
	Status        *string `json:"status"`
	JoinedAt      *string `json:"joinedAt"`
	InstitutionID *string `json:"institutionId"`
}

func (r memberRequest) toInput() Input {
	return Input(r)
}

type socioCreateRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

type socioPatchRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Status    *string `json:"status"`
}

type institutionSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	CUIT string `json:"cuit"`
}

type countResponse struct {
	Documents int `json:"documents"`
}

type memberResponse struct {
	ID            string              `json:"id"`
	DNI           *string             `json:"dni"`
	FirstName     string              `json:"firstName"`
	LastName      string              `json:"lastName"`
	Email         *string             `json:"email"`
	Phone         *string             `json:"phone"`
	Address       *string             `json:"address"`
	BirthDate     *time.Time          `json:"birthDate"`
	Nationality   *string             `json:"nationality"`
	Status        Status              `json:"status"`
	JoinedAt      time.Time           `json:"joinedAt"`
	InstitutionID *string             `json:"institutionId"`
	Institution   *institutionSummary `json:"institution"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Count         *countResponse      `json:"_count,omitempty"`
}

type listMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data []memberResponse `json:"data"`
	Meta listMeta         `json:"meta"`
}

type socioResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Address        *string   `json:"address"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	DocumentsCount *int      `json:"documentsCount,omitempty"`
}

type socioListResponse struct {
	Data []socioResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

func toResponse(row Row) memberResponse {
	m := row.Member
	out := memberResponse{
		ID:            m.ID,
		DNI:           m.DNI,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		BirthDate:     m.BirthDate,
		Nationality:   m.Nationality,
		Status:        m.Status,
		JoinedAt:      m.JoinedAt,
		InstitutionID: m.InstitutionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if row.Institution != nil {
		out.Institution = &institutionSummary{
			ID:   row.Institution.ID,
			Name: row.Institution.Name,
			CUIT: row.Institution.CUIT,
		}
	}
	return out
}

func toSocio(m Member) socioResponse {
	return socioResponse{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
		Phone:     m.Phone,
		Address:   m.Address,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
