package institutions

import "time"

type institutionRequest struct {
	Name     string  `json:"name"`
	CUIT     string  `json:"cuit"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Website  *string `json:"website"`
	IsActive *bool   `json:"isActive"`
}

func (r institutionRequest) toInput() Input {
	return Input{
		Name:     r.Name,
		CUIT:     r.CUIT,
		Address:  r.Address,
		Phone:    r.Phone,
		Email:    r.Email,
		Website:  r.Website,
		IsActive: r.IsActive,
	}
}

type countResponse struct {
	Members   int `json:"members"`
	Documents int `json:"documents"`
}

type institutionResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CUIT      string         `json:"cuit"`
	Address   *string        `json:"address"`
	Phone     *string        `json:"phone"`
	Email     *string        `json:"email"`
	Website   *string        `json:"website"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Count     *countResponse `json:"_count,omitempty"`
}

type listMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data []institutionResponse `json:"data"`
	Meta listMeta              `json:"meta"`
}

func toResponse(inst Institution) institutionResponse {
	return institutionResponse{
		ID:        inst.ID,
		Name:      inst.Name,
		CUIT:      inst.CUIT,
		Address:   inst.Address,
		Phone:     inst.Phone,
		Email:     inst.Email,
		Website:   inst.Website,
		IsActive:  inst.IsActive,
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}
}
