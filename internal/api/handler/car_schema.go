package handler

// --- Request / Response types ---

type createCarRequest struct {
	Name        string  `json:"name"        validate:"required,max=120"`
	Brand       string  `json:"brand"       validate:"required,max=80"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Year        int     `json:"year"        validate:"required,gte=1886"`
	Description string  `json:"description" validate:"required,max=5000"`
	// ImagesBase64 holds base64 strings, data URIs or http(s) URLs.
	ImagesBase64 []string `json:"imagesBase64"`
}

// updateCarRequest is a merge patch: absent fields stay unchanged. Values
// are validated by the service after the ownership check.
type updateCarRequest struct {
	Name         *string  `json:"name,omitempty"`
	Brand        *string  `json:"brand,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Year         *int     `json:"year,omitempty"`
	Description  *string  `json:"description,omitempty"`
	ImagesBase64 []string `json:"imagesBase64,omitempty"`
}

type carResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Price       float64  `json:"price"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	OwnerID     string   `json:"owner_id"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type carEnvelope struct {
	Message string      `json:"message,omitempty"`
	Car     carResponse `json:"car"`
}

type carsEnvelope struct {
	Cars []carResponse `json:"cars"`
}

type messageResponse struct {
	Message string `json:"message"`
}
