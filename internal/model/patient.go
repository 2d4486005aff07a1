package model

type Patient struct {
	ID        ID     `json:"id"`
	UserID    ID     `json:"user_id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PESEL     string `json:"pesel,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

type UpdatePatientRequest struct {
	FirstName string `json:"first_name" binding:"required,notblank"`
	LastName  string `json:"last_name" binding:"required,notblank"`
	PESEL     string `json:"pesel,omitempty" binding:"omitempty,pesel"`
	Phone     string `json:"phone" binding:"required,phone"`
}
