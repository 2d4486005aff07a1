package model

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is the backend's login response.
type LoginResult struct {
	Token     string `json:"token"`
	PatientID ID     `json:"patient_id,omitempty"`
	DoctorID  ID     `json:"doctor_id,omitempty"`
	UserID    ID     `json:"user_id"`
	Role      Role   `json:"role"`
}

// AuthUser is the user block of /auth/me.
type AuthUser struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}
