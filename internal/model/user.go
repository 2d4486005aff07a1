package model

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// User is an account as listed by the admin endpoints.
type User struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (u User) Status() string {
	if u.IsActive {
		return "active"
	}
	return "blocked"
}

type RegisterPatientRequest struct {
	FirstName string `json:"first_name" binding:"required,notblank"`
	LastName  string `json:"last_name" binding:"required,notblank"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	PESEL     string `json:"pesel" binding:"required,pesel"`
	Phone     string `json:"phone" binding:"required,phone"`
}

type RegisterDoctorRequest struct {
	FirstName      string `json:"first_name" binding:"required,notblank"`
	LastName       string `json:"last_name" binding:"required,notblank"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Specialization string `json:"specialization" binding:"required,notblank"`
	LicenseNumber  string `json:"license_number" binding:"required,notblank"`
}
