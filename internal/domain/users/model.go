package users

import "time"

// Role values stored on a user. Pending roles wait for verification and are
// treated like patients.
const (
	RolePatient          = "patient"
	RoleDoctor           = "doctor"
	RoleClinician        = "clinician"
	RoleAdmin            = "admin"
	RoleDoctorPending    = "doctor_pending"
	RoleClinicianPending = "clinician_pending"
)

// User maps to the users table. ID is the identity provider subject.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
