package identity

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RolePhysician Role = "physician"
	RoleNurse     Role = "nurse"
	RoleAdmin     Role = "admin"
	RolePatient   Role = "patient"
)

// ParseRole validates a role string. The legacy "owner" role from the old
// data model is accepted and mapped to RolePatient.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePhysician, RoleNurse, RoleAdmin, RolePatient:
		return Role(s), nil
	}
	if s == "owner" {
		return RolePatient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// IsStaff reports whether the role grants full access to every patient.
func (r Role) IsStaff() bool {
	return r == RolePhysician || r == RoleNurse || r == RoleAdmin
}

// User maps to the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	PatientIDs   []string  `db:"patient_ids" json:"patient_ids,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CanAccess decides read eligibility for a patient record. Staff see every
// patient; a patient-role user sees only the patients in their grant list.
func CanAccess(role Role, ownedIDs []string, patientID string) bool {
	if role.IsStaff() {
		return true
	}
	if role != RolePatient {
		return false
	}
	for _, id := range ownedIDs {
		if id == patientID {
			return true
		}
	}
	return false
}

// CanAccess reports whether u may view the given patient. A nil user has no
// access.
func (u *User) CanAccess(patientID string) bool {
	if u == nil {
		return false
	}
	return CanAccess(u.Role, u.PatientIDs, patientID)
}
