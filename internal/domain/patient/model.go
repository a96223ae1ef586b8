package patient

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/mediq/mediq/internal/domain/identity"
)

// Gender is the closed set of gender values.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Patient maps to the patient table. It owns its record collections; all
// three are kept newest-first. QRCode is an opaque access token used as an
// alternate lookup key, independent of the primary id.
type Patient struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	DateOfBirth       string          `db:"date_of_birth" json:"date_of_birth"`
	Gender            Gender          `db:"gender" json:"gender"`
	BloodType         string          `db:"blood_type" json:"blood_type,omitempty"`
	HeightCm          float64         `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg          float64         `db:"weight_kg" json:"weight_kg,omitempty"`
	ContactPhone      string          `db:"contact_phone" json:"contact_phone"`
	ContactEmail      string          `db:"contact_email" json:"contact_email,omitempty"`
	Address           string          `db:"address" json:"address,omitempty"`
	InsuranceProvider string          `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsuranceNumber   string          `db:"insurance_number" json:"insurance_number,omitempty"`
	EmergencyContact  string          `db:"emergency_contact" json:"emergency_contact,omitempty"`
	ProfileImageURL   string          `db:"profile_image_url" json:"profile_image_url,omitempty"`
	QRCode            string          `db:"qr_code" json:"qr_code"`
	CRMContactID      string          `db:"crm_contact_id" json:"crm_contact_id,omitempty"`
	MedicalRecords    []MedicalRecord `json:"medical_records"`
	VaccineRecords    []VaccineRecord `json:"vaccine_records"`
	Notes             []Note          `json:"notes"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// MedicalRecord is a single clinical entry. Records are append-only: once
// created they are never updated or deleted.
type MedicalRecord struct {
	ID          string `db:"id" json:"id"`
	Date        string `db:"record_date" json:"date"`
	Description string `db:"description" json:"description"`
	Treatment   string `db:"treatment" json:"treatment"`
	Medication  string `db:"medication" json:"medication"`
	Physician   string `db:"physician" json:"physician"`
	FollowUp    string `db:"follow_up" json:"follow_up,omitempty"`
	ImageURL    string `db:"image_url" json:"image_url,omitempty"`
}

// VaccineRecord is a single immunization entry, append-only like
// MedicalRecord.
type VaccineRecord struct {
	ID             string `db:"id" json:"id"`
	Date           string `db:"administered_date" json:"date"`
	VaccineName    string `db:"vaccine_name" json:"vaccine_name"`
	Manufacturer   string `db:"manufacturer" json:"manufacturer"`
	LotNumber      string `db:"lot_number" json:"lot_number"`
	ExpirationDate string `db:"expiration_date" json:"expiration_date"`
	AdministeredBy string `db:"administered_by" json:"administered_by"`
	NextDueDate    string `db:"next_due_date" json:"next_due_date"`
}

// Note is free-text commentary on a patient. Private notes are visible to
// staff only.
type Note struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"note_date" json:"date"`
	Title     string `db:"title" json:"title"`
	Content   string `db:"content" json:"content"`
	CreatedBy string `db:"created_by" json:"created_by"`
	Private   bool   `db:"is_private" json:"is_private"`
}

// VisibleNotes filters notes by role. Patient-role callers never see private
// notes; staff see everything. Input order is preserved.
func VisibleNotes(notes []Note, role identity.Role) []Note {
	if role.IsStaff() {
		return notes
	}
	visible := make([]Note, 0, len(notes))
	for _, n := range notes {
		if !n.Private {
			visible = append(visible, n)
		}
	}
	return visible
}

// NewAccessToken generates a random access token for QR lookup. Uniqueness
// against the store is the repository's responsibility; it retries on the
// (unlikely) collision.
func NewAccessToken() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(err)
	}
	return "mq-" + hex.EncodeToString(buf[:])
}
