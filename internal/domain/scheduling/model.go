package scheduling

import (
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// Slots are a fixed half hour; the booking form does not take a duration.
	slotDuration = 30 * time.Minute
)

// AppointmentTypes is the closed list of visit types the clinic books.
var AppointmentTypes = []string{
	"Check-up",
	"Follow-up",
	"Vaccination",
	"Consultation",
	"Lab Work",
	"Imaging",
}

func ValidAppointmentType(t string) bool {
	for _, v := range AppointmentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Appointment maps to the appointment table. Date and Time are kept as the
// strings the booking form submits; StartTime derives the wall-clock instant.
type Appointment struct {
	ID          string    `db:"id" json:"id"`
	PatientID   string    `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Date        string    `db:"visit_date" json:"date"`
	Time        string    `db:"visit_time" json:"time"`
	Type        string    `db:"visit_type" json:"type"`
	Doctor      string    `db:"doctor" json:"doctor"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CRMEventID  string    `db:"crm_event_id" json:"crm_event_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StartTime parses the appointment's date and time in the local zone.
func (a *Appointment) StartTime() (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, a.Date+" "+a.Time, time.Local)
}

// EndTime is StartTime plus the fixed slot duration.
func (a *Appointment) EndTime() (time.Time, error) {
	start, err := a.StartTime()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(slotDuration), nil
}
