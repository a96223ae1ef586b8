package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/platform/crm"
)

// PatientDirectory is the slice of the patient store scheduling needs: enough
// to resolve a booking's patient and their CRM contact.
type PatientDirectory interface {
	GetByID(ctx context.Context, id string) (*patient.Patient, error)
}

// ActivityRecorder collects human-readable entries for the dashboard feed.
type ActivityRecorder interface {
	Record(action string)
}

// Service books appointments and mirrors them into the CRM calendar. The CRM
// push is fire-and-forget: a booking succeeds locally even when the CRM is
// down or unconfigured.
type Service struct {
	repo     Repository
	patients PatientDirectory
	crm      *crm.Client
	activity ActivityRecorder
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, crmClient *crm.Client, activity ActivityRecorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, crm: crmClient, activity: activity, logger: logger}
}

func (s *Service) record(action string) {
	if s.activity != nil {
		s.activity.Record(action)
	}
}

func (s *Service) validate(a *Appointment) error {
	if a.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if a.Doctor == "" {
		return fmt.Errorf("doctor is required")
	}
	if !ValidAppointmentType(a.Type) {
		return fmt.Errorf("type must be one of %v", AppointmentTypes)
	}
	if _, err := time.Parse(dateLayout, a.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, a.Time); err != nil {
		return fmt.Errorf("time must be HH:MM")
	}
	return nil
}

// Create books an appointment. The patient must exist; the booking inherits
// the patient's name when the caller leaves it blank.
func (s *Service) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := s.validate(a); err != nil {
		return nil, err
	}

	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}
	if a.PatientName == "" {
		a.PatientName = p.Name
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.record("Appointment booked for " + created.PatientName + " on " + created.Date)

	if eventID := s.pushToCRM(ctx, created, p); eventID != "" {
		created.CRMEventID = eventID
		if created, err = s.repo.Update(ctx, created); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// pushToCRM mirrors the booking as a CRM appointment and returns the CRM
// event id, or "" when the push is skipped or fails.
func (s *Service) pushToCRM(ctx context.Context, a *Appointment, p *patient.Patient) string {
	if s.crm == nil || !s.crm.Configured() || p.CRMContactID == "" {
		return ""
	}

	start, err := a.StartTime()
	if err != nil {
		return ""
	}
	end, _ := a.EndTime()

	event, err := s.crm.CreateAppointment(ctx, &crm.Appointment{
		ContactID: p.CRMContactID,
		Title:     a.Type + " with " + a.Doctor,
		StartTime: start,
		EndTime:   end,
		Notes:     a.Notes,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("crm appointment push failed")
		return ""
	}
	return event.ID
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Update reschedules or edits an existing booking.
func (s *Service) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := s.validate(a); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if a.CRMEventID == "" {
		a.CRMEventID = existing.CRMEventID
	}
	if a.PatientName == "" {
		a.PatientName = existing.PatientName
	}

	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return nil, err
	}
	s.record("Appointment for " + updated.PatientName + " rescheduled to " + updated.Date)
	return updated, nil
}

// Cancel removes a booking.
func (s *Service) Cancel(ctx context.Context, id string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record("Appointment for " + a.PatientName + " on " + a.Date + " cancelled")
	return nil
}

// CountOnDate reports how many appointments fall on the given day.
func (s *Service) CountOnDate(ctx context.Context, date string) (int, error) {
	return s.repo.CountOnDate(ctx, date)
}
