package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Notifier mirrors patient activity into the external CRM. Calls are
// fire-and-forget: implementations report failures through their own logging
// and never block a local mutation from succeeding.
type Notifier interface {
	// PatientRegistered creates a CRM contact and returns its id, or "" when
	// the CRM is unavailable or not configured.
	PatientRegistered(ctx context.Context, p *Patient) string
	// MedicalRecordAdded mirrors a new record as a CRM note on the contact.
	MedicalRecordAdded(ctx context.Context, contactID string, p *Patient, rec MedicalRecord)
}

// ActivityRecorder collects human-readable entries for the dashboard feed.
type ActivityRecorder interface {
	Record(action string)
}

// Service owns patient validation and store mutations. notifier and activity
// may be nil when those integrations are disabled.
type Service struct {
	repo     Repository
	notifier Notifier
	activity ActivityRecorder
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, activity ActivityRecorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, activity: activity, logger: logger}
}

func (s *Service) record(action string) {
	if s.activity != nil {
		s.activity.Record(action)
	}
}

func validatePatient(p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.ContactPhone == "" {
		return fmt.Errorf("contact_phone is required")
	}
	if !p.Gender.Valid() {
		return fmt.Errorf("gender must be Male, Female or Other")
	}
	if p.DateOfBirth != "" {
		if _, err := time.Parse(dateLayout, p.DateOfBirth); err != nil {
			return fmt.Errorf("date_of_birth must be YYYY-MM-DD")
		}
	}
	return nil
}

// Create registers a new patient. The store generates the id and access
// token when the caller does not supply them.
func (s *Service) Create(ctx context.Context, p *Patient) (*Patient, error) {
	if err := validatePatient(p); err != nil {
		return nil, err
	}

	created, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	s.record("Patient " + created.Name + " registered")

	if s.notifier != nil {
		if contactID := s.notifier.PatientRegistered(ctx, created); contactID != "" {
			created.CRMContactID = contactID
			if created, err = s.repo.Upsert(ctx, created); err != nil {
				return nil, err
			}
		}
	}
	return created, nil
}

// Update replaces an existing patient in place. Unlike Create it refuses
// unknown ids rather than inserting.
func (s *Service) Update(ctx context.Context, p *Patient) (*Patient, error) {
	if err := validatePatient(p); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if p.CRMContactID == "" {
		p.CRMContactID = existing.CRMContactID
	}

	updated, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	s.record("Patient " + updated.Name + " updated")
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByQRCode resolves a patient from a scanned access token.
func (s *Service) GetByQRCode(ctx context.Context, code string) (*Patient, error) {
	return s.repo.GetByQRCode(ctx, code)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListOwned returns the patients in a patient-role user's grant list.
func (s *Service) ListOwned(ctx context.Context, ownedIDs []string) ([]*Patient, error) {
	if len(ownedIDs) == 0 {
		return []*Patient{}, nil
	}
	return s.repo.ListByIDs(ctx, ownedIDs)
}

// AddMedicalRecord appends a record to the patient's history, filling in a
// generated id and today's date when absent. The bool is false when the
// patient does not exist.
func (s *Service) AddMedicalRecord(ctx context.Context, patientID string, rec MedicalRecord) (MedicalRecord, bool, error) {
	if rec.Description == "" {
		return rec, false, fmt.Errorf("description is required")
	}
	if rec.Physician == "" {
		return rec, false, fmt.Errorf("physician is required")
	}
	fillRecordDefaults(&rec.ID, &rec.Date)
	if _, err := time.Parse(dateLayout, rec.Date); err != nil {
		return rec, false, fmt.Errorf("date must be YYYY-MM-DD")
	}

	ok, err := s.repo.AddMedicalRecord(ctx, patientID, rec)
	if err != nil || !ok {
		return rec, ok, err
	}
	s.record("Medical record added for patient " + patientID)

	if s.notifier != nil {
		if p, err := s.repo.GetByID(ctx, patientID); err == nil && p.CRMContactID != "" {
			s.notifier.MedicalRecordAdded(ctx, p.CRMContactID, p, rec)
		}
	}
	return rec, true, nil
}

// AddVaccineRecord appends a vaccine record. The bool is false when the
// patient does not exist.
func (s *Service) AddVaccineRecord(ctx context.Context, patientID string, rec VaccineRecord) (VaccineRecord, bool, error) {
	if rec.VaccineName == "" {
		return rec, false, fmt.Errorf("vaccine_name is required")
	}
	if rec.AdministeredBy == "" {
		return rec, false, fmt.Errorf("administered_by is required")
	}
	fillRecordDefaults(&rec.ID, &rec.Date)
	if _, err := time.Parse(dateLayout, rec.Date); err != nil {
		return rec, false, fmt.Errorf("date must be YYYY-MM-DD")
	}

	ok, err := s.repo.AddVaccineRecord(ctx, patientID, rec)
	if err != nil || !ok {
		return rec, ok, err
	}
	s.record("Vaccine record added for patient " + patientID)
	return rec, true, nil
}

// AddNote appends a note. The bool is false when the patient does not exist.
func (s *Service) AddNote(ctx context.Context, patientID string, n Note) (Note, bool, error) {
	if n.Title == "" {
		return n, false, fmt.Errorf("title is required")
	}
	if n.Content == "" {
		return n, false, fmt.Errorf("content is required")
	}
	if n.CreatedBy == "" {
		return n, false, fmt.Errorf("created_by is required")
	}
	fillRecordDefaults(&n.ID, &n.Date)
	if _, err := time.Parse(dateLayout, n.Date); err != nil {
		return n, false, fmt.Errorf("date must be YYYY-MM-DD")
	}

	ok, err := s.repo.AddNote(ctx, patientID, n)
	if err != nil || !ok {
		return n, ok, err
	}
	s.record("Note added for patient " + patientID)
	return n, true, nil
}

func fillRecordDefaults(id, date *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if *date == "" {
		*date = time.Now().Format(dateLayout)
	}
}
