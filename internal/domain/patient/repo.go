package patient

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a patient lookup misses.
var ErrNotFound = errors.New("patient not found")

// Repository is the patient record store. Upsert generates missing ids and
// access tokens (unique within the store) and initializes empty record
// collections. The Add* operations prepend to the owning patient's
// collection and report false, not an error, when the patient does not
// exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByQRCode(ctx context.Context, code string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Patient, error)
	Upsert(ctx context.Context, p *Patient) (*Patient, error)

	AddMedicalRecord(ctx context.Context, patientID string, rec MedicalRecord) (bool, error)
	AddVaccineRecord(ctx context.Context, patientID string, rec VaccineRecord) (bool, error)
	AddNote(ctx context.Context, patientID string, n Note) (bool, error)

	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}
