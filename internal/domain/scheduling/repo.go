package scheduling

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an appointment lookup misses.
var ErrNotFound = errors.New("appointment not found")

// Repository stores appointments. Listings are ordered by visit date and time
// ascending, soonest first.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	CountOnDate(ctx context.Context, date string) (int, error)
}
