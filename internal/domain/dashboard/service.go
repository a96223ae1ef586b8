package dashboard

import (
	"context"
	"time"
)

// PatientCounter is the slice of the patient store the dashboard reads.
type PatientCounter interface {
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// AppointmentCounter is the slice of the appointment store the dashboard
// reads.
type AppointmentCounter interface {
	CountOnDate(ctx context.Context, date string) (int, error)
}

// Statistics is the summary block rendered at the top of the dashboard.
type Statistics struct {
	TotalPatients     int             `json:"total_patients"`
	NewPatientsWeek   int             `json:"new_patients_week"`
	AppointmentsToday int             `json:"appointments_today"`
	RecentActivity    []ActivityEntry `json:"recent_activity"`
}

type Service struct {
	patients     PatientCounter
	appointments AppointmentCounter
	activity     *ActivityLog
	now          func() time.Time
}

func NewService(patients PatientCounter, appointments AppointmentCounter, activity *ActivityLog) *Service {
	return &Service{patients: patients, appointments: appointments, activity: activity, now: time.Now}
}

// Statistics assembles the dashboard summary.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	now := s.now()

	total, err := s.patients.Count(ctx)
	if err != nil {
		return nil, err
	}
	newThisWeek, err := s.patients.CountCreatedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	today, err := s.appointments.CountOnDate(ctx, now.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	return &Statistics{
		TotalPatients:     total,
		NewPatientsWeek:   newThisWeek,
		AppointmentsToday: today,
		RecentActivity:    s.activity.Recent(10),
	}, nil
}
