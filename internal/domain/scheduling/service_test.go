package scheduling

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mediq/mediq/internal/domain/patient"
)

type fakeDirectory struct {
	patients map[string]*patient.Patient
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (*patient.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, patient.ErrNotFound
}

func newTestService() (*Service, *fakeDirectory) {
	dir := &fakeDirectory{patients: map[string]*patient.Patient{
		"pat001": {ID: "pat001", Name: "John Smith"},
	}}
	return NewService(NewMemRepo(), dir, nil, nil, zerolog.Nop()), dir
}

func validBooking() *Appointment {
	return &Appointment{
		PatientID: "pat001",
		Date:      "2026-09-10",
		Time:      "14:30",
		Type:      "Check-up",
		Doctor:    "Dr. Chen",
	}
}

func TestServiceCreate(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated id")
	}
	if created.PatientName != "John Smith" {
		t.Errorf("patient name not inherited: %q", created.PatientName)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Appointment)
	}{
		{"missing patient id", func(a *Appointment) { a.PatientID = "" }},
		{"missing doctor", func(a *Appointment) { a.Doctor = "" }},
		{"unknown type", func(a *Appointment) { a.Type = "Surgery" }},
		{"bad date", func(a *Appointment) { a.Date = "10/09/2026" }},
		{"bad time", func(a *Appointment) { a.Time = "2pm" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validBooking()
			tt.mutate(a)
			if _, err := svc.Create(ctx, a); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestServiceCreateUnknownPatient(t *testing.T) {
	svc, _ := newTestService()
	a := validBooking()
	a.PatientID = "pat999"
	if _, err := svc.Create(context.Background(), a); err != patient.ErrNotFound {
		t.Fatalf("err = %v, want patient.ErrNotFound", err)
	}
}

func TestServiceListOrdering(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, slot := range []struct{ date, time string }{
		{"2026-09-12", "09:00"},
		{"2026-09-10", "15:00"},
		{"2026-09-10", "08:30"},
	} {
		a := validBooking()
		a.Date, a.Time = slot.date, slot.time
		if _, err := svc.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	want := []struct{ date, time string }{
		{"2026-09-10", "08:30"},
		{"2026-09-10", "15:00"},
		{"2026-09-12", "09:00"},
	}
	for i, w := range want {
		if items[i].Date != w.date || items[i].Time != w.time {
			t.Errorf("items[%d] = %s %s, want %s %s", i, items[i].Date, items[i].Time, w.date, w.time)
		}
	}
}

func TestServiceUpdateAndCancel(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validBooking())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Time = "16:00"
	updated, err := svc.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Time != "16:00" {
		t.Errorf("time = %s, want 16:00", updated.Time)
	}

	if err := svc.Cancel(ctx, created.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound after cancel", err)
	}
	if err := svc.Cancel(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("second cancel err = %v, want ErrNotFound", err)
	}
}

func TestServiceCountOnDate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, date := range []string{"2026-09-10", "2026-09-10", "2026-09-11"} {
		a := validBooking()
		a.Date = date
		if _, err := svc.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	count, err := svc.CountOnDate(ctx, "2026-09-10")
	if err != nil {
		t.Fatalf("CountOnDate: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestAppointmentSlotTimes(t *testing.T) {
	a := &Appointment{Date: "2026-09-10", Time: "14:30"}

	start, err := a.StartTime()
	if err != nil {
		t.Fatalf("StartTime: %v", err)
	}
	end, err := a.EndTime()
	if err != nil {
		t.Fatalf("EndTime: %v", err)
	}
	if got := end.Sub(start); got != slotDuration {
		t.Fatalf("slot length = %v, want %v", got, slotDuration)
	}
	if start.Hour() != 14 || start.Minute() != 30 {
		t.Fatalf("start = %v, want 14:30", start)
	}
}
