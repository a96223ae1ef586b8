// Package seed loads the demo dataset: a handful of patients with clinical
// history plus one login per role. It backs local development and the demo
// environment; production deployments never run it.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mediq/mediq/internal/domain/identity"
	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scheduling"
)

type demoUser struct {
	username   string
	password   string
	role       identity.Role
	patientIDs []string
}

var demoUsers = []demoUser{
	{username: "doctor@mediq.com", password: "password123", role: identity.RolePhysician},
	{username: "nurse@mediq.com", password: "password123", role: identity.RoleNurse},
	{username: "admin@mediq.com", password: "password123", role: identity.RoleAdmin},
	{username: "patient@example.com", password: "password123", role: identity.RolePatient, patientIDs: []string{"pat001", "pat003"}},
}

func demoPatients() []*patient.Patient {
	return []*patient.Patient{
		{
			ID:                "pat001",
			Name:              "John Smith",
			DateOfBirth:       "1985-03-15",
			Gender:            patient.GenderMale,
			BloodType:         "O+",
			HeightCm:          180,
			WeightKg:          82,
			ContactPhone:      "555-0101",
			ContactEmail:      "john.smith@example.com",
			Address:           "42 Maple Street, Springfield",
			InsuranceProvider: "BlueShield",
			InsuranceNumber:   "BS-4415-9920",
			EmergencyContact:  "Mary Smith 555-0102",
			MedicalRecords: []patient.MedicalRecord{
				{
					ID:          "mr002",
					Date:        "2026-06-20",
					Description: "Sprained right ankle",
					Treatment:   "RICE protocol, compression bandage",
					Medication:  "Ibuprofen 400mg",
					Physician:   "Dr. Chen",
					FollowUp:    "2026-07-04",
				},
				{
					ID:          "mr001",
					Date:        "2026-01-12",
					Description: "Annual physical, all values in range",
					Treatment:   "None required",
					Physician:   "Dr. Chen",
				},
			},
			VaccineRecords: []patient.VaccineRecord{
				{
					ID:             "vr001",
					Date:           "2025-10-03",
					VaccineName:    "Influenza",
					Manufacturer:   "Sanofi",
					LotNumber:      "FLU-2025-1187",
					ExpirationDate: "2026-10-01",
					AdministeredBy: "Nurse Roberts",
					NextDueDate:    "2026-10-03",
				},
			},
			Notes: []patient.Note{
				{
					ID:        "n002",
					Date:      "2026-06-21",
					Title:     "Insurance follow-up",
					Content:   "Verify coverage for physiotherapy sessions.",
					CreatedBy: "admin@mediq.com",
					Private:   true,
				},
				{
					ID:        "n001",
					Date:      "2026-06-20",
					Title:     "Ankle care instructions",
					Content:   "Keep weight off the ankle for two weeks.",
					CreatedBy: "doctor@mediq.com",
				},
			},
		},
		{
			ID:           "pat002",
			Name:         "Maria Garcia",
			DateOfBirth:  "1992-11-08",
			Gender:       patient.GenderFemale,
			BloodType:    "A-",
			ContactPhone: "555-0201",
			ContactEmail: "maria.garcia@example.com",
			Address:      "7 Birch Lane, Springfield",
		},
		{
			ID:               "pat003",
			Name:             "Robert Smith",
			DateOfBirth:      "2011-05-30",
			Gender:           patient.GenderMale,
			ContactPhone:     "555-0101",
			EmergencyContact: "John Smith 555-0101",
		},
	}
}

func demoAppointments() []*scheduling.Appointment {
	return []*scheduling.Appointment{
		{
			ID:        "apt001",
			PatientID: "pat001",
			Date:      "2026-09-04",
			Time:      "10:00",
			Type:      "Follow-up",
			Doctor:    "Dr. Chen",
			Notes:     "Ankle recheck",
		},
		{
			ID:        "apt002",
			PatientID: "pat002",
			Date:      "2026-09-04",
			Time:      "11:30",
			Type:      "Check-up",
			Doctor:    "Dr. Patel",
		},
	}
}

// Load writes the demo dataset through the normal service layer so the data
// passes the same validation as real traffic. It is idempotent only for an
// empty store; callers run it once at startup or via the seed command.
func Load(ctx context.Context, users *identity.Service, patients *patient.Service, appointments *scheduling.Service, logger zerolog.Logger) error {
	for _, u := range demoUsers {
		if _, err := users.Register(ctx, u.username, u.password, u.role, u.patientIDs); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	for _, p := range demoPatients() {
		if _, err := patients.Create(ctx, p); err != nil {
			return fmt.Errorf("seed patient %s: %w", p.ID, err)
		}
	}

	for _, a := range demoAppointments() {
		if _, err := appointments.Create(ctx, a); err != nil {
			return fmt.Errorf("seed appointment %s: %w", a.ID, err)
		}
	}

	logger.Info().
		Int("users", len(demoUsers)).
		Int("patients", len(demoPatients())).
		Msg("demo data loaded")
	return nil
}
