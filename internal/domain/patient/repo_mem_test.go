package patient

import (
	"context"
	"testing"
	"time"
)

func seedPatient(t *testing.T, repo Repository, p *Patient) *Patient {
	t.Helper()
	created, err := repo.Upsert(context.Background(), p)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return created
}

func TestMemRepoUpsertGeneratesIdentifiers(t *testing.T) {
	repo := NewMemRepo()
	created := seedPatient(t, repo, &Patient{Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101"})

	if created.ID == "" {
		t.Error("expected a generated id")
	}
	if created.QRCode == "" {
		t.Error("expected a generated access token")
	}
	if created.MedicalRecords == nil || created.VaccineRecords == nil || created.Notes == nil {
		t.Error("record collections should be initialized empty, not nil")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestMemRepoUpsertKeepsSuppliedIdentifiers(t *testing.T) {
	repo := NewMemRepo()
	created := seedPatient(t, repo, &Patient{
		ID: "pat001", QRCode: "mq-abc123def456",
		Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101",
	})
	if created.ID != "pat001" || created.QRCode != "mq-abc123def456" {
		t.Fatalf("supplied identifiers were replaced: %s / %s", created.ID, created.QRCode)
	}

	got, err := repo.GetByQRCode(context.Background(), "mq-abc123def456")
	if err != nil {
		t.Fatalf("GetByQRCode: %v", err)
	}
	if got.ID != "pat001" {
		t.Fatalf("GetByQRCode returned %s, want pat001", got.ID)
	}
}

func TestMemRepoListNewestFirst(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "p1", Name: "First", Gender: GenderMale, ContactPhone: "1"})
	seedPatient(t, repo, &Patient{ID: "p2", Name: "Second", Gender: GenderFemale, ContactPhone: "2"})
	seedPatient(t, repo, &Patient{ID: "p3", Name: "Third", Gender: GenderOther, ContactPhone: "3"})

	items, total, err := repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	for i, want := range []string{"p3", "p2", "p1"} {
		if items[i].ID != want {
			t.Errorf("items[%d] = %s, want %s", i, items[i].ID, want)
		}
	}
}

func TestMemRepoUpsertUpdatesInPlace(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "p1", Name: "First", Gender: GenderMale, ContactPhone: "1"})
	orig := seedPatient(t, repo, &Patient{ID: "p2", Name: "Second", Gender: GenderFemale, ContactPhone: "2"})

	updated := seedPatient(t, repo, &Patient{
		ID: "p1", QRCode: orig.QRCode, Name: "First Renamed", Gender: GenderMale, ContactPhone: "1",
	})
	if updated.Name != "First Renamed" {
		t.Fatalf("name = %s, want First Renamed", updated.Name)
	}

	items, _, err := repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("update should not insert, got %d patients", len(items))
	}
	if items[0].ID != "p2" || items[1].ID != "p1" {
		t.Fatalf("update moved the patient: got [%s %s]", items[0].ID, items[1].ID)
	}
}

func TestMemRepoAddMedicalRecordPrepends(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{
		ID: "pat001", Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101",
		MedicalRecords: []MedicalRecord{{ID: "mr001", Description: "Annual physical"}},
	})

	rec := MedicalRecord{ID: "mr002", Date: "2026-08-01", Description: "Sprained ankle", Physician: "Dr. Chen"}
	ok, err := repo.AddMedicalRecord(context.Background(), "pat001", rec)
	if err != nil || !ok {
		t.Fatalf("AddMedicalRecord = %v, %v", ok, err)
	}

	p, err := repo.GetByID(context.Background(), "pat001")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(p.MedicalRecords) != 2 {
		t.Fatalf("got %d records, want 2", len(p.MedicalRecords))
	}
	if p.MedicalRecords[0].ID != "mr002" {
		t.Errorf("newest record should be first, got %s", p.MedicalRecords[0].ID)
	}
	if p.MedicalRecords[1].ID != "mr001" {
		t.Errorf("existing record should be preserved after the new one, got %s", p.MedicalRecords[1].ID)
	}
}

func TestMemRepoAddToMissingPatient(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "pat001", Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101"})

	ctx := context.Background()
	ok, err := repo.AddMedicalRecord(ctx, "pat999", MedicalRecord{ID: "mr001", Description: "x", Physician: "y"})
	if err != nil {
		t.Fatalf("missing patient should not be an error: %v", err)
	}
	if ok {
		t.Fatal("AddMedicalRecord should report false for a missing patient")
	}

	if ok, _ := repo.AddVaccineRecord(ctx, "pat999", VaccineRecord{ID: "v1"}); ok {
		t.Fatal("AddVaccineRecord should report false for a missing patient")
	}
	if ok, _ := repo.AddNote(ctx, "pat999", Note{ID: "n1"}); ok {
		t.Fatal("AddNote should report false for a missing patient")
	}

	// The store must be untouched.
	p, err := repo.GetByID(ctx, "pat001")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(p.MedicalRecords) != 0 || len(p.VaccineRecords) != 0 || len(p.Notes) != 0 {
		t.Fatal("failed append modified an unrelated patient")
	}
	if _, total, _ := repo.List(ctx, 10, 0); total != 1 {
		t.Fatalf("store size changed to %d", total)
	}
}

func TestMemRepoAddNotePrepends(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "pat001", Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101"})

	ctx := context.Background()
	for _, n := range []Note{
		{ID: "n001", Title: "first"},
		{ID: "n002", Title: "second", Private: true},
	} {
		if ok, err := repo.AddNote(ctx, "pat001", n); err != nil || !ok {
			t.Fatalf("AddNote(%s) = %v, %v", n.ID, ok, err)
		}
	}

	p, _ := repo.GetByID(ctx, "pat001")
	if len(p.Notes) != 2 || p.Notes[0].ID != "n002" || p.Notes[1].ID != "n001" {
		t.Fatalf("notes not newest-first: %v", p.Notes)
	}
}

func TestMemRepoReturnsCopies(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "pat001", Name: "John Smith", Gender: GenderMale, ContactPhone: "555-0101"})

	ctx := context.Background()
	got, _ := repo.GetByID(ctx, "pat001")
	got.Name = "Mutated"
	got.Notes = append(got.Notes, Note{ID: "rogue"})

	fresh, _ := repo.GetByID(ctx, "pat001")
	if fresh.Name != "John Smith" || len(fresh.Notes) != 0 {
		t.Fatal("mutating a returned patient leaked into the store")
	}
}

func TestMemRepoGetMissing(t *testing.T) {
	repo := NewMemRepo()
	if _, err := repo.GetByID(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByQRCode(context.Background(), "mq-nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemRepoListByIDs(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "p001", Name: "A", Gender: GenderMale, ContactPhone: "1"})
	seedPatient(t, repo, &Patient{ID: "p002", Name: "B", Gender: GenderFemale, ContactPhone: "2"})
	seedPatient(t, repo, &Patient{ID: "p004", Name: "C", Gender: GenderOther, ContactPhone: "3"})

	items, err := repo.ListByIDs(context.Background(), []string{"p001", "p004", "p999"})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d patients, want 2", len(items))
	}
	for _, p := range items {
		if p.ID == "p002" {
			t.Fatal("p002 is not in the grant list")
		}
	}
}

func TestMemRepoCountCreatedSince(t *testing.T) {
	repo := NewMemRepo()
	seedPatient(t, repo, &Patient{ID: "p1", Name: "A", Gender: GenderMale, ContactPhone: "1"})
	seedPatient(t, repo, &Patient{ID: "p2", Name: "B", Gender: GenderFemale, ContactPhone: "2"})

	count, err := repo.CountCreatedSince(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountCreatedSince: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	count, _ = repo.CountCreatedSince(context.Background(), time.Now().Add(time.Hour))
	if count != 0 {
		t.Fatalf("count = %d, want 0 for a future cutoff", count)
	}
}
