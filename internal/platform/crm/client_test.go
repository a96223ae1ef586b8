package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Settings{
		APIKey:     "test-key",
		LocationID: "loc-1",
		BaseURL:    srv.URL,
	}, zerolog.Nop())
}

func TestCreateContact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/contacts" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var contact Contact
		if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
			t.Fatal(err)
		}
		if contact.LocationID != "loc-1" {
			t.Errorf("LocationID = %q, want loc-1", contact.LocationID)
		}
		contact.ID = "c-42"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(contactEnvelope{Contact: &contact})
	})

	created, err := client.CreateContact(context.Background(), &Contact{Name: "John Smith", Phone: "(555) 123-4567"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if created.ID != "c-42" {
		t.Errorf("ID = %q, want c-42", created.ID)
	}
}

func TestNonSuccessStatusBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid phone"}`, http.StatusUnprocessableEntity)
	})

	_, err := client.CreateContact(context.Background(), &Contact{Name: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
}

func TestCreateNote(t *testing.T) {
	var gotPath, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotBody = payload["body"]
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.CreateNote(context.Background(), "c-42", "Annual checkup on 2023-05-10"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if gotPath != "/contacts/c-42/notes" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != "Annual checkup on 2023-05-10" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestCreateAppointment(t *testing.T) {
	start := time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var appt Appointment
		if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
			t.Fatal(err)
		}
		if !appt.EndTime.Equal(start.Add(30 * time.Minute)) {
			t.Errorf("EndTime = %s", appt.EndTime)
		}
		appt.ID = "a-7"
		json.NewEncoder(w).Encode(appt)
	})

	created, err := client.CreateAppointment(context.Background(), &Appointment{
		ContactID: "c-42",
		Title:     "Regular Checkup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if created.ID != "a-7" {
		t.Errorf("ID = %q", created.ID)
	}
}

func TestBreakerOpensAfterServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.GetContact(ctx, "c-1"); err == nil {
			t.Fatal("expected error")
		}
	}

	// The next call should fail fast without reaching the server.
	_, err := client.GetContact(ctx, "c-1")
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("expected breaker error, got API error %v", err)
	}
	if err == nil {
		t.Fatal("expected open-breaker error")
	}
}

func TestUpdateSettingsKeepsBaseURL(t *testing.T) {
	client := NewClient(Settings{APIKey: "old", BaseURL: "https://crm.example.com"}, zerolog.Nop())
	client.UpdateSettings(Settings{APIKey: "new", LocationID: "loc-2"})

	got := client.Settings()
	if got.APIKey != "new" || got.LocationID != "loc-2" {
		t.Errorf("settings = %+v", got)
	}
	if got.BaseURL != "https://crm.example.com" {
		t.Errorf("BaseURL = %q, want original preserved", got.BaseURL)
	}
	if !client.Configured() {
		t.Error("Configured() = false")
	}
}
