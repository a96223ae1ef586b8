// Package crm is a client for the GoHighLevel REST API, the third-party CRM
// the clinic pushes contacts, appointments and record notes to. Calls are
// fire-and-forget from the caller's point of view: a failure is reported, not
// retried.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Settings are the CRM credentials. They can be replaced at runtime through
// the admin settings endpoint, mirroring how the clinic staff rotate API keys.
type Settings struct {
	APIKey     string `json:"api_key"`
	LocationID string `json:"location_id"`
	BaseURL    string `json:"base_url"`
}

// APIError is returned for any non-2xx CRM response, carrying the status code
// so callers can report the raw failure reason.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: %s failed: status %d", e.Op, e.StatusCode)
}

// Contact is the CRM's patient/contact record shape.
type Contact struct {
	ID         string   `json:"id,omitempty"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Address1   string   `json:"address1,omitempty"`
	LocationID string   `json:"locationId,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Appointment is the CRM's appointment shape.
type Appointment struct {
	ID        string    `json:"id,omitempty"`
	ContactID string    `json:"contactId"`
	Title     string    `json:"title,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Notes     string    `json:"notes,omitempty"`
}

type Client struct {
	mu       sync.RWMutex
	settings Settings

	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

func NewClient(settings Settings, logger zerolog.Logger) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "crm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// 4xx responses are the caller's problem, not a CRM outage.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("crm breaker state change")
		},
	})
	return c
}

// Settings returns the current CRM credentials.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// UpdateSettings replaces the CRM credentials.
func (c *Client) UpdateSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.BaseURL == "" {
		s.BaseURL = c.settings.BaseURL
	}
	c.settings = s
}

// Configured reports whether an API key is present. Unconfigured clients make
// the CRM integration a no-op rather than an error source.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.APIKey != ""
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out interface{}) error {
	settings := c.Settings()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("crm: marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, settings.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("crm: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("crm: %s: %w", op, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("crm: read %s response: %w", op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("crm: decode %s response: %w", op, err)
		}
	}
	return nil
}

type contactEnvelope struct {
	Contact *Contact `json:"contact"`
}

// CreateContact creates a contact for a patient and returns it with the
// CRM-assigned id.
func (c *Client) CreateContact(ctx context.Context, contact *Contact) (*Contact, error) {
	if contact.LocationID == "" {
		contact.LocationID = c.Settings().LocationID
	}
	var env contactEnvelope
	if err := c.do(ctx, "create contact", http.MethodPost, "/contacts", contact, &env); err != nil {
		return nil, err
	}
	if env.Contact == nil {
		return contact, nil
	}
	return env.Contact, nil
}

// GetContact fetches a contact by its CRM id.
func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var env contactEnvelope
	if err := c.do(ctx, "fetch contact", http.MethodGet, "/contacts/"+contactID, nil, &env); err != nil {
		return nil, err
	}
	if env.Contact == nil {
		return nil, fmt.Errorf("crm: contact %s missing from response", contactID)
	}
	return env.Contact, nil
}

// CreateAppointment books an appointment against a contact.
func (c *Client) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	var created Appointment
	if err := c.do(ctx, "create appointment", http.MethodPost, "/appointments", appt, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		created = *appt
	}
	return &created, nil
}

type appointmentsEnvelope struct {
	Appointments []Appointment `json:"appointments"`
}

// ListContactAppointments returns the appointments booked for a contact.
func (c *Client) ListContactAppointments(ctx context.Context, contactID string) ([]Appointment, error) {
	var env appointmentsEnvelope
	if err := c.do(ctx, "fetch appointments", http.MethodGet, "/appointments?contactId="+contactID, nil, &env); err != nil {
		return nil, err
	}
	return env.Appointments, nil
}

// CreateNote attaches a free-text note to a contact. Used to mirror medical
// records into the CRM.
func (c *Client) CreateNote(ctx context.Context, contactID, body string) error {
	payload := map[string]string{"body": body}
	return c.do(ctx, "create note", http.MethodPost, "/contacts/"+contactID+"/notes", payload, nil)
}

// UploadFile uploads an attachment (X-ray images and similar) and returns the
// hosted URL.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	settings := c.Settings()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("crm: build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("crm: write upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("crm: close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.BaseURL+"/files/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("crm: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("crm: upload file: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("crm: read upload response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Op: "upload file", StatusCode: resp.StatusCode, Body: string(data)}
		}
		return data, nil
	})
	if err != nil {
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("crm: decode upload response: %w", err)
	}
	return result.URL, nil
}
