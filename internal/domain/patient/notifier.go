package patient

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mediq/mediq/internal/platform/crm"
)

// crmNotifier mirrors patient activity into the CRM. Failures are logged and
// swallowed so a CRM outage never blocks clinical writes.
type crmNotifier struct {
	client *crm.Client
	logger zerolog.Logger
}

func NewCRMNotifier(client *crm.Client, logger zerolog.Logger) Notifier {
	return &crmNotifier{client: client, logger: logger}
}

func (n *crmNotifier) PatientRegistered(ctx context.Context, p *Patient) string {
	if !n.client.Configured() {
		return ""
	}

	first, last := splitName(p.Name)
	contact, err := n.client.CreateContact(ctx, &crm.Contact{
		FirstName: first,
		LastName:  last,
		Name:      p.Name,
		Email:     p.ContactEmail,
		Phone:     p.ContactPhone,
		Address1:  p.Address,
		Tags:      []string{"patient"},
	})
	if err != nil {
		n.logger.Error().Err(err).Str("patient_id", p.ID).Msg("crm contact creation failed")
		return ""
	}
	return contact.ID
}

func (n *crmNotifier) MedicalRecordAdded(ctx context.Context, contactID string, p *Patient, rec MedicalRecord) {
	if !n.client.Configured() || contactID == "" {
		return
	}

	var b strings.Builder
	b.WriteString("Medical record " + rec.Date + "\n")
	b.WriteString("Description: " + rec.Description + "\n")
	if rec.Treatment != "" {
		b.WriteString("Treatment: " + rec.Treatment + "\n")
	}
	if rec.Medication != "" {
		b.WriteString("Medication: " + rec.Medication + "\n")
	}
	b.WriteString("Physician: " + rec.Physician)

	if err := n.client.CreateNote(ctx, contactID, b.String()); err != nil {
		n.logger.Error().Err(err).
			Str("patient_id", p.ID).
			Str("contact_id", contactID).
			Msg("crm record note failed")
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
