package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/domain/identity"
	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireStaff()

	// Reads shared by staff and patient-role users; access is resolved
	// per-request against the caller's grant list.
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/patients/:id/medical-records", h.ListMedicalRecords)
	api.GET("/patients/:id/vaccine-records", h.ListVaccineRecords)
	api.GET("/patients/:id/notes", h.ListNotes)

	write := api.Group("", staff)
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.GET("/patients/qr/:code", h.GetPatientByQRCode)
	write.POST("/patients/:id/medical-records", h.AddMedicalRecord)
	write.POST("/patients/:id/vaccine-records", h.AddVaccineRecord)
	write.POST("/patients/:id/notes", h.AddNote)
}

func callerIdentity(c echo.Context) (identity.Role, []string) {
	ctx := c.Request().Context()
	role, _ := identity.ParseRole(auth.RoleFromContext(ctx))
	return role, auth.PatientIDsFromContext(ctx)
}

// redact trims the payload to what the caller's role may see. Staff get the
// record as stored; patient-role callers lose private notes.
func redact(p *Patient, role identity.Role) *Patient {
	if role.IsStaff() {
		return p
	}
	cp := *p
	cp.Notes = VisibleNotes(p.Notes, role)
	return &cp
}

func (h *Handler) ListPatients(c echo.Context) error {
	role, ownedIDs := callerIdentity(c)

	if !role.IsStaff() {
		items, err := h.svc.ListOwned(c.Request().Context(), ownedIDs)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		for i, p := range items {
			items[i] = redact(p, role)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), len(items), 0))
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	role, ownedIDs := callerIdentity(c)
	id := c.Param("id")

	if !identity.CanAccess(role, ownedIDs, id) {
		return echo.NewHTTPError(http.StatusForbidden, "access to this patient is not permitted")
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, redact(p, role))
}

// loadAccessible fetches a patient after resolving the caller's access.
func (h *Handler) loadAccessible(c echo.Context) (*Patient, identity.Role, error) {
	role, ownedIDs := callerIdentity(c)
	id := c.Param("id")

	if !identity.CanAccess(role, ownedIDs, id) {
		return nil, role, echo.NewHTTPError(http.StatusForbidden, "access to this patient is not permitted")
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, role, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return nil, role, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return p, role, nil
}

func (h *Handler) ListMedicalRecords(c echo.Context) error {
	p, _, err := h.loadAccessible(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.MedicalRecords)
}

func (h *Handler) ListVaccineRecords(c echo.Context) error {
	p, _, err := h.loadAccessible(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.VaccineRecords)
}

func (h *Handler) ListNotes(c echo.Context) error {
	role, ownedIDs := callerIdentity(c)
	id := c.Param("id")

	if !identity.CanAccess(role, ownedIDs, id) {
		return echo.NewHTTPError(http.StatusForbidden, "access to this patient is not permitted")
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, VisibleNotes(p.Notes, role))
}

func (h *Handler) GetPatientByQRCode(c echo.Context) error {
	p, err := h.svc.GetByQRCode(c.Request().Context(), c.Param("code"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Create(c.Request().Context(), &p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = c.Param("id")
	updated, err := h.svc.Update(c.Request().Context(), &p)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) AddMedicalRecord(c echo.Context) error {
	var rec MedicalRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, ok, err := h.svc.AddMedicalRecord(c.Request().Context(), c.Param("id"), rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) AddVaccineRecord(c echo.Context) error {
	var rec VaccineRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, ok, err := h.svc.AddVaccineRecord(c.Request().Context(), c.Param("id"), rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) AddNote(c echo.Context) error {
	var n Note
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if n.CreatedBy == "" {
		n.CreatedBy = auth.UsernameFromContext(c.Request().Context())
	}
	n, ok, err := h.svc.AddNote(c.Request().Context(), c.Param("id"), n)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusCreated, n)
}
