package crm

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/platform/auth"
)

// maxUploadBytes caps record attachments (X-ray images and similar).
const maxUploadBytes = 10 << 20

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole("admin")
	api.GET("/settings/crm", h.GetSettings, admin)
	api.PUT("/settings/crm", h.UpdateSettings, admin)
	api.POST("/uploads", h.UploadFile, auth.RequireStaff())
}

// settingsView hides the API key from reads; the UI only needs to know
// whether one is set.
type settingsView struct {
	Configured bool   `json:"configured"`
	LocationID string `json:"location_id"`
	BaseURL    string `json:"base_url"`
}

func (h *Handler) GetSettings(c echo.Context) error {
	s := h.client.Settings()
	return c.JSON(http.StatusOK, settingsView{
		Configured: s.APIKey != "",
		LocationID: s.LocationID,
		BaseURL:    s.BaseURL,
	})
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var s Settings
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.APIKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "api_key is required")
	}
	if s.LocationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "location_id is required")
	}

	h.client.UpdateSettings(s)
	updated := h.client.Settings()
	return c.JSON(http.StatusOK, settingsView{
		Configured: true,
		LocationID: updated.LocationID,
		BaseURL:    updated.BaseURL,
	})
}

// UploadFile pushes a record attachment to the CRM's file store and returns
// the hosted URL for the caller to put on the record.
func (h *Handler) UploadFile(c echo.Context) error {
	if !h.client.Configured() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "crm integration is not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds the 10MB limit")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	url, err := h.client.UploadFile(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": url})
}
