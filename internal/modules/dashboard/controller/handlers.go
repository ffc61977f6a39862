package controller

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"kandang-monitor/internal/modules/dashboard/poller"
	"kandang-monitor/internal/modules/dashboard/views"
	"kandang-monitor/internal/utils"
)

type renderFunc func(io.Writer, *views.PageData) error

func (c *dashboardControllerImpl) pageData() *views.PageData {
	return views.NewPageData(c.board.Snapshot(), c.refresh)
}

func (c *dashboardControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, c.pageData()); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, &buf)
}

func (c *dashboardControllerImpl) partial(render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := render(&buf, c.pageData()); err != nil {
			slog.Error("dashboard partial render failed", "path", r.URL.Path, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to render")
			return
		}
		utils.WriteHTML(w, &buf)
	}
}

// handleToggle flips the device and answers with the refreshed device cards.
func (c *dashboardControllerImpl) handleToggle(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	if err := c.toggler.Toggle(r.Context(), device); err != nil {
		if errors.Is(err, poller.ErrUnknownDevice) {
			utils.WriteError(w, http.StatusNotFound, "unknown device")
			return
		}
		slog.Error("dashboard toggle failed", "device", device, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "toggle failed")
		return
	}
	c.partial(views.RenderDevicesPartial)(w, r)
}
