package controller

import (
	"context"
	"net/http"

	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/views"
)

// StateSource provides what the page currently shows.
type StateSource interface {
	Snapshot() board.State
}

type Toggler interface {
	Toggle(ctx context.Context, device string) error
}

type DashboardController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type dashboardControllerImpl struct {
	board   StateSource
	toggler Toggler
	refresh views.Refresh
}

func NewDashboardController(b StateSource, t Toggler, refresh views.Refresh) DashboardController {
	return &dashboardControllerImpl{board: b, toggler: t, refresh: refresh}
}

func (c *dashboardControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /dashboard/partials/readings", c.partial(views.RenderReadingsPartial))
	mux.HandleFunc("GET /dashboard/partials/devices", c.partial(views.RenderDevicesPartial))
	mux.HandleFunc("GET /dashboard/partials/chart", c.partial(views.RenderChartPartial))
	mux.HandleFunc("GET /dashboard/partials/clock", c.partial(views.RenderClockPartial))
	mux.HandleFunc("POST /dashboard/devices/{device}/toggle", c.handleToggle)
}
