package controller

import (
	"context"
	"net/http"

	"kandang-monitor/internal/types"
)

// CoopService is what the HTTP API needs from the coop service.
type CoopService interface {
	Snapshot() types.Snapshot
	History(ctx context.Context) (types.HistorySeries, error)
	Tally(ctx context.Context) types.CoopTally
	DeviceStatus(device string) (string, error)
	SetDevice(ctx context.Context, device, action string) (string, error)
	Status() types.ServerStatus
}

type CoopController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type coopControllerImpl struct {
	service CoopService
}

func NewCoopController(service CoopService) CoopController {
	return &coopControllerImpl{service: service}
}

// RegisterRoutes mounts the controller API the dashboard polls.
func (c *coopControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/temp", c.handleTemp)
	mux.HandleFunc("GET /api/temp-history", c.handleHistory)
	mux.HandleFunc("GET /api/kandang", c.handleKandang)
	mux.HandleFunc("GET /api/status", c.handleStatus)
	mux.HandleFunc("GET /api/{device}/status", c.handleDeviceStatus)
	mux.HandleFunc("POST /api/{device}", c.handleSetDevice)
}
