package coop

import (
	"net/http"

	"kandang-monitor/internal/modules/coop/controller"
	"kandang-monitor/internal/modules/coop/service"
	"kandang-monitor/internal/mqtt"
)

// RegisterFeature mounts the controller API and feeds MQTT telemetry into svc.
func RegisterFeature(mux *http.ServeMux, svc *service.Service, subscriber mqtt.Subscriber) {
	if subscriber != nil {
		subscriber.SetMessageHandler(svc.HandleTelemetry)
	}
	controller.NewCoopController(svc).RegisterRoutes(mux)
}
