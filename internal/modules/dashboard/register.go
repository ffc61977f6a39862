package dashboard

import (
	"net/http"

	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/controller"
	"kandang-monitor/internal/modules/dashboard/poller"
	"kandang-monitor/internal/modules/dashboard/views"
)

func RegisterFeature(mux *http.ServeMux, b *board.Board, p *poller.Poller, intervals poller.Intervals) {
	refresh := views.NewRefresh(intervals.Devices, intervals.History, intervals.Clock)
	controller.NewDashboardController(b, p, refresh).RegisterRoutes(mux)
}
