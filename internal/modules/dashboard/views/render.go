package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"time"

	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/chart"
)

var dashboardTmpl *template.Template

var errNotLoaded = errors.New("dashboard template not loaded: call views.LoadTemplates during startup")

const (
	chartWidth  = 640
	chartHeight = 280
)

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	dashboardTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Refresh holds the HTMX polling cadences, e.g. "5s".
type Refresh struct {
	Devices string
	History string
	Clock   string
}

// NewRefresh formats polling cadences the way hx-trigger expects them.
func NewRefresh(devices, history, clock time.Duration) Refresh {
	return Refresh{Devices: interval(devices), History: interval(history), Clock: interval(clock)}
}

func interval(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

type PageData struct {
	Board   board.State
	Chart   chart.SVG
	Refresh Refresh
}

// NewPageData lays out the chart of s for rendering.
func NewPageData(s board.State, r Refresh) *PageData {
	return &PageData{Board: s, Chart: chart.Layout(s.Chart, chartWidth, chartHeight), Refresh: r}
}

func render(w io.Writer, name string, data *PageData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, name, data)
}

func RenderDashboard(w io.Writer, data *PageData) error {
	return render(w, "dashboard.html", data)
}

// RenderReadingsPartial executes the sensor and coop cards. Use for HTMX
// fragment refresh.
func RenderReadingsPartial(w io.Writer, data *PageData) error {
	return render(w, "readings", data)
}

func RenderDevicesPartial(w io.Writer, data *PageData) error {
	return render(w, "devices", data)
}

func RenderChartPartial(w io.Writer, data *PageData) error {
	return render(w, "chart", data)
}

func RenderClockPartial(w io.Writer, data *PageData) error {
	return render(w, "clock", data)
}
