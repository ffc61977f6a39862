// Package chart keeps the temperature/humidity/pressure history shown in
// #tempChart and lays it out as an inline SVG.
package chart

import (
	"strconv"
	"strings"
	"sync"

	"kandang-monitor/internal/types"
)

const (
	YMin  = 5.0
	YMax  = 45.0
	YStep = 5.0
)

// Dataset is one plotted series. Nil entries in Data are gaps.
type Dataset struct {
	Label           string
	BorderColor     string
	BackgroundColor string
	Data            []*float64
}

// Data is a point-in-time copy of the chart contents.
type Data struct {
	Labels   []string
	Datasets []Dataset
}

type Chart struct {
	mu       sync.RWMutex
	labels   []string
	datasets [3]Dataset
}

// New returns a chart with its three series empty.
func New() *Chart {
	return &Chart{
		labels: []string{},
		datasets: [3]Dataset{
			{Label: "Suhu (°C)", BorderColor: "rgba(255, 193, 7, 1)", BackgroundColor: "rgba(255, 193, 7, 0.2)"},
			{Label: "Kelembapan (%)", BorderColor: "rgba(54, 162, 235, 1)", BackgroundColor: "rgba(54, 162, 235, 0.2)"},
			{Label: "Tekanan (hPa)", BorderColor: "rgba(255, 99, 132, 1)", BackgroundColor: "rgba(255, 99, 132, 0.2)"},
		},
	}
}

// Replace swaps the labels and all three series in one step. Readers never
// observe a mix of old and new series.
func (c *Chart) Replace(h types.HistorySeries) {
	labels := append([]string{}, h.Labels...)
	temp := copySeries(h.Temperature)
	hum := copySeries(h.Humidity)
	pres := copySeries(h.Pressure)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels = labels
	c.datasets[0].Data = temp
	c.datasets[1].Data = hum
	c.datasets[2].Data = pres
}

func (c *Chart) Data() Data {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := Data{
		Labels:   append([]string{}, c.labels...),
		Datasets: make([]Dataset, len(c.datasets)),
	}
	for i, ds := range c.datasets {
		ds.Data = copySeries(ds.Data)
		out.Datasets[i] = ds
	}
	return out
}

func copySeries(in []*float64) []*float64 {
	out := make([]*float64, len(in))
	for i, v := range in {
		if v != nil {
			x := *v
			out[i] = &x
		}
	}
	return out
}

// Tick is an axis label positioned in SVG user units.
type Tick struct {
	Pos   float64
	Label string
}

// Series is one dataset laid out as polylines; a gap in the data starts a
// new segment.
type Series struct {
	Label    string
	Stroke   string
	Fill     string
	Segments []string
}

// SVG holds everything the template needs to draw the chart.
type SVG struct {
	Width, Height float64
	Left, Right   float64
	Top, Bottom   float64
	YTicks        []Tick
	XTicks        []Tick
	Series        []Series
}

const (
	marginLeft   = 40.0
	marginRight  = 10.0
	marginTop    = 10.0
	marginBottom = 30.0
)

// Layout places d on a width x height canvas with the fixed [YMin, YMax] axis.
// Values outside the axis are pinned to its edge.
func Layout(d Data, width, height float64) SVG {
	s := SVG{
		Width:  width,
		Height: height,
		Left:   marginLeft,
		Right:  width - marginRight,
		Top:    marginTop,
		Bottom: height - marginBottom,
	}

	for v := YMin; v <= YMax; v += YStep {
		s.YTicks = append(s.YTicks, Tick{Pos: s.y(v), Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	for i, l := range d.Labels {
		s.XTicks = append(s.XTicks, Tick{Pos: s.x(i, len(d.Labels)), Label: l})
	}

	for _, ds := range d.Datasets {
		series := Series{Label: ds.Label, Stroke: ds.BorderColor, Fill: ds.BackgroundColor}
		var pts []string
		flush := func() {
			if len(pts) > 0 {
				series.Segments = append(series.Segments, strings.Join(pts, " "))
				pts = nil
			}
		}
		n := len(d.Labels)
		for i, v := range ds.Data {
			if i >= n {
				break
			}
			if v == nil {
				flush()
				continue
			}
			pts = append(pts, fmtPoint(s.x(i, n), s.y(*v)))
		}
		flush()
		s.Series = append(s.Series, series)
	}
	return s
}

func (s SVG) x(i, n int) float64 {
	if n <= 1 {
		return (s.Left + s.Right) / 2
	}
	return s.Left + float64(i)*(s.Right-s.Left)/float64(n-1)
}

func (s SVG) y(v float64) float64 {
	v = min(max(v, YMin), YMax)
	return s.Bottom - (v-YMin)/(YMax-YMin)*(s.Bottom-s.Top)
}

func fmtPoint(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64) + "," + strconv.FormatFloat(y, 'f', 1, 64)
}
