package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/chart"
	"kandang-monitor/internal/modules/dashboard/display"
)

func printBoard(w io.Writer, s board.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Jam\t%s\n", orPlaceholder(s.Clock))
	fmt.Fprintf(tw, "Suhu\t%s\t%s\n", s.Temperature.Text, s.Temperature.Status)
	fmt.Fprintf(tw, "Cahaya\t%s\tLampu otomatis: %s\n", s.Light.Text, s.Light.Lamp)
	fmt.Fprintf(tw, "Ketinggian\t%s\n", s.Altitude)
	fmt.Fprintf(tw, "Ayam\t%s\n", s.Coop.Ayam)
	fmt.Fprintf(tw, "Pakan\t%s\n", s.Coop.Pakan)
	fmt.Fprintf(tw, "Air\t%s\n", s.Coop.Air)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "PERANGKAT\tSTATUS\tTOMBOL")
	for _, d := range s.Devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, strings.TrimPrefix(d.StatusText, "Status: "), d.Label)
	}
	fmt.Fprintln(tw)

	printHistory(tw, s.Chart)
	return tw.Flush()
}

// printHistory shows the newest point of each series.
func printHistory(w io.Writer, d chart.Data) {
	n := len(d.Labels)
	if n == 0 {
		fmt.Fprintln(w, "Riwayat\tbelum ada data")
		return
	}
	fmt.Fprintf(w, "Riwayat\t%d titik, terakhir %s\n", n, d.Labels[n-1])
	for _, ds := range d.Datasets {
		v := display.Placeholder
		if len(ds.Data) > 0 && ds.Data[len(ds.Data)-1] != nil {
			v = display.Number(*ds.Data[len(ds.Data)-1])
		}
		fmt.Fprintf(w, "  %s\t%s\n", ds.Label, v)
	}
}

func printFailures(w io.Writer, endpoints []string) {
	if len(endpoints) == 0 {
		return
	}
	fmt.Fprintf(w, "warning: %d request(s) failed: %s\n", len(endpoints), strings.Join(endpoints, ", "))
}

func orPlaceholder(s string) string {
	if s == "" {
		return display.Placeholder
	}
	return s
}
