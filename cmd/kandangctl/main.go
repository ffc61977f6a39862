package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultBackend = "http://127.0.0.1:8080"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	backend string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "kandangctl",
		Short: "kandangctl - poultry house controller from the terminal",
		Long: `kandangctl reads the same controller API as the web dashboard and
prints the board: temperature, light, altitude, coop tally and devices.`,
		SilenceUsage: true,
	}

	backend := os.Getenv("BACKEND_URL")
	if backend == "" {
		backend = defaultBackend
	}
	root.PersistentFlags().StringVar(&opts.backend, "backend", backend, "controller API base URL (env BACKEND_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request failure")

	root.AddCommand(newStatusCmd(opts), newToggleCmd(opts), newWatchCmd(opts))
	return root
}
