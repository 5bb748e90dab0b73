package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/events"
	"github.com/needle-digital/dh-importer/gisexport"
)

type filterFlags struct {
	state    string
	company  string
	holeType string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.state, "state", "", "filter by state")
	cmd.Flags().StringVar(&f.company, "company", "", "filter by company name")
	cmd.Flags().StringVar(&f.holeType, "hole-type", "", "filter by hole type")
}

func (f *filterFlags) params() map[string]string {
	return map[string]string{
		"state":        f.state,
		"company_name": f.company,
		"hole_type":    f.holeType,
	}
}

func datasetKind(arg string) (api.DatasetKind, error) {
	switch strings.ToLower(arg) {
	case "holes":
		return api.KindHoles, nil
	case "assays":
		return api.KindAssays, nil
	default:
		return "", errors.Errorf("unknown dataset %q, expected holes or assays", arg)
	}
}

func newFetchCmd() *cobra.Command {
	var (
		filters filterFlags
		count   int
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "fetch <holes|assays>",
		Short: "Fetch a dataset and optionally export it as GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := datasetKind(args[0])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.controller.RestoreSession(cmd.Context())
			if !app.controller.IsAuthenticated() {
				return errors.New("not logged in, run 'dhimport login' first")
			}

			app.bus.OnFetchProgress(func(e events.FetchProgress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rFetching %s: %d / %d", e.Kind, e.Fetched, e.Total)
			})

			result, err := app.fetcher.Fetch(cmd.Context(), kind, filters.params(), count)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			printFetchSummary(cmd, app, kind)

			if outPath != "" {
				return exportGeoJSON(cmd, result.Chunks(0), outPath)
			}
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 1000, "number of records to fetch")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the result as GeoJSON to this file")
	return cmd
}

func printFetchSummary(cmd *cobra.Command, app *app, kind api.DatasetKind) {
	out := cmd.OutOrStdout()
	details := app.datasets.FetchDetails(kind)

	fmt.Fprintf(out, "Fetched %d of %d requested %s records in %s\n",
		details.TotalFetched, details.RequestedCount, kind, details.FetchTime.Round(10*time.Millisecond))

	if len(details.StateContributions) > 0 {
		states := make([]string, 0, len(details.StateContributions))
		for state := range details.StateContributions {
			states = append(states, state)
		}
		sort.Strings(states)
		for _, state := range states {
			fmt.Fprintf(out, "  %-20s %d\n", state, details.StateContributions[state])
		}
	}

	info := app.datasets.PageInfo(kind)
	if info.DisplayCount < details.TotalFetched {
		fmt.Fprintf(out, "Displaying first %d records (%d pages of %d)\n",
			info.DisplayCount, info.TotalPages, app.cfg.Display.RecordsPerPage)
	}
}

func exportGeoJSON(cmd *cobra.Command, source gisexport.ChunkSource, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer file.Close()

	written, err := gisexport.WriteGeoJSON(cmd.Context(), file, source, func(n int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\rExporting: %d features", n)
	})
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "close output file")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d features to %s\n", written, path)
	return nil
}
