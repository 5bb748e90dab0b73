package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "count <holes|assays>",
		Short: "Count the records matching the current filters without fetching them",
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

			total, err := app.fetcher.CountRecords(cmd.Context(), kind, filters.params())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d %s records match\n", total, kind)
			return nil
		},
	}

	filters.register(cmd)
	return cmd
}

func newCompaniesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companies <query>",
		Short: "Search the company directory (minimum three characters)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.controller.RestoreSession(cmd.Context())
			if !app.controller.IsAuthenticated() {
				return errors.New("not logged in, run 'dhimport login' first")
			}

			names, err := app.fetcher.SearchCompanies(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No companies found")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newHoleTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hole-types",
		Short: "List the hole types available for filtering",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.controller.RestoreSession(cmd.Context())
			for _, holeType := range app.fetcher.HoleTypes(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), holeType)
			}
			return nil
		},
	}
}
