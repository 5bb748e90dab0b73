package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dhimport",
		Short:         "Needle drill hole importer",
		Long:          "Fetches drill hole and assay datasets from the Needle Digital API and exports them for GIS use.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newCompaniesCmd())
	cmd.AddCommand(newHoleTypesCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dhimport %s (commit: %s)\n", Version, Commit)
		},
	}
}

func displayAppname() {
	myFigure := figure.NewFigure("dhimport", "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func run(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	return newRootCmd().ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}
