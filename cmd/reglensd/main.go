package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/cli"
	"github.com/reglens/reglens/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reglensd",
		Short: "Reglens daemon",
		Long:  "Reglens daemon for serving the document search API and running corpus ingestion",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
