package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trainforge/trainforge/cmd/trainforge/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "trainforge",
	Short: "Resolve and validate machine learning experiment definitions",
	Long: `A command-line interface for resolving declarative experiment definitions
into fully merged, validated training configurations.

The CLI provides:
- Single document resolution with readable issue reports
- Batch resolution of experiment grids with bounded concurrency
- Invocation-time overrides layered on top of documents
- A run registry recording which configuration each run used`,
	Version: "0.1.0",
}

func main() {
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewResolveCommand())
	rootCmd.AddCommand(commands.NewBatchCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
