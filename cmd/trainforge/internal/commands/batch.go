package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trainforge/trainforge/cmd/trainforge/internal/display"
	"github.com/trainforge/trainforge/pkg/batch"
	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/store"
)

// NewBatchCommand resolves many experiment documents concurrently.
func NewBatchCommand() *cobra.Command {
	var overridesPath string
	var registryPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <experiment.yaml>...",
		Short: "Resolve a grid of experiment definitions",
		Long: `Resolve every given experiment definition with bounded concurrency, the
way a grid run resolves all configurations before any training starts.

One document failing never stops the others; each failure is reported with
its issues and the command exits non-zero when any document failed.`,
		Example: `  # Resolve a sweep
  trainforge batch sweep/*.yaml --workers 8

  # Record every successful run
  trainforge batch sweep/*.yaml --registry runs.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolverOptions(overridesPath)
			if err != nil {
				return err
			}
			resolver, err := config.NewResolver(opts...)
			if err != nil {
				return err
			}

			runnerOpts := []batch.RunnerOption{
				batch.WithResolver(resolver),
				batch.WithWorkers(workers),
			}
			if registryPath != "" {
				s, err := store.Open(registryPath)
				if err != nil {
					return err
				}
				defer s.Close()
				runnerOpts = append(runnerOpts, batch.WithStore(s))
			}
			runner, err := batch.NewRunner(runnerOpts...)
			if err != nil {
				return err
			}

			docs := make([]batch.Document, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				docs = append(docs, batch.Document{Name: path, Text: string(data)})
			}

			results, err := runner.Run(cmd.Context(), docs)
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Print(display.FormatFailure(res.Name, res.Err))
					continue
				}
				fmt.Print(display.FormatResolved(res.Name, res.Config))
			}
			if failed > 0 {
				fmt.Printf("%d of %d document(s) failed\n", failed, len(results))
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&overridesPath, "overrides", "", "YAML file layered on top of every document")
	cmd.Flags().StringVar(&registryPath, "registry", "", "run registry database to record into")
	cmd.Flags().IntVar(&workers, "workers", 4, "maximum documents resolved concurrently")
	return cmd
}
