package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trainforge/trainforge/pkg/store"
)

// NewRunsCommand lists runs recorded in a registry.
func NewRunsCommand() *cobra.Command {
	var registryPath string
	var showResolved bool

	cmd := &cobra.Command{
		Use:   "runs <experiment>",
		Short: "List recorded runs of an experiment",
		Example: `  # List runs
  trainforge runs mnist-baseline --registry runs.db

  # Include the full resolved configuration of each run
  trainforge runs mnist-baseline --registry runs.db --resolved`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(registryPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Printf("no recorded runs for %s\n", args[0])
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %s  model=%s  phases=%v\n",
					run.CreatedAt.Format("2006-01-02 15:04:05"), run.ID, run.Model, run.Phases)
				if showResolved {
					fmt.Println(run.Resolved)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "runs.db", "run registry database")
	cmd.Flags().BoolVar(&showResolved, "resolved", false, "print each run's full resolved configuration")
	return cmd
}
