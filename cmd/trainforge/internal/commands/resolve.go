// Package commands implements the trainforge subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trainforge/trainforge/cmd/trainforge/internal/display"
	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/store"
)

// NewResolveCommand resolves a single experiment document.
func NewResolveCommand() *cobra.Command {
	var overridesPath string
	var registryPath string
	var experiment string

	cmd := &cobra.Command{
		Use:   "resolve <experiment.yaml>",
		Short: "Resolve and validate one experiment definition",
		Long: `Load an experiment definition, expand its anchors, layer overrides and
defaults underneath each phase and validate the merged result.

On success the resolved configuration is summarized. On validation failure
every located issue is listed and the command exits non-zero.`,
		Example: `  # Resolve a definition
  trainforge resolve experiments/mnist.yaml

  # Layer an override file on top
  trainforge resolve experiments/mnist.yaml --overrides sweep/lr_0001.yaml

  # Record the run in a registry
  trainforge resolve experiments/mnist.yaml --registry runs.db --experiment mnist-baseline`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolverOptions(overridesPath)
			if err != nil {
				return err
			}
			resolver, err := config.NewResolver(opts...)
			if err != nil {
				return err
			}

			resolved, err := resolver.ResolveFile(cmd.Context(), args[0])
			if err != nil {
				fmt.Print(display.FormatFailure(args[0], err))
				os.Exit(1)
			}

			if registryPath != "" {
				name := experiment
				if name == "" {
					name = args[0]
				}
				if err := recordRun(cmd, registryPath, name, resolved); err != nil {
					return err
				}
			}

			fmt.Print(display.FormatResolved(args[0], resolved))
			return nil
		},
	}

	cmd.Flags().StringVar(&overridesPath, "overrides", "", "YAML file layered on top of the document")
	cmd.Flags().StringVar(&registryPath, "registry", "", "run registry database to record into")
	cmd.Flags().StringVar(&experiment, "experiment", "", "experiment name for the registry (defaults to the file path)")
	return cmd
}

func resolverOptions(overridesPath string) ([]config.ResolverOption, error) {
	if overridesPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(overridesPath)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}
	return []config.ResolverOption{config.WithOverridesText(string(data))}, nil
}

func recordRun(cmd *cobra.Command, registryPath, experiment string, resolved *config.ResolvedConfig) error {
	s, err := store.Open(registryPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Record(cmd.Context(), experiment, resolved)
}
