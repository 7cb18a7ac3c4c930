package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trainforge/trainforge/cmd/trainforge/internal/display"
	"github.com/trainforge/trainforge/pkg/schema"
)

// NewListCommand lists the identifiers the schema registry accepts.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accepted sampler, optimizer and model identifiers",
		Long: `Display the identifiers the schema registry accepts for its enumerated
section keys. A document using any other value fails validation with the
accepted list in the issue message.`,
		Example: `  # List accepted identifiers
  trainforge list`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(display.FormatIdentifierList(schema.NewRegistry()))
		},
	}
}
