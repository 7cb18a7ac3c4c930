// Package display formats resolution results for terminal output.
package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/schema"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// FormatResolved renders a one-screen summary of a resolved configuration.
func FormatResolved(name string, resolved *config.ResolvedConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", okMark("✓"), name)
	fmt.Fprintf(&b, "  run %s\n", dim(resolved.RunID()))

	for _, phase := range resolved.Phases() {
		pc, _ := resolved.Phase(phase)
		fmt.Fprintf(&b, "  %-10s problem=%s batch_size=%d", phase, pc.Problem.Name, pc.Problem.BatchSize)
		if pc.Optimizer != nil {
			fmt.Fprintf(&b, " optimizer=%s lr=%g", pc.Optimizer.Name, pc.Optimizer.LR)
		}
		if pc.Sampler != nil && pc.Sampler.Indices.IsRange() {
			fmt.Fprintf(&b, " indices=%v", pc.Sampler.Indices.Range)
		}
		b.WriteString("\n")
	}

	model := resolved.Model()
	fmt.Fprintf(&b, "  model      %s (%d layer block(s))\n", model.Name, len(model.Layers))
	return b.String()
}

// FormatIdentifierList renders the identifiers the schema registry accepts
// for its enumerated section keys.
func FormatIdentifierList(reg *schema.Registry) string {
	var b strings.Builder
	b.WriteString("Accepted identifiers:\n")
	fmt.Fprintf(&b, "  samplers:   %s\n", strings.Join(reg.SamplerNames(), ", "))
	fmt.Fprintf(&b, "  optimizers: %s\n", strings.Join(reg.OptimizerNames(), ", "))
	fmt.Fprintf(&b, "  models:     %s\n", strings.Join(reg.ModelNames(), ", "))
	return b.String()
}

// FormatFailure renders a resolution failure, expanding validation issues
// when the error carries them.
func FormatFailure(name string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", failMark("✗"), name)
	issues, ok := config.IssuesFrom(err)
	if !ok {
		fmt.Fprintf(&b, "  %v\n", err)
		return b.String()
	}
	for _, issue := range issues {
		fmt.Fprintf(&b, "  %s\n", issue)
	}
	return b.String()
}
