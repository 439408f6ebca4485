package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/planner"
	"github.com/harrison/researchflow/internal/registry"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [request-file...]",
		Short: "Validate configuration and request files",
		Long: `Validate loads the configuration exactly as run would and checks it.
Each request file given is parsed, validated and planned.

Exit code: 0 if everything is valid, 1 if errors found

Examples:
  researchflow validate
  researchflow validate requests/metformin.yaml requests/aspirin.json
  researchflow validate --config ci.yaml --report-format pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				failColor.Fprintf(cmd.OutOrStdout(), "✗ configuration: %v\n", err)
				return fmt.Errorf("validation failed")
			}
			okColor.Fprintln(cmd.OutOrStdout(), "✓ configuration")
			return validateRequestFiles(args, cmd.OutOrStdout())
		},
	}

	addRuntimeFlags(cmd)

	return cmd
}

// validateRequestFiles reports every file and fails if any is invalid.
func validateRequestFiles(paths []string, output io.Writer) error {
	p := planner.New(registry.Default())
	failed := 0
	for _, path := range paths {
		req, err := loadRequestFile(path)
		if err == nil {
			err = req.Validate()
		}
		if err != nil {
			failColor.Fprintf(output, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		plan, err := p.Plan(req)
		if err != nil {
			failColor.Fprintf(output, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		if len(plan) == 0 {
			warnColor.Fprintf(output, "✓ %s: %s (no analyses apply)\n", path, req.Subject)
			continue
		}
		okColor.Fprintf(output, "✓ %s: %s (%d analyses)\n", path, req.Subject, len(plan))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d request files invalid", failed, len(paths))
	}
	return nil
}
