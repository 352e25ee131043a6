// Package cli holds the cobra command behind cmd/validate_pdf.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/pdfvalidator/internal/report"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

// ErrRulesFailed is returned after rendering when at least one rule failed.
var ErrRulesFailed = errors.New("one or more rules failed")

// Runner runs the validation pipeline on a local file.
type Runner interface {
	Validate(ctx context.Context, path string, rules []string) (*validator.Outcome, error)
}

// RunnerFactory builds the runner lazily so --help never touches config.
type RunnerFactory func(ctx context.Context) (Runner, error)

// NewValidateCommand creates the root 'validate_pdf <file>' command.
func NewValidateCommand(newRunner RunnerFactory) *cobra.Command {
	var (
		rules  []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "validate_pdf <file.pdf>",
		Short: "Validate a PDF document against three rules",
		Long: `Extract the text of a local PDF, ask the configured LLM provider whether it
satisfies each rule, and print a verdict per rule.

Provider settings are read from the environment (and .env) exactly as the
API server reads them. The command exits with status 1 when any rule fails.`,
		Example:       `  validate_pdf handbook.pdf --rule "Mentions annual leave" --rule "Signed by HR" --rule "States a probation period"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(report.Formats, strings.ToLower(format)) {
				return fmt.Errorf("unknown --format %q (want one of %s)", format, strings.Join(report.Formats, ", "))
			}
			if err := validator.CheckRules(rules); err != nil {
				return fmt.Errorf("--rule must be given %d times: %w", validator.RuleCount, err)
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("document not found: %s", path)
			}

			runner, err := newRunner(cmd.Context())
			if err != nil {
				return err
			}
			outcome, err := runner.Validate(cmd.Context(), path, rules)
			if err != nil {
				return err
			}
			if err := report.Render(cmd.OutOrStdout(), outcome, format); err != nil {
				return err
			}
			if outcome.Passed() < len(outcome.Results) {
				return ErrRulesFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&rules, "rule", "r", nil, "validation rule (repeat exactly 3 times, in order)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json or yaml")
	return cmd
}
