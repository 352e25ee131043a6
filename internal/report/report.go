// Package report renders a validation outcome for terminal output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
)

// Render writes outcome to w in the given format.
func Render(w io.Writer, outcome *validator.Outcome, format string) error {
	if outcome == nil {
		return fmt.Errorf("report: outcome is nil")
	}
	switch strings.ToLower(format) {
	case FormatTable, "":
		return renderTable(w, outcome)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(outcome); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("report: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func renderTable(w io.Writer, outcome *validator.Outcome) error {
	for i, v := range outcome.Results {
		label := failLabel("FAIL")
		if v.Status == validator.StatusPass {
			label = passLabel("PASS")
		}
		fmt.Fprintf(w, "%s  Rule %d: %s (confidence %d%%)\n", label, i+1, v.Rule, v.Confidence)
		if v.Evidence != "" {
			fmt.Fprintf(w, "      evidence:  %s\n", v.Evidence)
		}
		if v.Reasoning != "" {
			fmt.Fprintf(w, "      reasoning: %s\n", v.Reasoning)
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", dim(fmt.Sprintf("%d/%d rules passed, %d pages, %.2fs",
		outcome.Passed(), len(outcome.Results), outcome.PageCount, outcome.ProcessingTime)))
	return err
}
