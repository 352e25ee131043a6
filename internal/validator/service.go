package validator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hetulpatel/pdfvalidator/internal/llm"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
)

// Service validates documents against rules via LLM.
type Service struct {
	extractor    Extractor
	llm          llm.Invoker
	systemPrompt string
}

// NewService creates a validator.
func NewService(cfg Config) (*Service, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("validator: extractor is required")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("validator: llm invoker is required")
	}
	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = SystemPrompt
	}
	return &Service{
		extractor:    cfg.Extractor,
		llm:          cfg.Invoker,
		systemPrompt: system,
	}, nil
}

// Provider reports the backend the service sends prompts to.
func (s *Service) Provider() string { return s.llm.Provider() }

// Model reports the model name the service requests.
func (s *Service) Model() string { return s.llm.Model() }

// CheckRules rejects anything other than RuleCount non-blank rules.
func CheckRules(rules []string) error {
	if len(rules) != RuleCount {
		return &InputValidationError{Field: "rules", Reason: fmt.Sprintf("exactly %d rules are required, got %d", RuleCount, len(rules))}
	}
	for i, rule := range rules {
		if strings.TrimSpace(rule) == "" {
			return &InputValidationError{Field: fmt.Sprintf("rule%d", i+1), Reason: "rule must not be empty"}
		}
	}
	return nil
}

// Validate runs extraction, prompting, invocation and parsing in sequence.
// The first failing stage aborts the run; no partial outcome is returned.
func (s *Service) Validate(ctx context.Context, path string, rules []string) (*Outcome, error) {
	if s == nil {
		return nil, fmt.Errorf("validator: service is nil")
	}
	start := time.Now()

	if err := CheckRules(rules); err != nil {
		return nil, err
	}

	doc, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, asExtractionError(path, err)
	}
	logging.Debugf("[validator] extracted %d pages (%d chars) from %s", doc.PageCount, len(doc.FullText), path)

	prompt := BuildPrompt(doc.FullText, rules)
	raw, err := s.llm.Complete(ctx, s.systemPrompt, prompt)
	if err != nil {
		return nil, &InvocationError{Provider: s.llm.Provider(), Err: err}
	}

	verdicts, err := ParseResult(raw)
	if err != nil {
		return nil, err
	}
	verdicts, err = alignVerdicts(rules, verdicts)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Results:        verdicts,
		PageCount:      doc.PageCount,
		ProcessingTime: roundSeconds(time.Since(start)),
	}, nil
}

// alignVerdicts requires one verdict per rule and pins each verdict to the
// caller's rule at the same position.
func alignVerdicts(rules []string, verdicts []Verdict) ([]Verdict, error) {
	if len(verdicts) != len(rules) {
		return nil, &MalformedModelOutputError{
			Reason: fmt.Sprintf("expected %d results, got %d", len(rules), len(verdicts)),
		}
	}
	out := make([]Verdict, len(verdicts))
	for i, v := range verdicts {
		if strings.TrimSpace(v.Rule) != strings.TrimSpace(rules[i]) {
			logging.Debugf("[validator] result %d restated rule %q as %q", i+1, rules[i], v.Rule)
		}
		v.Rule = rules[i]
		out[i] = v
	}
	return out, nil
}

func asExtractionError(path string, err error) error {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}
	return &ExtractionError{Path: path, Err: err}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
